// Package main hosts the talkvid CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the shared
// artifact store, renderer and logger, and hands manifests to the talk
// pipeline. make renders and publishes a video, graph prints the filter
// script without rendering, sync measures the offset between two recordings,
// and cache, config and doctor cover maintenance.
//
// Keep this package thin: behaviour belongs in the internal packages and is
// only surfaced here through commands and flags.
package main
