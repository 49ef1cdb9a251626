// Package avsync aligns two recordings of the same talk by their audio.
//
// Both soundtracks are rendered to mono PCM, reduced to MFCC frames and
// aligned with a windowed dynamic time warping walk. A line fitted through
// the alignment gives the offset in feature frames; Synchronized delays the
// lagging recording so both start together.
package avsync
