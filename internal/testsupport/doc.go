// Package testsupport holds helpers shared by package tests: temp-dir backed
// configs, shell-script stand-ins for ffmpeg, ffprobe and inkscape, and file
// writers.
package testsupport
