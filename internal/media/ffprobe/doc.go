// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// It has no talkvid-specific dependencies. Run returns the raw JSON so callers
// can cache it; Parse and Inspect decode it into Result, whose helpers expose
// the first video and audio streams, frame rates and durations.
package ffprobe
