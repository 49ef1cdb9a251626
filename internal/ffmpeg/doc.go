// Package ffmpeg runs the ffmpeg binary and converts failures into
// services.ToolError values that keep the tool's stderr verbatim.
package ffmpeg
