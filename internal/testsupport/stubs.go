package testsupport

import "fmt"

// FFprobeScript prints payload as ffprobe JSON output and appends one line
// per invocation to callsFile.
func FFprobeScript(payload, callsFile string) string {
	return fmt.Sprintf("echo probe >> %q\ncat <<'JSON'\n%s\nJSON\n", callsFile, payload)
}

// FFmpegScript records its arguments (one invocation per line) in argsFile,
// copies any -filter_complex_script file to scriptCopy and writes content to
// the last argument, which is always the output path.
func FFmpegScript(argsFile, scriptCopy, content string) string {
	return fmt.Sprintf(`echo "$@" >> %q
prev=""
for a; do
  if [ "$prev" = "-filter_complex_script" ]; then cp "$a" %q; fi
  prev="$a"
done
for last; do :; done
printf '%%s' %q > "$last"
`, argsFile, scriptCopy, content)
}

// VideoProbeJSON describes a file with one video and (optionally) one audio
// stream.
func VideoProbeJSON(width, height int, duration float64, withAudio bool) string {
	audio := ""
	if withAudio {
		audio = `, {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}`
	}
	return fmt.Sprintf(`{"streams": [{"index": 0, "codec_name": "h264", "codec_type": "video", "width": %d, "height": %d, "r_frame_rate": "25/1"}%s], "format": {"duration": "%g", "format_name": "matroska,webm"}}`,
		width, height, audio, duration)
}

// ImageProbeJSON describes a still PNG image.
func ImageProbeJSON(width, height int) string {
	return fmt.Sprintf(`{"streams": [{"index": 0, "codec_name": "png", "codec_type": "video", "width": %d, "height": %d, "r_frame_rate": "25/1"}], "format": {"format_name": "png_pipe"}}`,
		width, height)
}

// InkscapeScript answers --query-all with sizesCSV and writes "png" to the
// --export-filename target. Every invocation is appended to callsFile.
func InkscapeScript(sizesCSV, callsFile string) string {
	return fmt.Sprintf(`echo "$@" >> %q
for a; do
  case "$a" in
    --query-all)
      cat <<'CSV'
%s
CSV
      exit 0 ;;
    --export-filename=*) printf png > "${a#--export-filename=}" ;;
  esac
done
`, callsFile, sizesCSV)
}
