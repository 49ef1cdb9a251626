package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"talkvid/internal/config"
	"talkvid/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	ffmpegArgs string
}

const cliSizes = `svg,0,0,1920,1080
slide-blank,0,0,1920,1080
slide-last,0,0,1920,1080
qrcode,100,100,300,300
slide-overlay,0,880,1920,200`

const cliSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="1920" height="1080">
  <rect id="slide-blank" width="1920" height="1080"/>
  <text id="txt-speaker"><tspan>S</tspan></text>
  <text id="txt-title"><tspan>T</tspan></text>
  <text id="txt-event"><tspan>E</tspan></text>
  <text id="txt-date"><tspan>D</tspan></text>
  <g id="slide-last"><text id="txt-url"><tspan>U</tspan></text><rect id="qrcode"/></g>
  <rect id="slide-overlay"/>
</svg>
`

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("TALKVID_CACHE_DIR", "")
	ffmpegArgs := filepath.Join(base, "ffmpeg-args")
	defaults := []testsupport.ConfigOption{
		testsupport.WithStub("ffmpeg", testsupport.FFmpegScript(ffmpegArgs, filepath.Join(base, "script"), "rendered")),
		testsupport.WithStub("ffprobe", testsupport.FFprobeScript(testsupport.VideoProbeJSON(1280, 720, 10, true), filepath.Join(base, "probe-calls"))),
		testsupport.WithStub("inkscape", testsupport.InkscapeScript(cliSizes, filepath.Join(base, "inkscape-calls"))),
	}
	cfg := testsupport.NewConfig(t, append(defaults, opts...)...)

	configPath := filepath.Join(base, "talkvid.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, ffmpegArgs: ffmpegArgs}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
cache_dir = %q
log_dir = %q

[tools]
ffmpeg = %q
ffprobe = %q
inkscape = %q

[logging]
level = "error"
`, cfg.Paths.CacheDir, cfg.Paths.LogDir, cfg.Tools.FFmpeg, cfg.Tools.FFprobe, cfg.Tools.Inkscape)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeTalk lays out a template, one camera file and a manifest under the
// test directory and returns the manifest path.
func writeTalk(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	files := map[string]string{
		"talk.svg":         cliSVG,
		"camera/take1.MTS": "camera bytes",
		"talk.yaml": `template: talk.svg
speaker_video: camera
speaker: Ada
title: Engines
event: Pyvo
date: "2024-05-16"
url: https://example.org/42
output: out/engines.mkv
`,
	}
	for name, body := range files {
		path := filepath.Join(env.baseDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return filepath.Join(env.baseDir, "talk.yaml")
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
