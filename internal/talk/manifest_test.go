package talk_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"talkvid/internal/services"
	"talkvid/internal/talk"
)

func TestLoadManifestResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "talk.yaml")
	body := `template: slides/pyvo.svg
speaker_video: "camera/*.MTS"
speaker: Ada Lovelace
title: Analytical Engines, Revisited
url: https://example.org/talks/42
date: "2024-05-16"
av_offset: -0.25
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := talk.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	m.ApplyDefaults(30)
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got := m.Resolve(m.Template); got != filepath.Join(dir, "slides", "pyvo.svg") {
		t.Fatalf("template resolved to %q", got)
	}
	if got := m.Resolve("/abs/file.MTS"); got != "/abs/file.MTS" {
		t.Fatalf("absolute path changed to %q", got)
	}
	if m.FPS != 30 || m.AVOffset != -0.25 {
		t.Fatalf("unexpected fps=%d av_offset=%v", m.FPS, m.AVOffset)
	}
	if m.Output != "analytical-engines-revisited.mkv" {
		t.Fatalf("default output = %q", m.Output)
	}
	if m.SpeakerText() != "Ada Lovelace:" {
		t.Fatalf("speaker text = %q", m.SpeakerText())
	}
}

func TestManifestDefaults(t *testing.T) {
	m, err := talk.ParseManifest([]byte("template: t.svg\nurl: https://x\n"))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	m.ApplyDefaults(0)
	if m.FPS != 25 || m.SpeakerVideo != talk.DefaultSpeakerPattern || m.Output != "talk.mkv" {
		t.Fatalf("unexpected defaults %+v", m)
	}
	if m.SpeakerText() != "" {
		t.Fatalf("empty speaker should stay empty")
	}
}

func TestManifestRejectsUnknownKeys(t *testing.T) {
	_, err := talk.ParseManifest([]byte("template: t.svg\nspeaker_vid: x\n"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestManifestValidation(t *testing.T) {
	cases := map[string]string{
		"missing template": "url: https://x\nspeaker_video: a.MTS\n",
		"missing url":      "template: t.svg\nspeaker_video: a.MTS\n",
		"bad date":         "template: t.svg\nspeaker_video: a.MTS\nurl: https://x\ndate: 16.5.2024\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			m, err := talk.ParseManifest([]byte(body))
			if err != nil {
				t.Fatalf("ParseManifest: %v", err)
			}
			if err := m.Validate(); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestExpandGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.MTS", "a.MTS", "notes.txt", filepath.Join("day2", "c.MTS")} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	files, err := talk.ExpandGlob(filepath.Join(dir, "*.MTS"), talk.DefaultSpeakerPattern)
	if err != nil {
		t.Fatalf("ExpandGlob: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.MTS" || filepath.Base(files[1]) != "b.MTS" {
		t.Fatalf("unexpected files %v", files)
	}

	files, err = talk.ExpandGlob(filepath.Join(dir, "day*"), talk.DefaultSpeakerPattern)
	if err != nil {
		t.Fatalf("ExpandGlob dir: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "c.MTS" {
		t.Fatalf("unexpected directory expansion %v", files)
	}

	if _, err := talk.ExpandGlob(filepath.Join(dir, "*.mp4"), ""); err == nil {
		t.Fatalf("expected error for unmatched pattern")
	}
}
