package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPublishHardLinksWithinFilesystem(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "artifact.mkv")
	dst := filepath.Join(dir, "out", "talk.mkv")
	if err := os.WriteFile(src, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	method, err := Publish(src, dst)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if method != MethodLink {
		t.Fatalf("expected hard link, got %s", method)
	}
	srcInfo, _ := os.Stat(src)
	dstInfo, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat dst: %v", err)
	}
	if !os.SameFile(srcInfo, dstInfo) {
		t.Fatalf("expected dst to share the source inode")
	}
}

func TestPublishReplacesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "artifact.mkv")
	dst := filepath.Join(dir, "talk.mkv")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old render"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Publish(src, dst); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "new" {
		t.Fatalf("dst = %q, %v", got, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestPublishMissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := Publish(filepath.Join(dir, "missing"), filepath.Join(dir, "talk.mkv")); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(filepath.Join(dir, "talk.mkv")); !os.IsNotExist(err) {
		t.Fatalf("dst should not exist, stat err=%v", err)
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	content := make([]byte, 1<<20)
	for i := range content {
		content[i] = byte(i % 251)
	}
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(content) {
		t.Fatalf("size mismatch: got %d, want %d", len(got), len(content))
	}
	for i := range got {
		if got[i] != content[i] {
			t.Fatalf("byte %d differs", i)
		}
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
