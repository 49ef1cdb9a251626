package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// InputKey hashes a raw input file. Files up to smallFileBytes are hashed by
// content; larger ones by absolute path, size and modification time, which
// avoids reading multi-gigabyte recordings on every run.
func InputKey(path string, smallFileBytes int64) (Key, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return Key{}, fmt.Errorf("resolve input %s: %w", path, err)
	}
	info, err := os.Stat(absolute)
	if err != nil {
		return Key{}, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return Key{}, fmt.Errorf("input %s is a directory", absolute)
	}

	if info.Size() > smallFileBytes {
		return New("input.stat").
			String(absolute).
			Int(info.Size()).
			Int(info.ModTime().UnixNano()).
			Sum(), nil
	}

	file, err := os.Open(absolute)
	if err != nil {
		return Key{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	content := blake3.New()
	if _, err := io.Copy(content, file); err != nil {
		return Key{}, fmt.Errorf("read input %s: %w", absolute, err)
	}
	return New("input.content").
		Int(info.Size()).
		Bytes(content.Sum(nil)).
		Sum(), nil
}
