package talk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ExpandGlob lists files matching pattern in sorted order. A matching
// directory contributes its entries matching fallback.
func ExpandGlob(pattern, fallback string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", match, err)
		}
		if !info.IsDir() {
			files = append(files, match)
			continue
		}
		inner, err := filepath.Glob(filepath.Join(match, fallback))
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", fallback, err)
		}
		files = append(files, inner...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matching %s", pattern)
	}
	sort.Strings(files)
	return files, nil
}
