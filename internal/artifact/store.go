package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"talkvid/internal/config"
	"talkvid/internal/logging"
	"talkvid/internal/services"
)

const (
	locksDir      = ".locks"
	tempPrefix    = ".tmp-"
	lockRetryStep = 50 * time.Millisecond
)

// Description names one artifact: its key, the extension of its file and a
// human label used in logs and error messages.
type Description struct {
	Key   Key
	Ext   string
	Label string
}

func (d Description) fileName() string {
	return d.Key.String() + normalizeExt(d.Ext)
}

// Builder materializes an artifact at tmpPath. tmpPath already carries the
// final extension so tools that infer formats from names behave.
type Builder func(ctx context.Context, tmpPath string) error

// Store is a flat content-addressed cache directory. Every file is named
// <hex key><ext>; presence of the file means the artifact is complete.
type Store struct {
	root           string
	smallFileBytes int64
	logger         *slog.Logger
	statfs         func(string) (uint64, uint64, error)

	hits   atomic.Int64
	builds atomic.Int64
}

// Open returns a store rooted at dir. The directory is created lazily on the
// first build.
func Open(dir string, smallFileBytes int64, logger *slog.Logger) *Store {
	if smallFileBytes <= 0 {
		smallFileBytes = 16 << 20
	}
	return &Store{
		root:           dir,
		smallFileBytes: smallFileBytes,
		logger:         logging.NewComponentLogger(logger, "artifact"),
		statfs:         realStatfs,
	}
}

// NewStore builds a store from application configuration.
func NewStore(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil || strings.TrimSpace(cfg.Paths.CacheDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "artifact", "open", "cache directory not configured", nil)
	}
	return Open(cfg.Paths.CacheDir, cfg.Cache.SmallFileBytes, logger), nil
}

// Root returns the cache directory.
func (s *Store) Root() string { return s.root }

// Hits reports how many GetOrBuild calls were served from disk.
func (s *Store) Hits() int64 { return s.hits.Load() }

// Builds reports how many GetOrBuild calls invoked their builder successfully.
func (s *Store) Builds() int64 { return s.builds.Load() }

// Path returns where the artifact lives (or will live).
func (s *Store) Path(key Key, ext string) string {
	return filepath.Join(s.root, key.String()+normalizeExt(ext))
}

// Exists reports whether the artifact is already materialized.
func (s *Store) Exists(key Key, ext string) bool {
	info, err := os.Stat(s.Path(key, ext))
	return err == nil && info.Mode().IsRegular()
}

// Input hashes a raw input file using the store's small-file threshold.
func (s *Store) Input(path string) (Key, error) {
	return InputKey(path, s.smallFileBytes)
}

// GetOrBuild returns the path of the described artifact, invoking build only
// when the file is absent. Concurrent builders of the same key, in this or
// another process, are serialized by an advisory lock; the result appears
// under its final name only through an atomic rename. A failed build leaves
// nothing behind and is not retried.
func (s *Store) GetOrBuild(ctx context.Context, desc Description, build Builder) (string, error) {
	if desc.Key.IsZero() {
		return "", services.Wrap(services.ErrCacheBuild, "artifact", "build", desc.Label, errors.New("zero key"))
	}
	finalPath := filepath.Join(s.root, desc.fileName())
	logger := logging.WithContext(ctx, s.logger).With(
		logging.String(logging.FieldArtifact, desc.fileName()),
		logging.String("label", desc.Label),
	)

	if s.Exists(desc.Key, desc.Ext) {
		s.hits.Add(1)
		logger.Debug("cache hit")
		return finalPath, nil
	}

	if err := os.MkdirAll(filepath.Join(s.root, locksDir), 0o755); err != nil {
		return "", s.buildError(desc, fmt.Errorf("create cache directory: %w", err))
	}

	lock := flock.New(filepath.Join(s.root, locksDir, desc.Key.String()+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryStep)
	if err != nil || !locked {
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return "", s.buildError(desc, fmt.Errorf("lock: %w", err))
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Debug("release cache lock failed", logging.Error(err))
		}
	}()

	// Another builder may have finished while we waited.
	if s.Exists(desc.Key, desc.Ext) {
		s.hits.Add(1)
		logger.Debug("cache hit after lock wait")
		return finalPath, nil
	}

	tmpPath := filepath.Join(s.root, tempPrefix+uuid.NewString()+"-"+desc.fileName())
	logger.Info("building artifact")
	started := time.Now()

	if err := build(ctx, tmpPath); err != nil {
		removeQuietly(tmpPath)
		return "", s.buildError(desc, err)
	}
	info, err := os.Stat(tmpPath)
	if err != nil || !info.Mode().IsRegular() {
		removeQuietly(tmpPath)
		return "", s.buildError(desc, errors.New("builder produced no file"))
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		removeQuietly(tmpPath)
		return "", s.buildError(desc, fmt.Errorf("publish: %w", err))
	}

	s.builds.Add(1)
	logger.Info("artifact built",
		logging.Int64("size_bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return finalPath, nil
}

// GetOrBuildBytes materializes an artifact whose content is produced in memory.
func (s *Store) GetOrBuildBytes(ctx context.Context, desc Description, produce func(context.Context) ([]byte, error)) (string, error) {
	return s.GetOrBuild(ctx, desc, func(ctx context.Context, tmpPath string) error {
		data, err := produce(ctx)
		if err != nil {
			return err
		}
		return os.WriteFile(tmpPath, data, 0o644)
	})
}

func (s *Store) buildError(desc Description, err error) error {
	message := fmt.Sprintf("%s (%s)", desc.Label, desc.fileName())
	return services.Wrap(services.ErrCacheBuild, "artifact", "build", message, err)
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_ = os.RemoveAll(path)
	}
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// Entry describes one materialized artifact.
type Entry struct {
	Name       string    `json:"name"`
	Key        string    `json:"key"`
	Ext        string    `json:"ext"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Stats summarizes cache usage and the free space left on its filesystem.
type Stats struct {
	Root         string         `json:"root"`
	Entries      int            `json:"entries"`
	TotalBytes   int64          `json:"total_bytes"`
	FreeBytes    uint64         `json:"free_bytes"`
	TotalFSBytes uint64         `json:"total_fs_bytes"`
	FreeRatio    float64        `json:"free_ratio"`
	Extensions   map[string]int `json:"extensions"`
}

// List returns all artifacts, newest first. Lock files and in-flight temp
// files are skipped.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("artifact: list %s: %w", s.root, err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") || !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		key, ext := splitName(name)
		entries = append(entries, Entry{
			Name:       name,
			Key:        key,
			Ext:        ext,
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ModifiedAt.Equal(entries[j].ModifiedAt) {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
	})
	return entries, nil
}

// Stats scans the cache directory.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Root: s.root, Extensions: map[string]int{}}
	entries, err := s.List()
	if err != nil {
		return stats, err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Entries++
		stats.TotalBytes += e.SizeBytes
		stats.Extensions[e.Ext]++
	}
	if _, err := os.Stat(s.root); err != nil {
		return stats, nil
	}
	total, free, err := s.statfs(s.root)
	if err != nil {
		return stats, fmt.Errorf("artifact: statfs: %w", err)
	}
	stats.TotalFSBytes = total
	stats.FreeBytes = free
	if total > 0 {
		stats.FreeRatio = float64(free) / float64(total)
	}
	return stats, nil
}

// Remove deletes every artifact whose key starts with prefix and returns the
// removed entries. Dependents are not tracked; they rebuild only if their own
// file is removed too.
func (s *Store) Remove(prefix string) ([]Entry, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 4 {
		return nil, fmt.Errorf("artifact: remove: prefix %q too short (need at least 4 hex characters)", prefix)
	}
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	var removed []Entry
	for _, e := range entries {
		if !strings.HasPrefix(e.Key, prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, e.Name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("artifact: remove %s: %w", e.Name, err)
		}
		removed = append(removed, e)
		s.logger.Info("artifact removed", logging.String(logging.FieldArtifact, e.Name))
	}
	return removed, nil
}

func splitName(name string) (string, string) {
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		return name[:idx], name[idx:]
	}
	return name, ""
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
