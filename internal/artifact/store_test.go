package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"talkvid/internal/artifact"
	"talkvid/internal/services"
)

func newStore(t *testing.T) *artifact.Store {
	t.Helper()
	return artifact.Open(filepath.Join(t.TempDir(), "cache"), 0, nil)
}

func writeBuilder(content string, calls *int) artifact.Builder {
	return func(_ context.Context, tmp string) error {
		*calls++
		return os.WriteFile(tmp, []byte(content), 0o644)
	}
}

func TestGetOrBuildBuildsOnce(t *testing.T) {
	store := newStore(t)
	desc := artifact.Description{Key: artifact.New("test").String("one").Sum(), Ext: ".txt", Label: "one"}
	calls := 0

	first, err := store.GetOrBuild(context.Background(), desc, writeBuilder("hello", &calls))
	if err != nil {
		t.Fatalf("GetOrBuild: %v", err)
	}
	second, err := store.GetOrBuild(context.Background(), desc, writeBuilder("other", &calls))
	if err != nil {
		t.Fatalf("GetOrBuild: %v", err)
	}
	if first != second {
		t.Fatalf("expected same path, got %q and %q", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected builder invoked once, got %d", calls)
	}
	if store.Builds() != 1 || store.Hits() != 1 {
		t.Fatalf("unexpected counters builds=%d hits=%d", store.Builds(), store.Hits())
	}
	if filepath.Base(first) != desc.Key.String()+".txt" {
		t.Fatalf("unexpected file name %q", first)
	}
	data, _ := os.ReadFile(first)
	if string(data) != "hello" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestGetOrBuildTempPathKeepsExtension(t *testing.T) {
	store := newStore(t)
	desc := artifact.Description{Key: artifact.New("test").String("ext").Sum(), Ext: "wav"}
	_, err := store.GetOrBuild(context.Background(), desc, func(_ context.Context, tmp string) error {
		if !strings.HasSuffix(tmp, ".wav") {
			t.Fatalf("temp path %q should end in .wav", tmp)
		}
		if filepath.Dir(tmp) != store.Root() {
			t.Fatalf("temp path %q should be inside the cache root", tmp)
		}
		return os.WriteFile(tmp, nil, 0o644)
	})
	if err != nil {
		t.Fatalf("GetOrBuild: %v", err)
	}
}

func TestFailedBuildLeavesNoFile(t *testing.T) {
	store := newStore(t)
	desc := artifact.Description{Key: artifact.New("test").String("fail").Sum(), Ext: ".mkv", Label: "broken render"}
	boom := errors.New("ffmpeg crashed")

	_, err := store.GetOrBuild(context.Background(), desc, func(_ context.Context, tmp string) error {
		if err := os.WriteFile(tmp, []byte("partial"), 0o644); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, services.ErrCacheBuild) || !errors.Is(err, boom) {
		t.Fatalf("expected cache build failure wrapping cause, got %v", err)
	}
	if !strings.Contains(err.Error(), desc.Key.String()) || !strings.Contains(err.Error(), "broken render") {
		t.Fatalf("error should name key and label: %v", err)
	}
	if store.Exists(desc.Key, desc.Ext) {
		t.Fatal("failed build must not leave the final file")
	}
	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatalf("read cache root: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Fatalf("unexpected leftover %q", e.Name())
		}
	}
}

func TestBuilderWithoutOutputFails(t *testing.T) {
	store := newStore(t)
	desc := artifact.Description{Key: artifact.New("test").String("empty").Sum(), Ext: ".png"}
	_, err := store.GetOrBuild(context.Background(), desc, func(context.Context, string) error { return nil })
	if !errors.Is(err, services.ErrCacheBuild) {
		t.Fatalf("expected cache build failure, got %v", err)
	}
}

func TestConcurrentBuildersSerialize(t *testing.T) {
	store := newStore(t)
	desc := artifact.Description{Key: artifact.New("test").String("race").Sum(), Ext: ".bin"}
	var mu sync.Mutex
	calls := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.GetOrBuild(context.Background(), desc, func(_ context.Context, tmp string) error {
				mu.Lock()
				calls++
				mu.Unlock()
				return os.WriteFile(tmp, []byte("x"), 0o644)
			})
			if err != nil {
				t.Errorf("GetOrBuild: %v", err)
			}
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Fatalf("expected exactly one build, got %d", calls)
	}
}

func TestListStatsRemove(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	calls := 0
	keys := []artifact.Key{
		artifact.New("test").String("a").Sum(),
		artifact.New("test").String("b").Sum(),
	}
	for _, key := range keys {
		if _, err := store.GetOrBuild(ctx, artifact.Description{Key: key, Ext: ".png"}, writeBuilder("1234", &calls)); err != nil {
			t.Fatalf("GetOrBuild: %v", err)
		}
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 2 || stats.TotalBytes != 8 || stats.Extensions[".png"] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if _, err := store.Remove("ab"); err == nil {
		t.Fatal("expected short prefix to be rejected")
	}
	removed, err := store.Remove(keys[0].String()[:8])
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(removed) != 1 || removed[0].Key != keys[0].String() {
		t.Fatalf("unexpected removal %+v", removed)
	}
	if store.Exists(keys[0], ".png") || !store.Exists(keys[1], ".png") {
		t.Fatal("remove affected the wrong entries")
	}
}

func TestListMissingRoot(t *testing.T) {
	store := artifact.Open(filepath.Join(t.TempDir(), "absent"), 0, nil)
	entries, err := store.List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty list, got %v %v", entries, err)
	}
}
