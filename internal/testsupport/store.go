package testsupport

import (
	"testing"

	"talkvid/internal/artifact"
	"talkvid/internal/config"
)

// MustOpenStore opens the artifact store described by cfg.
func MustOpenStore(t testing.TB, cfg *config.Config) *artifact.Store {
	t.Helper()

	store, err := artifact.NewStore(cfg, nil)
	if err != nil {
		t.Fatalf("artifact.NewStore: %v", err)
	}
	return store
}
