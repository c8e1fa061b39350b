package testsupport

import (
	"testing"

	"colourstream/internal/config"
	"colourstream/internal/store"
)

// MustOpenStore opens a SQLite store for the provided config and registers
// cleanup with the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}
