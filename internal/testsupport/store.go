package testsupport

import (
	"context"
	"testing"

	"gamearbiter/internal/catalog"
	"gamearbiter/internal/config"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.Catalog.DBPath)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Seed imports entries into the store and fails the test on error.
func Seed(t testing.TB, store *catalog.Store, entries ...catalog.Entry) {
	t.Helper()

	if _, err := store.Import(context.Background(), entries); err != nil {
		t.Fatalf("store.Import: %v", err)
	}
}
