package publish

import (
	"context"
	"testing"

	"github.com/originform/publishctl/pkg/storage"
)

// newTestStore opens an in-memory sqlite store migrated with the full
// schema, the same "local" store shape used throughout the teacher's
// own cmd-layer tests, just pointed at ":memory:" with a shared cache
// so every connection in the pool sees the same database.
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New("sqlite", "file::memory:?cache=shared", false)
	if err != nil {
		t.Fatalf("couldn't create store: %v", err)
	}
	ctx := context.Background()
	if err := store.Start(ctx); err != nil {
		t.Fatalf("couldn't start store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("couldn't migrate store: %v", err)
	}
	return store
}

func strPtr(s string) *string { return &s }
