package credentials

import (
	"context"
	"testing"

	"github.com/dokzlo13/hueadapter/internal/db"
)

func TestStores(t *testing.T) {
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	stores := map[string]Store{
		"sqlite": NewSQLiteStore(database.DB),
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.Load(ctx, "001788fffe")
			if err != nil || got != "" {
				t.Fatalf("Load() on empty store = %q, %v", got, err)
			}

			if err := store.Save(ctx, "001788fffe", "first"); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if err := store.Save(ctx, "001788fffe", "second"); err != nil {
				t.Fatalf("Save() overwrite error = %v", err)
			}
			if err := store.Save(ctx, "other", "third"); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err = store.Load(ctx, "001788fffe")
			if err != nil || got != "second" {
				t.Errorf("Load() = %q, %v, want second", got, err)
			}
			got, _ = store.Load(ctx, "other")
			if got != "third" {
				t.Errorf("Load(other) = %q", got)
			}
		})
	}
}
