package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/t-botz/federation/internal/supergraph"
)

func record(seq uint64, definition string) Record {
	return Record{
		ID:          supergraph.Identify(definition),
		Definition:  definition,
		Sequence:    seq,
		CommittedAt: time.Now(),
	}
}

// TestMemoryStore tests the in-memory definition history
func TestMemoryStore(t *testing.T) {
	t.Run("new store is empty", func(t *testing.T) {
		store := NewMemoryStore(0)

		if got := store.List(); len(got) != 0 {
			t.Errorf("Expected empty store, got %d records", len(got))
		}

		_, err := store.Get("nonexistent")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put and get", func(t *testing.T) {
		store := NewMemoryStore(0)
		rec := record(1, "type Query { a: String }")

		if err := store.Put(rec); err != nil {
			t.Fatalf("Failed to put record: %v", err)
		}

		got, err := store.Get(rec.ID)
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if got.Definition != rec.Definition || got.Sequence != 1 {
			t.Errorf("Unexpected record %+v", got)
		}
	})

	t.Run("id derived from definition", func(t *testing.T) {
		store := NewMemoryStore(0)
		def := "type Query { b: String }"

		if err := store.Put(Record{Definition: def, Sequence: 1}); err != nil {
			t.Fatalf("Failed to put record: %v", err)
		}
		if _, err := store.Get(supergraph.Identify(def)); err != nil {
			t.Errorf("Expected record under derived id, got %v", err)
		}
	})

	t.Run("re-put moves record to newest", func(t *testing.T) {
		store := NewMemoryStore(0)
		a := record(1, "a")
		b := record(2, "b")
		_ = store.Put(a)
		_ = store.Put(b)

		a.Sequence = 3
		_ = store.Put(a)

		list := store.List()
		if len(list) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(list))
		}
		if list[0].ID != b.ID || list[1].ID != a.ID {
			t.Errorf("Expected order [b a], got [%s %s]", list[0].ID.Short(), list[1].ID.Short())
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := NewMemoryStore(0)
		rec := record(1, "a")
		_ = store.Put(rec)

		if err := store.Delete(rec.ID); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if _, err := store.Get(rec.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := store.Delete("nonexistent"); err != nil {
			t.Errorf("Delete of unknown id should not error, got %v", err)
		}
	})

	t.Run("evicts oldest beyond limit", func(t *testing.T) {
		store := NewMemoryStore(3)
		for i := 1; i <= 5; i++ {
			_ = store.Put(record(uint64(i), fmt.Sprintf("def-%d", i)))
		}

		list := store.List()
		if len(list) != 3 {
			t.Fatalf("Expected 3 records, got %d", len(list))
		}
		for i, rec := range list {
			if want := uint64(i + 3); rec.Sequence != want {
				t.Errorf("record %d: sequence = %d, want %d", i, rec.Sequence, want)
			}
		}
		if _, err := store.Get(supergraph.Identify("def-1")); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected def-1 evicted, got %v", err)
		}

		stats := store.Stats()
		if stats.Records != 3 || stats.Evicted != 2 {
			t.Errorf("Unexpected stats %+v", stats)
		}
		if stats.Bytes != len("def-3")+len("def-4")+len("def-5") {
			t.Errorf("Bytes = %d", stats.Bytes)
		}
	})
}

// TestMemoryStoreConcurrent tests concurrent writers and readers
func TestMemoryStoreConcurrent(t *testing.T) {
	store := NewMemoryStore(50)

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = store.Put(record(uint64(w*100+i), fmt.Sprintf("w%d-%d", w, i)))
				_ = store.List()
				_ = store.Stats()
			}
		}(w)
	}
	wg.Wait()

	if got := store.Stats().Records; got != 50 {
		t.Errorf("Expected 50 records after concurrent puts, got %d", got)
	}
}
