package storage

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/t-botz/federation/internal/supergraph"
)

// ErrNotFound is returned when no record exists for a composition id
var ErrNotFound = errors.New("supergraph definition not found")

// Record is one committed supergraph definition
type Record struct {
	ID          supergraph.CompositionID `json:"id"`
	Definition  string                   `json:"-"`
	Sequence    uint64                   `json:"sequence"`
	CommittedAt time.Time                `json:"committedAt"`
}

// Store keeps committed definitions keyed by composition id
// All implementations must be thread-safe for concurrent access
type Store interface {
	// Get returns the record for id
	// Returns ErrNotFound if the id is unknown or was evicted
	Get(id supergraph.CompositionID) (Record, error)

	// Put stores rec, replacing any record with the same id
	Put(rec Record) error

	// Delete removes the record for id
	// No error if the id doesn't exist
	Delete(id supergraph.CompositionID) error

	// List returns every record ordered by sequence, oldest first
	List() []Record

	// Stats returns storage statistics
	Stats() StoreStats
}

// StoreStats contains statistics about the store
type StoreStats struct {
	Records int // Number of stored definitions
	Bytes   int // Total size of all definitions in bytes
	Evicted int // Records dropped because the limit was reached
}

// MemoryStore implements Store in memory, keeping at most limit records
// Uses sync.RWMutex for thread-safe concurrent access
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[supergraph.CompositionID]Record
	limit   int
	evicted int
}

// NewMemoryStore creates a store holding at most limit records
// A limit <= 0 means unbounded
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		data:  make(map[supergraph.CompositionID]Record),
		limit: limit,
	}
}

// Get retrieves a record by composition id
func (m *MemoryStore) Get(id supergraph.CompositionID) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.data[id]
	if !exists {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Put stores rec and evicts the oldest records beyond the limit
func (m *MemoryStore) Put(rec Record) error {
	if rec.ID == "" {
		rec.ID = supergraph.Identify(rec.Definition)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[rec.ID] = rec
	if m.limit <= 0 || len(m.data) <= m.limit {
		return nil
	}

	for _, old := range m.ordered()[:len(m.data)-m.limit] {
		delete(m.data, old.ID)
		m.evicted++
	}
	return nil
}

// Delete removes a record
// No error if the id doesn't exist (idempotent)
func (m *MemoryStore) Delete(id supergraph.CompositionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, id)
	return nil
}

// List returns all records, oldest first
func (m *MemoryStore) List() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.ordered()
}

// Stats returns storage statistics
func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, rec := range m.data {
		total += len(rec.Definition)
	}
	return StoreStats{
		Records: len(m.data),
		Bytes:   total,
		Evicted: m.evicted,
	}
}

// ordered must be called with mu held
func (m *MemoryStore) ordered() []Record {
	out := make([]Record, 0, len(m.data))
	for _, rec := range m.data {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b Record) int {
		switch {
		case a.Sequence < b.Sequence:
			return -1
		case a.Sequence > b.Sequence:
			return 1
		default:
			return a.CommittedAt.Compare(b.CommittedAt)
		}
	})
	return out
}
