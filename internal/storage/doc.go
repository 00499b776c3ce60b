// Package storage keeps the history of supergraph definitions the gateway has
// served, so operators can see what was active and fetch an older document
// after a cutover.
//
// # Overview
//
// Every time the coordinator commits a definition (the initial load or an
// applied update) it stores a Record keyed by the definition's CompositionID:
//
//	┌─────────────────────────────────────┐
//	│           Coordinator               │
//	│   load / update commit              │
//	└─────────────────────────────────────┘
//	                 │ Put(Record)
//	                 ▼
//	┌─────────────────────────────────────┐
//	│          Store interface            │
//	│  Get / Put / Delete / List / Stats  │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│    MemoryStore (bounded, RWMutex)   │
//	└─────────────────────────────────────┘
//
// # Ordering and Eviction
//
// Records carry the coordinator's commit sequence number. List returns records
// oldest first, and MemoryStore evicts the lowest sequences once more than
// limit records are held. Putting a definition whose id is already stored
// replaces the record, which moves it to the newest position when the same
// document is re-applied after a different one.
//
// # Thread Safety
//
// All Store implementations must be safe for concurrent use. MemoryStore
// guards its map with a sync.RWMutex and returns Records by value.
//
// # Usage Example
//
//	history := storage.NewMemoryStore(20)
//	_ = history.Put(storage.Record{ID: id, Definition: sdl, Sequence: 1, CommittedAt: time.Now()})
//
//	rec, err := history.Get(id)
//	if errors.Is(err, storage.ErrNotFound) {
//	    // evicted or never committed
//	}
package storage
