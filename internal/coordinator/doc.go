// Package coordinator owns the lifecycle of the supergraph a gateway serves:
// when a definition becomes authoritative, how it is replaced while traffic
// flows, and how it is torn down.
//
// # Overview
//
// The Coordinator pulls the initial definition from a source.Source, has it
// composed by a supergraph.Composer, and starts serving it. The source is
// handed a pair of channels (source.Channels) it may keep for as long as it
// likes:
//
//   - Push replaces the active definition in place.
//   - Probe runs the health check gate on a candidate without changing anything.
//
// A producer is expected to Probe a candidate and Push it only when the probe
// succeeds. The coordinator itself never health checks a pushed definition.
//
// # Lifecycle
//
//	                 Configure              fetch ok + compose ok
//	uninitialized ─────────────▶ initialized ─────────────────────▶ loaded ◀─┐
//	      │                          │                                │  │   │ Push
//	      │                          │ fetch or compose error         │  └───┘
//	      │                          ▼                                │
//	      │                    failed-to-load                         │
//	      │                          │                                │
//	      └──────────────────────────┴──────────── Stop ──────────────┴────▶ stopped
//
// The transition table in phase.go is the single source of truth; an illegal
// transition panics. The active schema exists only in the loaded phase.
//
// # Load
//
// Load is single-shot. The source is fetched once; concurrent and later calls
// wait for and return that outcome. A fetch error is returned as a
// *SourceError whose message is the producer's, unchanged, and a composition
// error as a *supergraph.CompositionError. Both are logged at error level and
// leave the coordinator in failed-to-load, which Load never retries.
//
// If Stop wins the race against an in-flight fetch, the fetched definition is
// discarded, its cleanup hook runs immediately and Load returns ErrStopped.
//
// # Updates
//
// Each Push takes a sequence number on arrival. Composition happens outside
// the lock so a slow push never blocks readers, and a push commits only if no
// newer push has committed in the meantime:
//
//	push #2 ──compose (slow)─────────────────────▶ ErrStaleUpdate
//	push #3 ──compose──▶ commit (applied = 3)
//
// A push identical to the active definition is acknowledged without
// recomposition and still supersedes older pushes in flight. A push that fails
// composition is returned to the producer and the active schema keeps serving.
//
// # Stop
//
// Stop is idempotent and never fails. It runs the cleanup hook returned with
// the loaded definition exactly once; a failing or panicking hook is logged
// as a *CleanupError.
//
// # Observability
//
// Every committed definition is recorded in a storage.Store keyed by its
// CompositionID. Phases, loads and updates are exported through
// internal/metrics, and Load, Push and Check run inside OpenTelemetry spans.
package coordinator
