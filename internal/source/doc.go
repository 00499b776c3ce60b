// Package source adapts the ways a gateway can be told about its supergraph
// into the single pull protocol the coordinator drives.
//
// # Overview
//
// The coordinator calls Source.Fetch exactly once per load and hands it a
// Channels value:
//
//	┌──────────────┐  Fetch(ctx, ch)   ┌──────────────────┐
//	│ Coordinator  │ ────────────────▶ │      Source      │
//	│              │ ◀──────────────── │ static / dynamic │
//	│              │  Result{def, fn}  │                  │
//	│              │                   │  later, any time │
//	│              │ ◀──── ch.Probe ── │  (dynamic only)  │
//	│              │ ◀──── ch.Push ─── │                  │
//	└──────────────┘                   └──────────────────┘
//
// Static sources return a definition known at configuration time and never
// keep the channels. Dynamic sources (a ProducerFunc or one of the producers
// below) may retain the channels and push replacements for as long as the
// gateway runs. A dynamic source may also return a CleanupFunc, which the
// coordinator runs once when it stops.
//
// # Producers
//
// Three producers cover the common deployments:
//
//   - FileWatcher: a file on disk, watched with fsnotify
//   - Poller: an HTTP registry returning {"id", "supergraphSdl"}, polled on an interval
//   - KVWatcher: a key in a NATS JetStream key-value bucket
//
// With WithHealthCheck(true), every candidate goes through Channels.Probe
// before Channels.Push, so a definition that references unreachable or
// incompatible services never becomes active. Candidates identical to the
// last delivered text are skipped.
//
// # Errors
//
// Fetch errors are returned exactly as produced (os, fsnotify, transport or
// jetstream errors); the coordinator reports their message verbatim.
package source
