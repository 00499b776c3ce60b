package coordinator

import "fmt"

// Phase is the lifecycle phase of the active supergraph.
type Phase int

const (
	// PhaseUninitialized means no source is configured yet.
	PhaseUninitialized Phase = iota
	// PhaseInitialized means a source is configured and Load has not settled.
	// It covers the entire duration of an in-flight fetch.
	PhaseInitialized
	// PhaseLoaded means a composed supergraph is being served.
	PhaseLoaded
	// PhaseFailedToLoad means the initial load failed. Load does not retry.
	PhaseFailedToLoad
	// PhaseStopped is terminal.
	PhaseStopped
)

var phaseNames = [...]string{
	PhaseUninitialized: "uninitialized",
	PhaseInitialized:   "initialized",
	PhaseLoaded:        "loaded",
	PhaseFailedToLoad:  "failed-to-load",
	PhaseStopped:       "stopped",
}

// transitions lists the legal next phases of every phase.
var transitions = map[Phase][]Phase{
	PhaseUninitialized: {PhaseInitialized, PhaseStopped},
	PhaseInitialized:   {PhaseLoaded, PhaseFailedToLoad, PhaseStopped},
	PhaseLoaded:        {PhaseLoaded, PhaseStopped},
	PhaseFailedToLoad:  {PhaseStopped},
	PhaseStopped:       nil,
}

// Phases returns every phase in lifecycle order.
func Phases() []Phase {
	return []Phase{PhaseUninitialized, PhaseInitialized, PhaseLoaded, PhaseFailedToLoad, PhaseStopped}
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

// CanTransition reports whether next may follow p.
func (p Phase) CanTransition(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

func phaseLabels() []string {
	out := make([]string, 0, len(phaseNames))
	for _, p := range Phases() {
		out = append(out, p.String())
	}
	return out
}
