package coordinator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPhaseTransitions checks the transition table edge by edge.
func TestPhaseTransitions(t *testing.T) {
	allowed := map[Phase][]Phase{
		PhaseUninitialized: {PhaseInitialized, PhaseStopped},
		PhaseInitialized:   {PhaseLoaded, PhaseFailedToLoad, PhaseStopped},
		PhaseLoaded:        {PhaseLoaded, PhaseStopped},
		PhaseFailedToLoad:  {PhaseStopped},
		PhaseStopped:       {},
	}

	for _, from := range Phases() {
		for _, to := range Phases() {
			want := false
			for _, p := range allowed[from] {
				if p == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

// TestPhaseText verifies names and JSON encoding.
func TestPhaseText(t *testing.T) {
	assert.Equal(t, "failed-to-load", PhaseFailedToLoad.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())

	out, err := json.Marshal(State{Phase: PhaseLoaded})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"phase":"loaded"`)

	_, err = Phase(42).MarshalText()
	assert.Error(t, err)

	assert.Equal(t, []string{"uninitialized", "initialized", "loaded", "failed-to-load", "stopped"}, phaseLabels())
}
