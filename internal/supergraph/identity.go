package supergraph

import (
	"crypto/sha256"
	"encoding/hex"
)

// CompositionID is the hex encoded SHA-256 fingerprint of a definition text.
type CompositionID string

// Identify returns the CompositionID of definition.
// It is deterministic and accepts any text, including malformed SDL.
func Identify(definition string) CompositionID {
	sum := sha256.Sum256([]byte(definition))
	return CompositionID(hex.EncodeToString(sum[:]))
}

// Short returns the first 12 characters of the id for log lines.
func (id CompositionID) Short() string {
	if len(id) <= 12 {
		return string(id)
	}
	return string(id[:12])
}

func (id CompositionID) String() string {
	return string(id)
}
