package id

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique identifiers
type Generator func() string

// NewUUID generates a new UUID v4
func NewUUID() string {
	return uuid.New().String()
}

// Sequential returns a generator yielding prefix-1, prefix-2, ...
// Intended for tests that need stable identifiers.
func Sequential(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// OrDefault returns g, or NewUUID when g is nil
func OrDefault(g Generator) Generator {
	if g == nil {
		return NewUUID
	}
	return g
}
