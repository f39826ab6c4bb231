package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same attempt ID every time.
//
// This enables golden snapshot comparison of parse results.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed attempt ID generator.
// If id is empty, Generate() returns "test-attempt".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-attempt"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed attempt ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialIDGenerator returns prefix-1, prefix-2, ...
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialIDGenerator creates a generator whose first ID is prefix-1.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "attempt"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset restarts the sequence.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
