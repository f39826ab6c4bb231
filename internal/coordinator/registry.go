package coordinator

import (
	"errors"
	"fmt"

	"github.com/roach88/atemporal/internal/parse"
	"github.com/roach88/atemporal/internal/strategy"
)

var (
	// ErrDuplicateType is returned when a strategy type is registered twice.
	ErrDuplicateType = errors.New("coordinator: duplicate strategy type")
	// ErrNilStrategy is returned when registering a nil strategy.
	ErrNilStrategy = errors.New("coordinator: nil strategy")
)

// Registry is an ordered set of strategies and one fallback.
//
// INVARIANTS:
//   - registration order never changes; it is the final dispatch tie-break
//   - strategy types are unique, fallback included
type Registry struct {
	strategies []parse.Strategy
	types      map[parse.Type]bool
	fallback   parse.Strategy
}

// NewRegistry creates an empty registry around fallback. A nil fallback
// selects strategy.NewFallback.
func NewRegistry(fallback parse.Strategy) *Registry {
	if fallback == nil {
		fallback = strategy.NewFallback()
	}
	return &Registry{
		types:    map[parse.Type]bool{fallback.Descriptor().Type: true},
		fallback: fallback,
	}
}

// DefaultRegistry returns a registry holding the built-in strategies in
// priority order.
func DefaultRegistry() *Registry {
	r := NewRegistry(nil)
	for _, s := range strategy.Defaults() {
		r.MustRegister(s)
	}
	return r
}

// Register appends s after every previously registered strategy.
func (r *Registry) Register(s parse.Strategy) error {
	if s == nil {
		return ErrNilStrategy
	}
	typ := s.Descriptor().Type
	if r.types[typ] {
		return fmt.Errorf("%w: %s", ErrDuplicateType, typ)
	}
	r.types[typ] = true
	r.strategies = append(r.strategies, s)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(s parse.Strategy) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Descriptors returns the registered descriptors in registration order,
// fallback last.
func (r *Registry) Descriptors() []parse.Descriptor {
	out := make([]parse.Descriptor, 0, len(r.strategies)+1)
	for _, s := range r.strategies {
		out = append(out, s.Descriptor())
	}
	return append(out, r.fallback.Descriptor())
}

// Len returns the number of registered strategies, fallback excluded.
func (r *Registry) Len() int { return len(r.strategies) }

// Fallback returns the terminal strategy.
func (r *Registry) Fallback() parse.Strategy { return r.fallback }
