package coordinator

import (
	"cmp"
	"math"
	"slices"

	"github.com/roach88/atemporal/internal/parse"
)

// Candidate is a strategy that accepted the input, with its ranking keys.
type Candidate struct {
	Descriptor parse.Descriptor `json:"descriptor"`
	Confidence float64          `json:"confidence"`
	// Order is the registration index.
	Order int `json:"order"`

	strategy parse.Strategy
}

// compareCandidates orders by confidence, then priority (both descending),
// then registration order.
func compareCandidates(a, b Candidate) int {
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Descriptor.Priority, a.Descriptor.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.Order, b.Order)
}

// accepts calls CanHandle and Confidence, treating a panic or a
// non-positive confidence as refusal.
func accepts(s parse.Strategy, input any, ctx *parse.Context) (conf float64, ok bool) {
	defer func() {
		if recover() != nil {
			conf, ok = 0, false
		}
	}()
	if !s.CanHandle(input, ctx) {
		return 0, false
	}
	conf = s.Confidence(input, ctx)
	if conf <= 0 || math.IsNaN(conf) {
		return 0, false
	}
	return min(conf, 1), true
}

// rank returns the strategies accepting input, best first.
func (r *Registry) rank(input any, ctx *parse.Context) []Candidate {
	var out []Candidate
	for i, s := range r.strategies {
		conf, ok := accepts(s, input, ctx)
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Descriptor: s.Descriptor(),
			Confidence: conf,
			Order:      i,
			strategy:   s,
		})
	}
	slices.SortFunc(out, compareCandidates)
	return out
}
