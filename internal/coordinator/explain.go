package coordinator

import (
	"github.com/roach88/atemporal/internal/cachekey"
	"github.com/roach88/atemporal/internal/parse"
)

// Explanation describes how the coordinator would dispatch an input,
// without running the full pipeline or touching the memo.
type Explanation struct {
	Kind       parse.Kind              `json:"kind"`
	Options    parse.Options           `json:"options"`
	Candidates []Candidate             `json:"candidates"`
	Selected   parse.Type              `json:"selected"`
	FastPath   bool                    `json:"fastPath"`
	Hints      parse.OptimizationHints `json:"hints"`
	// CacheKey is empty when the input cannot be keyed.
	CacheKey string `json:"cacheKey,omitempty"`
}

// Explain ranks the candidates for input and reports whether the selected
// one would take its fast path.
func (c *Coordinator) Explain(input any, opts ...parse.Option) Explanation {
	options := c.Options(opts...)
	pctx := parse.NewContext(input, options, c.clock, c.ids.Generate())

	ex := Explanation{
		Kind:       pctx.Kind,
		Options:    options,
		Candidates: c.registry.rank(input, pctx),
	}
	if key, err := cachekey.ForParse(input, options.TimeZone, string(options.Calendar), options.Strict); err == nil {
		ex.CacheKey = cachekey.Bound(key)
	}

	if len(ex.Candidates) == 0 {
		fb := c.registry.fallback
		ex.Selected = fb.Descriptor().Type
		ex.Hints = fb.OptimizationHints(input, pctx)
		return ex
	}

	best := ex.Candidates[0]
	ex.Selected = best.Descriptor.Type
	fp := fastPath(best.strategy, input, pctx)
	ex.FastPath = fp.Accepted
	func() {
		defer func() { _ = recover() }()
		ex.Hints = best.strategy.OptimizationHints(input, pctx)
	}()
	return ex
}
