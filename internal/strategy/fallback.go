package strategy

import (
	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// fallbackConfidence is the nominal confidence of the fallback. It is above
// zero because the fallback handles everything.
const fallbackConfidence = 0.01

// Fallback accepts any input, nil included, and always reports it as
// unparseable.
type Fallback struct{}

// NewFallback returns the terminal strategy.
func NewFallback() *Fallback { return &Fallback{} }

func (*Fallback) Descriptor() parse.Descriptor {
	return parse.Descriptor{
		Type:        parse.TypeFallback,
		Priority:    PriorityFallback,
		Description: "terminal strategy for unrecognized input",
	}
}

func (*Fallback) CanHandle(any, *parse.Context) bool { return true }

func (*Fallback) Confidence(any, *parse.Context) float64 { return fallbackConfidence }

func (*Fallback) Validate(input any, _ *parse.Context) parse.ValidationResult {
	return validation(input, parse.TypeFallback, fallbackConfidence,
		[]parse.Issue{{Code: parse.CodeFormat, Message: parse.Unparseable(parse.TypeFallback, input).Message}}, nil)
}

func (*Fallback) Normalize(input any, _ *parse.Context) parse.NormalizationResult {
	return parse.NormalizationResult{Normalized: input}
}

func (*Fallback) Convert(normalized any, _ *parse.Context) (canon.Timestamp, error) {
	return canon.Timestamp{}, parse.Unparseable(parse.TypeFallback, normalized)
}

// Parse always fails with the UNPARSEABLE code.
func (*Fallback) Parse(input any, ctx *parse.Context) parse.Result {
	err := parse.Unparseable(parse.TypeFallback, input)
	err.Elapsed = ctx.Elapsed()
	return parse.Result{
		Err:        err,
		Strategy:   parse.TypeFallback,
		Confidence: fallbackConfidence,
		Elapsed:    err.Elapsed,
		AttemptID:  ctx.AttemptID,
	}
}

func (*Fallback) CheckFastPath(any, *parse.Context) parse.FastPathResult {
	return parse.FastPathFailure(parse.TypeFallback, fallbackConfidence)
}

func (*Fallback) OptimizationHints(any, *parse.Context) parse.OptimizationHints {
	return parse.HintsFor(fallbackConfidence, nil)
}
