package parse

import (
	"fmt"

	"github.com/roach88/atemporal/internal/canon"
)

// Strategy classifies and converts one family of input shapes.
//
// The coordinator calls the methods in declaration order. CanHandle must be
// cheap and total. Confidence returns 0 exactly when CanHandle is false.
// CheckFastPath must decline rather than panic.
type Strategy interface {
	Descriptor() Descriptor
	CanHandle(input any, ctx *Context) bool
	Confidence(input any, ctx *Context) float64
	Validate(input any, ctx *Context) ValidationResult
	Normalize(input any, ctx *Context) NormalizationResult
	Convert(normalized any, ctx *Context) (canon.Timestamp, error)
	Parse(input any, ctx *Context) Result
	CheckFastPath(input any, ctx *Context) FastPathResult
	OptimizationHints(input any, ctx *Context) OptimizationHints
}

// Wrapper is implemented by previously constructed façade values that carry
// a canonical timestamp. The boolean is false for an invalid wrapper.
type Wrapper interface {
	Canonical() (canon.Timestamp, bool)
}

// ExternalTimestamp is a seconds/nanoseconds pair as produced by common
// wire formats.
type ExternalTimestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

// Run executes validate, normalize and convert for s, capturing elapsed time
// and turning every failure, including panics, into a typed *Error tagged
// with the strategy.
func Run(s Strategy, input any, ctx *Context) (res Result) {
	typ := s.Descriptor().Type
	res = Result{Strategy: typ, AttemptID: ctx.AttemptID}

	defer func() {
		if r := recover(); r != nil {
			e := NewError(typ, ClassConversion, input, fmt.Sprintf("panic during %s parse: %v", typ, r))
			if err, ok := r.(error); ok {
				e.Err = err
			}
			res.Timestamp = nil
			res.Err = e
		}
		res.Elapsed = ctx.Elapsed()
		if res.Err != nil {
			res.Err.Elapsed = res.Elapsed
		}
	}()

	v := s.Validate(input, ctx)
	res.Confidence = v.Confidence
	res.Warnings = v.Warnings
	if !v.Valid {
		res.Err = ValidationFailure(typ, input, v.Errors)
		return res
	}

	n := s.Normalize(input, ctx)
	res.Transforms = n.Transforms

	ts, err := s.Convert(n.Normalized, ctx)
	if err != nil {
		res.Err = ConversionFailure(typ, input, err)
		return res
	}
	res.Timestamp = &ts
	return res
}

// FastPathFailure returns a declined fast path with confidence degraded
// from base.
func FastPathFailure(typ Type, base float64) FastPathResult {
	return FastPathResult{Strategy: typ, Confidence: base * 0.5}
}

// FastPathAccept wraps ts as an accepted fast path.
func FastPathAccept(typ Type, ts canon.Timestamp, confidence float64) FastPathResult {
	return FastPathResult{Accepted: true, Timestamp: &ts, Strategy: typ, Confidence: confidence}
}

// SafeFastPath runs fn, converting a panic into a declined result.
func SafeFastPath(typ Type, base float64, fn func() FastPathResult) (res FastPathResult) {
	defer func() {
		if recover() != nil {
			res = FastPathFailure(typ, base)
		}
	}()
	return fn()
}
