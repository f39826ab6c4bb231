package strategy

import (
	"reflect"

	"github.com/roach88/atemporal/internal/parse"
)

// Priorities break confidence ties between strategies; higher wins.
const (
	PriorityCanonical = 100
	PriorityNative    = 90
	PriorityExternal  = 80
	PriorityRecord    = 70
	PriorityArray     = 60
	PriorityNumeric   = 50
	PriorityText      = 40
	PriorityFallback  = 0
)

// Defaults returns a fresh instance of every built-in strategy except the
// fallback, in registration order.
func Defaults() []parse.Strategy {
	return []parse.Strategy{
		NewCanonical(),
		NewNative(),
		NewExternal(),
		NewRecord(),
		NewArray(),
		NewNumeric(),
		NewText(),
	}
}

// confidenceOf returns s's confidence for input, or 0 when s cannot handle it.
func confidenceOf(s parse.Strategy, input any, ctx *parse.Context) float64 {
	if !s.CanHandle(input, ctx) {
		return 0
	}
	return s.Confidence(input, ctx)
}

func validation(input any, typ parse.Type, conf float64, errs, warns []parse.Issue) parse.ValidationResult {
	return parse.ValidationResult{
		Valid:      len(errs) == 0,
		Input:      input,
		Suggested:  typ,
		Confidence: conf,
		Errors:     errs,
		Warnings:   warns,
	}
}

// isNilPointer reports whether v holds a typed nil pointer, on which calling
// a method could panic.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
