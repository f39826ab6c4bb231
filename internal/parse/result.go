package parse

import (
	"strings"
	"time"

	"github.com/roach88/atemporal/internal/canon"
)

// Type identifies a strategy.
type Type string

// Built-in strategy types.
const (
	TypeCanonical Type = "canonical"
	TypeNative    Type = "native"
	TypeExternal  Type = "external"
	TypeRecord    Type = "record"
	TypeArray     Type = "array"
	TypeNumeric   Type = "numeric"
	TypeText      Type = "text"
	TypeFallback  Type = "fallback"
)

// Descriptor is the static registration metadata of a strategy.
// Priority breaks confidence ties; higher wins.
type Descriptor struct {
	Type        Type   `json:"type"`
	Priority    int    `json:"priority"`
	Description string `json:"description"`
}

// ValidationResult is the outcome of the Validate stage. Errors block
// conversion; warnings never do.
type ValidationResult struct {
	Valid      bool
	Input      any
	Suggested  Type
	Confidence float64
	Errors     []Issue
	Warnings   []Issue
}

// NormalizationResult is the complete intermediate record produced by
// Normalize, with every corrective action logged in order.
type NormalizationResult struct {
	Normalized any
	Transforms []string
	Metadata   map[string]any
}

// FastPathResult is the outcome of CheckFastPath. Timestamp is set only
// when Accepted.
type FastPathResult struct {
	Accepted   bool
	Timestamp  *canon.Timestamp
	Strategy   Type
	Confidence float64
}

// Cost estimates the work a full parse needs.
type Cost string

const (
	CostLow    Cost = "low"
	CostMedium Cost = "medium"
	CostHigh   Cost = "high"
)

// CacheableConfidence is the confidence below which results are not memoized.
const CacheableConfidence = 0.8

// OptimizationHints advises the coordinator on cost and cacheability.
type OptimizationHints struct {
	Cost      Cost     `json:"cost"`
	Cacheable bool     `json:"cacheable"`
	Warnings  []string `json:"warnings,omitempty"`
}

// HintsFor derives hints from a confidence and the transforms a normalization
// would apply. Defaults alone are medium cost; rounding or clamping is high.
func HintsFor(confidence float64, transforms []string, warnings ...string) OptimizationHints {
	h := OptimizationHints{
		Cost:      CostLow,
		Cacheable: confidence >= CacheableConfidence,
		Warnings:  append([]string(nil), warnings...),
	}
	var rounded, clamped bool
	for _, t := range transforms {
		switch {
		case strings.HasPrefix(t, TransformRound):
			rounded = true
		case strings.HasPrefix(t, TransformClamp), strings.HasPrefix(t, TransformTruncate):
			clamped = true
		case strings.HasPrefix(t, TransformDefault):
			if h.Cost == CostLow {
				h.Cost = CostMedium
			}
		}
	}
	if rounded {
		h.Warnings = append(h.Warnings, "requires rounding of non-integral components")
	}
	if clamped {
		h.Warnings = append(h.Warnings, "requires clamping of out-of-range components")
	}
	if rounded || clamped {
		h.Cost = CostHigh
	}
	if !h.Cacheable {
		h.Warnings = append(h.Warnings, "low confidence result should not be cached")
	}
	return h
}

// Result is the outcome of a parse attempt. Exactly one of Timestamp and
// Err is set.
type Result struct {
	Timestamp  *canon.Timestamp `json:"timestamp,omitempty"`
	Err        *Error           `json:"-"`
	Strategy   Type             `json:"strategy"`
	Confidence float64          `json:"confidence"`
	Elapsed    time.Duration    `json:"elapsed"`
	Warnings   []Issue          `json:"warnings,omitempty"`
	Transforms []string         `json:"transforms,omitempty"`
	FastPath   bool             `json:"fast_path"`
	Cached     bool             `json:"cached"`
	AttemptID  string           `json:"attempt_id,omitempty"`
}

// OK reports whether the attempt produced a timestamp.
func (r Result) OK() bool {
	return r.Timestamp != nil && r.Err == nil
}

// AsError returns Err as an error interface, nil on success.
func (r Result) AsError() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}
