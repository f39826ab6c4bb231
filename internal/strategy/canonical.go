package strategy

import (
	"fmt"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// Canonical passes already-canonical values through, re-resolving the zone
// and calendar against the options.
type Canonical struct{}

// NewCanonical returns the pass-through strategy.
func NewCanonical() *Canonical { return &Canonical{} }

func (*Canonical) Descriptor() parse.Descriptor {
	return parse.Descriptor{
		Type:        parse.TypeCanonical,
		Priority:    PriorityCanonical,
		Description: "canon.Timestamp, canon.DateTime and wrapper values",
	}
}

// canonicalValue unwraps input to a Timestamp or DateTime. For an invalid
// wrapper it returns ok with neither set.
func canonicalValue(input any) (ts *canon.Timestamp, dt *canon.DateTime, ok bool) {
	switch v := input.(type) {
	case canon.Timestamp:
		if v.IsZero() {
			return nil, nil, false
		}
		return &v, nil, true
	case *canon.Timestamp:
		if v == nil || v.IsZero() {
			return nil, nil, false
		}
		return v, nil, true
	case canon.DateTime:
		return nil, &v, true
	case *canon.DateTime:
		if v == nil {
			return nil, nil, false
		}
		return nil, v, true
	case parse.Wrapper:
		if isNilPointer(v) {
			return nil, nil, false
		}
		if t, valid := unwrap(v); valid && !t.IsZero() {
			return &t, nil, true
		}
		return nil, nil, true
	}
	return nil, nil, false
}

// unwrap calls w.Canonical, treating a panic as an invalid wrapper.
func unwrap(w parse.Wrapper) (ts canon.Timestamp, ok bool) {
	defer func() {
		if recover() != nil {
			ts, ok = canon.Timestamp{}, false
		}
	}()
	return w.Canonical()
}

// CanHandle accepts non-zero canon.Timestamp values, canon.DateTime values
// and any parse.Wrapper.
func (*Canonical) CanHandle(input any, _ *parse.Context) bool {
	_, _, ok := canonicalValue(input)
	return ok
}

func (*Canonical) Confidence(input any, _ *parse.Context) float64 {
	ts, dt, ok := canonicalValue(input)
	switch {
	case !ok:
		return 0
	case ts != nil:
		return 1
	case dt != nil:
		return parse.ComponentConfidence(parse.ComponentsFromFields(dt.Fields))
	}
	return 0.2
}

func (c *Canonical) Validate(input any, ctx *parse.Context) parse.ValidationResult {
	ts, dt, ok := canonicalValue(input)
	var errs, warns []parse.Issue
	switch {
	case !ok:
		errs = append(errs, parse.Issue{Code: parse.CodeType, Message: "not a canonical value"})
	case ts != nil:
		errs = append(errs, parse.ValidateOptions(ctx.Options, ts.Zone(), string(ts.Calendar()))...)
	case dt != nil:
		errs, warns = parse.ValidateComponents(parse.ComponentsFromFields(dt.Fields), ctx.Options.Strict)
		errs = append(errs, parse.ValidateOptions(ctx.Options, "", string(dt.Calendar))...)
	default:
		errs = append(errs, parse.Issue{Code: parse.CodeType, Message: "wrapper holds no valid timestamp"})
	}
	return validation(input, parse.TypeCanonical, c.Confidence(input, ctx), errs, warns)
}

// Normalize unwraps wrappers; canonical values need no other work.
func (*Canonical) Normalize(input any, _ *parse.Context) parse.NormalizationResult {
	ts, dt, _ := canonicalValue(input)
	if ts != nil {
		return parse.NormalizationResult{Normalized: *ts}
	}
	if dt != nil {
		return parse.NormalizationResult{Normalized: *dt}
	}
	return parse.NormalizationResult{Normalized: input}
}

func (*Canonical) Convert(normalized any, ctx *parse.Context) (canon.Timestamp, error) {
	ts, dt, _ := canonicalValue(normalized)
	switch {
	case ts != nil:
		out := *ts
		var err error
		if ctx.Options.TimeZone != "" {
			if out, err = out.WithZone(ctx.Options.TimeZone); err != nil {
				return canon.Timestamp{}, err
			}
		}
		if ctx.Options.Calendar != "" {
			return out.WithCalendar(ctx.Options.Calendar)
		}
		return out, nil
	case dt != nil:
		cal, err := canon.ParseCalendar(string(ctx.Options.CalendarOr(string(dt.Calendar))))
		if err != nil {
			return canon.Timestamp{}, err
		}
		return canon.New(dt.Fields, ctx.Options.Zone(""), cal)
	}
	return canon.Timestamp{}, fmt.Errorf("canonical: cannot convert %T", normalized)
}

func (c *Canonical) Parse(input any, ctx *parse.Context) parse.Result {
	return parse.Run(c, input, ctx)
}

// CheckFastPath converts directly; conversion is already a pass-through.
func (c *Canonical) CheckFastPath(input any, ctx *parse.Context) parse.FastPathResult {
	conf := c.Confidence(input, ctx)
	return parse.SafeFastPath(parse.TypeCanonical, conf, func() parse.FastPathResult {
		ts, err := c.Convert(c.Normalize(input, ctx).Normalized, ctx)
		if err != nil {
			return parse.FastPathFailure(parse.TypeCanonical, conf)
		}
		return parse.FastPathAccept(parse.TypeCanonical, ts, conf)
	})
}

func (c *Canonical) OptimizationHints(input any, ctx *parse.Context) parse.OptimizationHints {
	return parse.HintsFor(c.Confidence(input, ctx), nil)
}
