package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// secondsNanos is the protobuf Timestamp accessor shape.
type secondsNanos interface {
	GetSeconds() int64
	GetNanos() int32
}

// Seconds bounds covering years 1 through 9999 UTC.
var (
	minEpochSeconds = time.Date(canon.MinYear, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxEpochSeconds = time.Date(canon.MaxYear, 12, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// External parses seconds/nanoseconds structures.
type External struct{}

// NewExternal returns the external timestamp strategy.
func NewExternal() *External { return &External{} }

func (*External) Descriptor() parse.Descriptor {
	return parse.Descriptor{
		Type:        parse.TypeExternal,
		Priority:    PriorityExternal,
		Description: "{seconds, nanoseconds} or {_seconds, _nanoseconds} structures",
	}
}

// externalPair is the raw seconds/nanoseconds of an input before range checks.
type externalPair struct {
	seconds, nanos float64
}

// externalKeys lists the accepted map spellings: {seconds, nanoseconds} and
// {_seconds, _nanoseconds}.
var externalKeys = [][2]string{
	{"seconds", "nanoseconds"},
	{"_seconds", "_nanoseconds"},
}

func externalOf(input any) (externalPair, bool) {
	switch v := input.(type) {
	case parse.ExternalTimestamp:
		return externalPair{float64(v.Seconds), float64(v.Nanoseconds)}, true
	case *parse.ExternalTimestamp:
		if v == nil {
			return externalPair{}, false
		}
		return externalPair{float64(v.Seconds), float64(v.Nanoseconds)}, true
	case secondsNanos:
		if isNilPointer(v) {
			return externalPair{}, false
		}
		return externalPair{float64(v.GetSeconds()), float64(v.GetNanos())}, true
	}

	m, ok := recordEntries(input)
	if !ok {
		return externalPair{}, false
	}
	for _, keys := range externalKeys {
		secs, ok := parse.Number(m[keys[0]])
		if !ok {
			continue
		}
		want := 1
		var nanos float64
		if raw, present := m[keys[1]]; present {
			if nanos, ok = parse.Number(raw); !ok {
				return externalPair{}, false
			}
			want = 2
		}
		if len(m) != want {
			return externalPair{}, false
		}
		return externalPair{secs, nanos}, true
	}
	return externalPair{}, false
}

// CanHandle accepts parse.ExternalTimestamp, protobuf-style values and maps
// holding exactly a numeric seconds entry and an optional numeric
// nanoseconds entry under either spelling.
func (*External) CanHandle(input any, _ *parse.Context) bool {
	_, ok := externalOf(input)
	return ok
}

func externalIssues(p externalPair, strict bool) (errs, warns []parse.Issue) {
	report := func(blocking bool, is parse.Issue) {
		if blocking {
			errs = append(errs, is)
		} else {
			warns = append(warns, is)
		}
	}
	if !parse.IsFinite(p.seconds) || !parse.IsFinite(p.nanos) {
		errs = append(errs, parse.Issue{Field: "seconds", Code: parse.CodeType, Message: "seconds and nanoseconds must be finite"})
		return errs, warns
	}
	if !parse.IsIntegral(p.seconds) {
		report(strict, parse.Issue{Field: "seconds", Code: parse.CodeNotIntegral, Message: fmt.Sprintf("seconds %v is not an integer", p.seconds)})
	}
	if !parse.IsIntegral(p.nanos) {
		report(strict, parse.Issue{Field: "nanoseconds", Code: parse.CodeNotIntegral, Message: fmt.Sprintf("nanoseconds %v is not an integer", p.nanos)})
	}
	if s := math.Round(p.seconds); s < float64(minEpochSeconds) || s > float64(maxEpochSeconds) {
		errs = append(errs, parse.Issue{Field: "seconds", Code: parse.CodeRange,
			Message: fmt.Sprintf("seconds %v out of range %d-%d", p.seconds, minEpochSeconds, maxEpochSeconds)})
	}
	if n := math.Round(p.nanos); n < 0 || n > 999_999_999 {
		errs = append(errs, parse.Issue{Field: "nanoseconds", Code: parse.CodeRange,
			Message: fmt.Sprintf("nanoseconds %v out of range 0-999999999", p.nanos)})
	}
	return errs, warns
}

func (*External) Confidence(input any, _ *parse.Context) float64 {
	p, ok := externalOf(input)
	if !ok {
		return 0
	}
	errs, warns := externalIssues(p, false)
	conf := 0.95
	for range warns {
		conf *= 0.8
	}
	for range errs {
		conf *= 0.5
	}
	return conf
}

func (e *External) Validate(input any, ctx *parse.Context) parse.ValidationResult {
	p, ok := externalOf(input)
	if !ok {
		return validation(input, parse.TypeExternal, 0, []parse.Issue{{Code: parse.CodeType, Message: "not an external timestamp"}}, nil)
	}
	errs, warns := externalIssues(p, ctx.Options.Strict)
	errs = append(errs, parse.ValidateOptions(ctx.Options, "", "")...)
	return validation(input, parse.TypeExternal, e.Confidence(input, ctx), errs, warns)
}

// Normalize returns a parse.ExternalTimestamp with rounded fields.
func (*External) Normalize(input any, _ *parse.Context) parse.NormalizationResult {
	p, _ := externalOf(input)
	var transforms []string
	if !parse.IsIntegral(p.seconds) {
		transforms = append(transforms, parse.TransformRound+"seconds")
	}
	if !parse.IsIntegral(p.nanos) {
		transforms = append(transforms, parse.TransformRound+"nanoseconds")
	}
	nanos := math.Round(p.nanos)
	switch {
	case nanos < 0:
		nanos = 0
		transforms = append(transforms, parse.TransformClamp+"nanoseconds")
	case nanos > 999_999_999:
		nanos = 999_999_999
		transforms = append(transforms, parse.TransformClamp+"nanoseconds")
	}
	return parse.NormalizationResult{
		Normalized: parse.ExternalTimestamp{Seconds: int64(math.Round(p.seconds)), Nanoseconds: int64(nanos)},
		Transforms: transforms,
	}
}

func (*External) Convert(normalized any, ctx *parse.Context) (canon.Timestamp, error) {
	p, ok := externalOf(normalized)
	if !ok {
		return canon.Timestamp{}, fmt.Errorf("external: cannot convert %T", normalized)
	}
	t := time.Unix(int64(p.seconds), int64(p.nanos)).UTC()
	return canon.FromTime(t, ctx.Options.Zone(""), ctx.Options.CalendarOr(""))
}

func (e *External) Parse(input any, ctx *parse.Context) parse.Result {
	return parse.Run(e, input, ctx)
}

// CheckFastPath accepts integral, in-range pairs.
func (e *External) CheckFastPath(input any, ctx *parse.Context) parse.FastPathResult {
	conf := e.Confidence(input, ctx)
	return parse.SafeFastPath(parse.TypeExternal, conf, func() parse.FastPathResult {
		p, ok := externalOf(input)
		if !ok {
			return parse.FastPathFailure(parse.TypeExternal, conf)
		}
		if errs, warns := externalIssues(p, true); len(errs)+len(warns) > 0 {
			return parse.FastPathFailure(parse.TypeExternal, conf)
		}
		ts, err := e.Convert(input, ctx)
		if err != nil {
			return parse.FastPathFailure(parse.TypeExternal, conf)
		}
		return parse.FastPathAccept(parse.TypeExternal, ts, conf)
	})
}

func (e *External) OptimizationHints(input any, ctx *parse.Context) parse.OptimizationHints {
	return parse.HintsFor(e.Confidence(input, ctx), e.Normalize(input, ctx).Transforms)
}
