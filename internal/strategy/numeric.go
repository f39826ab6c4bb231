package strategy

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// Epoch bounds in milliseconds covering years 1 through 9999 UTC.
var (
	minEpochMillis = time.Date(canon.MinYear, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	maxEpochMillis = time.Date(canon.MaxYear, 12, 31, 23, 59, 59, 999_999_999, time.UTC).UnixMilli()
)

// Epoch is a normalized epoch instant: whole milliseconds plus a sub-millisecond
// remainder in nanoseconds (0-999999).
type Epoch struct {
	Millis int64
	Nanos  int64
}

// Time returns the instant in UTC.
func (e Epoch) Time() time.Time {
	return time.UnixMilli(e.Millis).Add(time.Duration(e.Nanos)).UTC()
}

// Numeric parses numbers as milliseconds since the Unix epoch.
type Numeric struct{}

// NewNumeric returns the epoch milliseconds strategy.
func NewNumeric() *Numeric { return &Numeric{} }

func (*Numeric) Descriptor() parse.Descriptor {
	return parse.Descriptor{
		Type:        parse.TypeNumeric,
		Priority:    PriorityNumeric,
		Description: "milliseconds since the Unix epoch",
	}
}

// epochOf splits a number into whole milliseconds and a nanosecond remainder.
// Integers and integral json.Number values convert exactly.
func epochOf(input any) (Epoch, bool) {
	switch v := input.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return Epoch{Millis: n}, true
		}
	case int, int8, int16, int32, int64:
		return Epoch{Millis: reflect.ValueOf(v).Int()}, true
	}
	f, ok := parse.Number(input)
	if !ok || !parse.IsFinite(f) || f < float64(minEpochMillis) || f > float64(maxEpochMillis) {
		return Epoch{}, false
	}
	whole := math.Floor(f)
	nanos := int64(math.Round((f - whole) * 1e6))
	if nanos == 1_000_000 {
		whole++
		nanos = 0
	}
	return Epoch{Millis: int64(whole), Nanos: nanos}, true
}

func inEpochRange(e Epoch) bool {
	return e.Millis >= minEpochMillis && e.Millis <= maxEpochMillis
}

// CanHandle accepts every Go numeric kind and json.Number.
func (*Numeric) CanHandle(input any, _ *parse.Context) bool {
	return parse.IsNumber(input)
}

func (n *Numeric) Confidence(input any, ctx *parse.Context) float64 {
	if !n.CanHandle(input, ctx) {
		return 0
	}
	f, _ := parse.Number(input)
	switch {
	case !parse.IsFinite(f):
		return 0.05
	case f < float64(minEpochMillis) || f > float64(maxEpochMillis):
		return 0.2
	case !parse.IsIntegral(f):
		return 0.8
	}
	return 0.9
}

func (n *Numeric) Validate(input any, ctx *parse.Context) parse.ValidationResult {
	conf := n.Confidence(input, ctx)
	if !n.CanHandle(input, ctx) {
		return validation(input, parse.TypeNumeric, 0, []parse.Issue{{Code: parse.CodeType, Message: "not a number"}}, nil)
	}
	var errs []parse.Issue
	f, _ := parse.Number(input)
	e, ok := epochOf(input)
	switch {
	case !parse.IsFinite(f):
		errs = append(errs, parse.Issue{Field: "epoch", Code: parse.CodeType, Message: "epoch milliseconds must be finite"})
	case !ok || !inEpochRange(e):
		errs = append(errs, parse.Issue{Field: "epoch", Code: parse.CodeRange,
			Message: fmt.Sprintf("epoch milliseconds %v out of range %d-%d", input, minEpochMillis, maxEpochMillis)})
	}
	errs = append(errs, parse.ValidateOptions(ctx.Options, "", "")...)
	return validation(input, parse.TypeNumeric, conf, errs, nil)
}

// Normalize returns an Epoch. Fractional milliseconds are kept at nanosecond
// precision; anything finer is rounded and logged.
func (*Numeric) Normalize(input any, _ *parse.Context) parse.NormalizationResult {
	e, _ := epochOf(input)
	var transforms []string
	if f, ok := parse.Number(input); ok && parse.IsFinite(f) {
		if sub := (f - math.Floor(f)) * 1e6; sub != math.Trunc(sub) {
			transforms = append(transforms, parse.TransformRound+"nanosecond")
		}
	}
	return parse.NormalizationResult{Normalized: e, Transforms: transforms}
}

func (*Numeric) Convert(normalized any, ctx *parse.Context) (canon.Timestamp, error) {
	e, ok := normalized.(Epoch)
	if !ok {
		if e, ok = epochOf(normalized); !ok {
			return canon.Timestamp{}, fmt.Errorf("numeric: cannot convert %T", normalized)
		}
	}
	return canon.FromTime(e.Time(), ctx.Options.Zone(""), ctx.Options.CalendarOr(""))
}

func (n *Numeric) Parse(input any, ctx *parse.Context) parse.Result {
	return parse.Run(n, input, ctx)
}

// CheckFastPath accepts integral epochs inside the supported range.
func (n *Numeric) CheckFastPath(input any, ctx *parse.Context) parse.FastPathResult {
	conf := n.Confidence(input, ctx)
	return parse.SafeFastPath(parse.TypeNumeric, conf, func() parse.FastPathResult {
		e, ok := epochOf(input)
		if !ok || e.Nanos != 0 || !inEpochRange(e) {
			return parse.FastPathFailure(parse.TypeNumeric, conf)
		}
		ts, err := canon.FromTime(e.Time(), ctx.Options.Zone(""), ctx.Options.CalendarOr(""))
		if err != nil {
			return parse.FastPathFailure(parse.TypeNumeric, conf)
		}
		return parse.FastPathAccept(parse.TypeNumeric, ts, conf)
	})
}

func (n *Numeric) OptimizationHints(input any, ctx *parse.Context) parse.OptimizationHints {
	return parse.HintsFor(n.Confidence(input, ctx), n.Normalize(input, ctx).Transforms)
}
