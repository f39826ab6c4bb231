package strategy

import (
	"fmt"
	"time"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// Native parses time.Time values.
type Native struct{}

// NewNative returns the time.Time strategy.
func NewNative() *Native { return &Native{} }

func (*Native) Descriptor() parse.Descriptor {
	return parse.Descriptor{
		Type:        parse.TypeNative,
		Priority:    PriorityNative,
		Description: "time.Time and non-nil *time.Time",
	}
}

func nativeTime(input any) (time.Time, bool) {
	switch t := input.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}

// zoneOf names the zone a time.Time carries. Named IANA locations keep their
// name; Local and unnamed fixed zones become their offset at t.
func zoneOf(t time.Time) string {
	name := t.Location().String()
	if name == "UTC" {
		return canon.UTC
	}
	if name != "" && name != "Local" && canon.ValidZone(name) {
		if _, canonical, err := canon.LoadZone(name); err == nil {
			return canonical
		}
	}
	_, offset := t.Zone()
	if offset == 0 {
		return canon.UTC
	}
	return canon.FormatOffset(offset)
}

// CanHandle accepts time.Time and non-nil *time.Time.
func (*Native) CanHandle(input any, _ *parse.Context) bool {
	_, ok := nativeTime(input)
	return ok
}

func (n *Native) Confidence(input any, _ *parse.Context) float64 {
	t, ok := nativeTime(input)
	if !ok {
		return 0
	}
	if y := t.UTC().Year(); y < canon.MinYear || y > canon.MaxYear {
		return 0.3
	}
	return 1
}

func (n *Native) Validate(input any, ctx *parse.Context) parse.ValidationResult {
	t, ok := nativeTime(input)
	if !ok {
		return validation(input, parse.TypeNative, 0, []parse.Issue{{Code: parse.CodeType, Message: "not a time.Time"}}, nil)
	}
	var errs []parse.Issue
	if y := t.UTC().Year(); y < canon.MinYear || y > canon.MaxYear {
		errs = append(errs, parse.Issue{Field: "year", Code: parse.CodeRange,
			Message: fmt.Sprintf("year %d out of range %d-%d", y, canon.MinYear, canon.MaxYear)})
	}
	errs = append(errs, parse.ValidateOptions(ctx.Options, zoneOf(t), "")...)
	return validation(input, parse.TypeNative, n.Confidence(input, ctx), errs, nil)
}

// Normalize strips the monotonic reading; nothing else is needed.
func (*Native) Normalize(input any, _ *parse.Context) parse.NormalizationResult {
	t, _ := nativeTime(input)
	return parse.NormalizationResult{Normalized: t.Round(0)}
}

func (*Native) Convert(normalized any, ctx *parse.Context) (canon.Timestamp, error) {
	t, ok := nativeTime(normalized)
	if !ok {
		return canon.Timestamp{}, fmt.Errorf("native: cannot convert %T", normalized)
	}
	return canon.FromTime(t, ctx.Options.Zone(zoneOf(t)), ctx.Options.CalendarOr(""))
}

func (n *Native) Parse(input any, ctx *parse.Context) parse.Result {
	return parse.Run(n, input, ctx)
}

// CheckFastPath converts directly; conversion is already minimal.
func (n *Native) CheckFastPath(input any, ctx *parse.Context) parse.FastPathResult {
	conf := n.Confidence(input, ctx)
	return parse.SafeFastPath(parse.TypeNative, conf, func() parse.FastPathResult {
		t, ok := nativeTime(input)
		if !ok {
			return parse.FastPathFailure(parse.TypeNative, conf)
		}
		ts, err := n.Convert(t.Round(0), ctx)
		if err != nil {
			return parse.FastPathFailure(parse.TypeNative, conf)
		}
		return parse.FastPathAccept(parse.TypeNative, ts, conf)
	})
}

func (n *Native) OptimizationHints(input any, ctx *parse.Context) parse.OptimizationHints {
	return parse.HintsFor(n.Confidence(input, ctx), nil)
}
