package strategy

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// Record keys besides the component names.
const (
	keyTimeZone = "timeZone"
	keyCalendar = "calendar"
)

// Record parses keyed component records.
type Record struct{}

// NewRecord returns the keyed record strategy.
func NewRecord() *Record { return &Record{} }

func (*Record) Descriptor() parse.Descriptor {
	return parse.Descriptor{
		Type:        parse.TypeRecord,
		Priority:    PriorityRecord,
		Description: "keyed record with numeric year and optional month..nanosecond, timeZone, calendar",
	}
}

// recordEntries returns the entries of a string-keyed map.
func recordEntries(input any) (map[string]any, bool) {
	switch m := input.(type) {
	case map[string]any:
		return m, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(input)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func recordKeyAllowed(k string) bool {
	if k == keyTimeZone || k == keyCalendar {
		return true
	}
	_, ok := parse.ComponentByName(k)
	return ok
}

// recordComponents extracts components from a record, reporting values of
// the wrong type as issues instead of failing.
func recordComponents(input any) (parse.Components, []parse.Issue, bool) {
	var c parse.Components
	switch f := input.(type) {
	case canon.Fields:
		return parse.ComponentsFromFields(f), nil, true
	case *canon.Fields:
		if f == nil {
			return c, nil, false
		}
		return parse.ComponentsFromFields(*f), nil, true
	}

	m, ok := recordEntries(input)
	if !ok {
		return c, nil, false
	}
	var issues []parse.Issue
	for k, v := range m {
		switch k {
		case keyTimeZone, keyCalendar:
			s, ok := v.(string)
			if !ok && v != nil {
				issues = append(issues, parse.Issue{Field: k, Code: parse.CodeType, Message: fmt.Sprintf("%s must be a string, got %T", k, v)})
				continue
			}
			if k == keyTimeZone {
				c.Zone = s
			} else {
				c.Calendar = s
			}
		default:
			comp, ok := parse.ComponentByName(k)
			if !ok {
				continue
			}
			n, ok := parse.Number(v)
			if !ok {
				issues = append(issues, parse.Issue{Field: k, Code: parse.CodeType, Message: fmt.Sprintf("%s must be a number, got %T", k, v)})
				continue
			}
			c.Set(comp, n)
		}
	}
	sortIssues(issues)
	return c, issues, true
}

// sortIssues orders type issues by component significance so output does
// not depend on map iteration order.
func sortIssues(issues []parse.Issue) {
	rank := func(field string) int {
		if c, ok := parse.ComponentByName(field); ok {
			return int(c)
		}
		if field == keyTimeZone {
			return int(parse.NumComponents)
		}
		return int(parse.NumComponents) + 1
	}
	slices.SortFunc(issues, func(a, b parse.Issue) int {
		return cmp.Compare(rank(a.Field), rank(b.Field))
	})
}

// CanHandle accepts canon.Fields and string-keyed maps that hold a numeric
// year and no keys outside the component names, timeZone and calendar.
func (*Record) CanHandle(input any, _ *parse.Context) bool {
	switch f := input.(type) {
	case canon.Fields:
		return true
	case *canon.Fields:
		return f != nil
	}
	m, ok := recordEntries(input)
	if !ok || !parse.IsNumber(m["year"]) {
		return false
	}
	for k := range m {
		if !recordKeyAllowed(k) {
			return false
		}
	}
	return true
}

func (r *Record) Confidence(input any, ctx *parse.Context) float64 {
	if !r.CanHandle(input, ctx) {
		return 0
	}
	c, issues, _ := recordComponents(input)
	conf := parse.ComponentConfidence(c)
	if len(issues) > 0 {
		conf *= 0.5
	}
	return conf
}

func (r *Record) Validate(input any, ctx *parse.Context) parse.ValidationResult {
	if !r.CanHandle(input, ctx) {
		return validation(input, parse.TypeRecord, 0, []parse.Issue{{Code: parse.CodeType, Message: "not a component record"}}, nil)
	}
	c, errs, _ := recordComponents(input)
	compErrs, warns := parse.ValidateComponents(c, ctx.Options.Strict)
	errs = append(compErrs, errs...)
	errs = append(errs, parse.ValidateOptions(ctx.Options, c.Zone, c.Calendar)...)
	return validation(input, parse.TypeRecord, r.Confidence(input, ctx), errs, warns)
}

// Normalize returns a record holding every component as an int, plus the
// timeZone and calendar entries when the input carried them.
func (*Record) Normalize(input any, _ *parse.Context) parse.NormalizationResult {
	c, _, _ := recordComponents(input)
	n, transforms := parse.NormalizeComponents(c)
	return parse.NormalizationResult{
		Normalized: componentsRecord(n),
		Transforms: transforms,
		Metadata:   map[string]any{"zone": c.Zone, "calendar": c.Calendar},
	}
}

func componentsRecord(c parse.Components) map[string]any {
	f := c.Fields()
	out := map[string]any{
		"year":        f.Year,
		"month":       f.Month,
		"day":         f.Day,
		"hour":        f.Hour,
		"minute":      f.Minute,
		"second":      f.Second,
		"millisecond": f.Millisecond,
		"microsecond": f.Microsecond,
		"nanosecond":  f.Nanosecond,
	}
	if c.Zone != "" {
		out[keyTimeZone] = c.Zone
	}
	if c.Calendar != "" {
		out[keyCalendar] = c.Calendar
	}
	return out
}

func (*Record) Convert(normalized any, ctx *parse.Context) (canon.Timestamp, error) {
	c, _, ok := recordComponents(normalized)
	if !ok {
		return canon.Timestamp{}, fmt.Errorf("record: cannot convert %T", normalized)
	}
	return parse.ConvertComponents(c, ctx.Options)
}

func (r *Record) Parse(input any, ctx *parse.Context) parse.Result {
	return parse.Run(r, input, ctx)
}

// CheckFastPath accepts records whose present components are all integral
// and in range and whose values all have the right types.
func (r *Record) CheckFastPath(input any, ctx *parse.Context) parse.FastPathResult {
	conf := r.Confidence(input, ctx)
	return parse.SafeFastPath(parse.TypeRecord, conf, func() parse.FastPathResult {
		if !r.CanHandle(input, ctx) {
			return parse.FastPathFailure(parse.TypeRecord, conf)
		}
		c, issues, _ := recordComponents(input)
		if len(issues) > 0 {
			return parse.FastPathFailure(parse.TypeRecord, conf)
		}
		if _, ok := parse.FastFields(c); !ok {
			return parse.FastPathFailure(parse.TypeRecord, conf)
		}
		ts, err := parse.ConvertComponents(c, ctx.Options)
		if err != nil {
			return parse.FastPathFailure(parse.TypeRecord, conf)
		}
		return parse.FastPathAccept(parse.TypeRecord, ts, conf)
	})
}

func (r *Record) OptimizationHints(input any, ctx *parse.Context) parse.OptimizationHints {
	n := r.Normalize(input, ctx)
	return parse.HintsFor(r.Confidence(input, ctx), n.Transforms)
}
