package strategy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// Text layouts, recorded in the context metadata under parse.MetaLayout.
const (
	layoutISO     = "iso8601"
	layoutBasic   = "iso8601-basic"
	layoutEpoch   = "epoch-millis"
	layoutUnknown = "unknown"
)

var (
	// isoPattern matches ISO 8601 / RFC 3339 extended forms with reduced
	// precision, an optional offset and optional bracketed zone and calendar
	// annotations: 2023-06-15T14:30:45.123+02:00[Europe/Paris][u-ca=gregory].
	isoPattern = regexp.MustCompile(`^(\d{4})(?:-(\d{2})(?:-(\d{2})(?:[Tt ](\d{2}):(\d{2})(?::(\d{2})(?:[.,](\d{1,9}))?)?([Zz]|[+-]\d{2}(?::?\d{2})?)?)?)?)?(?:\[([^\]=]+)\])?(?:\[u-ca=([A-Za-z0-9-]+)\])?$`)

	// basicPattern matches the compact form 20230615 with an optional
	// T143045 time and offset.
	basicPattern = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})(?:[Tt](\d{2})(\d{2})(\d{2})?([Zz]|[+-]\d{2}(?::?\d{2})?)?)?$`)

	epochPattern = regexp.MustCompile(`^[+-]?\d+$`)
)

// looseLayouts are tried in order in non-strict mode when neither ISO form
// matches.
var looseLayouts = []struct {
	name   string
	layout string
	zoned  bool
}{
	{"rfc1123z", time.RFC1123Z, true},
	{"rfc1123", time.RFC1123, true},
	{"rfc850", time.RFC850, true},
	{"rfc822z", time.RFC822Z, true},
	{"rfc822", time.RFC822, true},
	{"rubydate", time.RubyDate, true},
	{"unixdate", time.UnixDate, true},
	{"ansic", time.ANSIC, false},
	{"slash-datetime", "2006/01/02 15:04:05", false},
	{"slash-date", "2006/01/02", false},
}

// TextValue is the normalized form of a text input.
type TextValue struct {
	parse.Components

	// Offset is the zone named by an explicit UTC offset in the text, or
	// empty when the text carries none.
	Offset string
	// Epoch is set for digit strings read as epoch milliseconds.
	Epoch  *int64
	Layout string
}

// textAnalysis is the result of recognizing a string.
type textAnalysis struct {
	value  TextValue
	issues []parse.Issue
}

// Text parses date-time strings.
type Text struct{}

// NewText returns the text strategy.
func NewText() *Text { return &Text{} }

func (*Text) Descriptor() parse.Descriptor {
	return parse.Descriptor{
		Type:        parse.TypeText,
		Priority:    PriorityText,
		Description: "ISO 8601 / RFC 3339 text; RFC 1123, ANSIC, slash dates and epoch digits when not strict",
	}
}

// foldText applies NFKC compatibility folding and trims surrounding space,
// so full-width digits and punctuation read as ASCII.
func foldText(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func textOf(input any) (string, bool) {
	s, ok := input.(string)
	if !ok {
		return "", false
	}
	s = foldText(s)
	return s, s != ""
}

// offsetZone resolves an offset designator to a zone name.
func offsetZone(designator string) (string, *parse.Issue) {
	if designator == "" {
		return "", nil
	}
	if designator == "Z" || designator == "z" {
		return canon.UTC, nil
	}
	_, name, err := canon.LoadZone(designator)
	if err != nil {
		return "", &parse.Issue{Field: "offset", Code: parse.CodeZone, Message: fmt.Sprintf("invalid UTC offset %q", designator)}
	}
	return name, nil
}

func setDigits(c *parse.Components, k parse.Component, digits string) {
	if digits == "" {
		return
	}
	n, _ := strconv.Atoi(digits)
	c.Set(k, float64(n))
}

// setFraction spreads up to nine fractional digits over the sub-second
// components.
func setFraction(c *parse.Components, digits string) {
	if digits == "" {
		return
	}
	digits = (digits + "000000000")[:9]
	ns, _ := strconv.Atoi(digits)
	c.Set(parse.Millisecond, float64(ns/1_000_000))
	c.Set(parse.Microsecond, float64(ns/1_000%1_000))
	c.Set(parse.Nanosecond, float64(ns%1_000))
}

// analyzeText recognizes s. In strict mode only the ISO forms are tried.
func analyzeText(s string, strict bool) textAnalysis {
	var a textAnalysis

	if m := isoPattern.FindStringSubmatch(s); m != nil {
		v := &a.value
		v.Layout = layoutISO
		setDigits(&v.Components, parse.Year, m[1])
		setDigits(&v.Components, parse.Month, m[2])
		setDigits(&v.Components, parse.Day, m[3])
		setDigits(&v.Components, parse.Hour, m[4])
		setDigits(&v.Components, parse.Minute, m[5])
		setDigits(&v.Components, parse.Second, m[6])
		setFraction(&v.Components, m[7])
		offset, issue := offsetZone(m[8])
		if issue != nil {
			a.issues = append(a.issues, *issue)
		}
		v.Offset = offset
		v.Zone = m[9]
		v.Calendar = m[10]
		return a
	}

	if m := basicPattern.FindStringSubmatch(s); m != nil {
		v := &a.value
		v.Layout = layoutBasic
		setDigits(&v.Components, parse.Year, m[1])
		setDigits(&v.Components, parse.Month, m[2])
		setDigits(&v.Components, parse.Day, m[3])
		setDigits(&v.Components, parse.Hour, m[4])
		setDigits(&v.Components, parse.Minute, m[5])
		setDigits(&v.Components, parse.Second, m[6])
		offset, issue := offsetZone(m[7])
		if issue != nil {
			a.issues = append(a.issues, *issue)
		}
		v.Offset = offset
		return a
	}

	if strict {
		a.value.Layout = layoutUnknown
		return a
	}

	if epochPattern.MatchString(s) {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			a.value.Layout = layoutEpoch
			a.value.Epoch = &ms
			return a
		}
	}

	for _, l := range looseLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		v := &a.value
		v.Layout = l.name
		v.Components = parse.ComponentsFromFields(canon.Fields{
			Year: t.Year(), Month: int(t.Month()), Day: t.Day(),
			Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
		})
		if l.zoned {
			if abbr, ok := unknownAbbreviation(t); ok {
				a.issues = append(a.issues, parse.Issue{Field: "zone", Code: parse.CodeZone,
					Message: fmt.Sprintf("unknown zone abbreviation %q", abbr)})
			}
			v.Offset = zoneOf(t)
		}
		return a
	}

	a.value.Layout = layoutUnknown
	return a
}

// unknownAbbreviation reports an abbreviation that time.Parse could not
// resolve. Such times carry a fabricated location with zero offset.
func unknownAbbreviation(t time.Time) (string, bool) {
	abbr, offset := t.Zone()
	if offset != 0 || t.Location() == time.UTC {
		return "", false
	}
	switch abbr {
	case "", "UTC", "UT", "GMT", "Z":
		return "", false
	}
	return abbr, !canon.ValidZone(abbr)
}

func (*Text) analyze(input any, ctx *parse.Context) (textAnalysis, bool) {
	s, ok := textOf(input)
	if !ok {
		return textAnalysis{}, false
	}
	a := analyzeText(s, ctx.Options.Strict)
	ctx.Note(parse.MetaLayout, a.value.Layout)
	return a, true
}

// CanHandle accepts strings that are non-empty after folding and trimming.
func (*Text) CanHandle(input any, _ *parse.Context) bool {
	_, ok := textOf(input)
	return ok
}

func (t *Text) Confidence(input any, ctx *parse.Context) float64 {
	a, ok := t.analyze(input, ctx)
	if !ok {
		return 0
	}
	var conf float64
	switch a.value.Layout {
	case layoutISO:
		conf = 0.95
	case layoutBasic:
		conf = 0.85
	case layoutEpoch:
		return 0.6
	case layoutUnknown:
		return 0.1
	default:
		conf = 0.75
	}
	if errs, _ := parse.ValidateComponents(a.value.Components, false); len(errs) > 0 || len(a.issues) > 0 {
		conf *= 0.5
	}
	return conf
}

func (t *Text) Validate(input any, ctx *parse.Context) parse.ValidationResult {
	a, ok := t.analyze(input, ctx)
	if !ok {
		return validation(input, parse.TypeText, 0, []parse.Issue{{Code: parse.CodeType, Message: "not a non-empty string"}}, nil)
	}
	conf := t.Confidence(input, ctx)
	v := a.value
	switch v.Layout {
	case layoutUnknown:
		s, _ := textOf(input)
		return validation(input, parse.TypeText, conf, []parse.Issue{{Code: parse.CodeFormat, Message: fmt.Sprintf("unrecognized date-time text %q", s)}}, nil)
	case layoutEpoch:
		var errs []parse.Issue
		if *v.Epoch < minEpochMillis || *v.Epoch > maxEpochMillis {
			errs = append(errs, parse.Issue{Field: "epoch", Code: parse.CodeRange,
				Message: fmt.Sprintf("epoch milliseconds %d out of range %d-%d", *v.Epoch, minEpochMillis, maxEpochMillis)})
		}
		errs = append(errs, parse.ValidateOptions(ctx.Options, "", "")...)
		warns := []parse.Issue{{Code: parse.CodeFormat, Message: "digit string read as epoch milliseconds"}}
		return validation(input, parse.TypeText, conf, errs, warns)
	}

	errs, warns := parse.ValidateComponents(v.Components, ctx.Options.Strict)
	errs = append(errs, a.issues...)
	errs = append(errs, parse.ValidateOptions(ctx.Options, firstNonEmpty(v.Zone, v.Offset), v.Calendar)...)
	return validation(input, parse.TypeText, conf, errs, warns)
}

// Normalize returns a TextValue with every component filled.
func (t *Text) Normalize(input any, ctx *parse.Context) parse.NormalizationResult {
	a, _ := t.analyze(input, ctx)
	v := a.value
	var transforms []string
	if v.Epoch == nil {
		v.Components, transforms = parse.NormalizeComponents(v.Components)
	}
	return parse.NormalizationResult{
		Normalized: v,
		Transforms: transforms,
		Metadata:   map[string]any{"layout": v.Layout},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// convertText builds the timestamp. Text with an offset fixes the instant
// at that offset and is then expressed in the resolved zone; text without
// one is wall-clock time in the resolved zone.
func convertText(v TextValue, opts parse.Options) (canon.Timestamp, error) {
	if v.Epoch != nil {
		return canon.FromTime(time.UnixMilli(*v.Epoch).UTC(), opts.Zone(""), opts.CalendarOr(""))
	}
	if v.Offset == "" {
		return parse.ConvertComponents(v.Components, opts)
	}
	cal, err := canon.ParseCalendar(string(opts.CalendarOr(v.Calendar)))
	if err != nil {
		return canon.Timestamp{}, err
	}
	ts, err := canon.New(v.Fields(), v.Offset, cal)
	if err != nil {
		return canon.Timestamp{}, err
	}
	if target := opts.Zone(firstNonEmpty(v.Zone, v.Offset)); target != ts.Zone() {
		return ts.WithZone(target)
	}
	return ts, nil
}

func (t *Text) Convert(normalized any, ctx *parse.Context) (canon.Timestamp, error) {
	switch v := normalized.(type) {
	case TextValue:
		return convertText(v, ctx.Options)
	case string:
		return convertText(t.Normalize(v, ctx).Normalized.(TextValue), ctx.Options)
	}
	return canon.Timestamp{}, fmt.Errorf("text: cannot convert %T", normalized)
}

func (t *Text) Parse(input any, ctx *parse.Context) parse.Result {
	return parse.Run(t, input, ctx)
}

// CheckFastPath accepts ISO text whose components are integral and in range
// and whose offset resolves.
func (t *Text) CheckFastPath(input any, ctx *parse.Context) parse.FastPathResult {
	conf := t.Confidence(input, ctx)
	return parse.SafeFastPath(parse.TypeText, conf, func() parse.FastPathResult {
		a, ok := t.analyze(input, ctx)
		if !ok || len(a.issues) > 0 || (a.value.Layout != layoutISO && a.value.Layout != layoutBasic) {
			return parse.FastPathFailure(parse.TypeText, conf)
		}
		if _, ok := parse.FastFields(a.value.Components); !ok {
			return parse.FastPathFailure(parse.TypeText, conf)
		}
		ts, err := convertText(a.value, ctx.Options)
		if err != nil {
			return parse.FastPathFailure(parse.TypeText, conf)
		}
		return parse.FastPathAccept(parse.TypeText, ts, conf)
	})
}

func (t *Text) OptimizationHints(input any, ctx *parse.Context) parse.OptimizationHints {
	n := t.Normalize(input, ctx)
	var warnings []string
	switch layout, _ := n.Metadata["layout"].(string); layout {
	case layoutISO, layoutBasic:
	case layoutEpoch:
		warnings = append(warnings, "digit string read as epoch milliseconds")
	case layoutUnknown, "":
	default:
		warnings = append(warnings, "non-ISO layout "+layout)
	}
	hints := parse.HintsFor(t.Confidence(input, ctx), n.Transforms, warnings...)
	if len(warnings) > 0 && hints.Cost == parse.CostLow {
		hints.Cost = parse.CostMedium
	}
	return hints
}
