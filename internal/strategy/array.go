package strategy

import (
	"fmt"
	"reflect"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// maxListItems is the number of positional components a list carries:
// year, month, day, hour, minute, second, millisecond.
const maxListItems = 7

// Array parses ordered numeric component lists.
type Array struct{}

// NewArray returns the list strategy.
func NewArray() *Array { return &Array{} }

func (*Array) Descriptor() parse.Descriptor {
	return parse.Descriptor{
		Type:        parse.TypeArray,
		Priority:    PriorityArray,
		Description: "ordered list [year, month?, day?, hour?, minute?, second?, millisecond?]",
	}
}

// listNumbers returns the elements of a non-empty list whose every element
// is a number. Byte slices are not component lists.
func listNumbers(input any) ([]float64, bool) {
	switch v := input.(type) {
	case []int:
		if len(v) == 0 {
			return nil, false
		}
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, true
	case []float64:
		return v, len(v) > 0
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		out := make([]float64, len(v))
		for i, e := range v {
			f, ok := parse.Number(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	case nil, string, []byte:
		return nil, false
	}

	rv := reflect.ValueOf(input)
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Len() == 0 {
		return nil, false
	}
	out := make([]float64, rv.Len())
	for i := range out {
		f, ok := parse.Number(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// listComponents maps list positions onto components and reports how many
// trailing elements do not fit.
func listComponents(input any) (parse.Components, int, bool) {
	var c parse.Components
	nums, ok := listNumbers(input)
	if !ok {
		return c, 0, false
	}
	extra := 0
	if len(nums) > maxListItems {
		extra = len(nums) - maxListItems
		nums = nums[:maxListItems]
	}
	for i, n := range nums {
		c.Set(parse.Component(i), n)
	}
	return c, extra, true
}

// CanHandle accepts non-empty lists of numbers.
func (*Array) CanHandle(input any, _ *parse.Context) bool {
	_, ok := listNumbers(input)
	return ok
}

func (a *Array) Confidence(input any, _ *parse.Context) float64 {
	c, extra, ok := listComponents(input)
	if !ok {
		return 0
	}
	conf := parse.ComponentConfidence(c)
	if extra > 0 {
		conf *= 0.9
	}
	return conf
}

func (a *Array) Validate(input any, ctx *parse.Context) parse.ValidationResult {
	c, extra, ok := listComponents(input)
	if !ok {
		return validation(input, parse.TypeArray, 0, []parse.Issue{{Code: parse.CodeType, Message: "not a non-empty numeric list"}}, nil)
	}
	errs, warns := parse.ValidateComponents(c, ctx.Options.Strict)
	if extra > 0 {
		warns = append(warns, parse.Issue{Field: "list", Code: parse.CodeFormat, Message: fmt.Sprintf("%d extra elements ignored", extra)})
	}
	errs = append(errs, parse.ValidateOptions(ctx.Options, "", "")...)
	return validation(input, parse.TypeArray, a.Confidence(input, ctx), errs, warns)
}

// Normalize returns a complete seven-element []int. Microsecond and
// nanosecond cannot be expressed by a list and are zero without being logged.
func (*Array) Normalize(input any, ctx *parse.Context) parse.NormalizationResult {
	c, extra, _ := listComponents(input)
	c.Set(parse.Microsecond, 0)
	c.Set(parse.Nanosecond, 0)

	var transforms []string
	if extra > 0 {
		transforms = append(transforms, parse.TransformTruncate+"list")
		ctx.Note(parse.MetaExtraItems, extra)
	}
	n, applied := parse.NormalizeComponents(c)
	transforms = append(transforms, applied...)

	f := n.Fields()
	return parse.NormalizationResult{
		Normalized: []int{f.Year, f.Month, f.Day, f.Hour, f.Minute, f.Second, f.Millisecond},
		Transforms: transforms,
		Metadata:   map[string]any{"items": c.Count() - 2 + extra},
	}
}

func (*Array) Convert(normalized any, ctx *parse.Context) (canon.Timestamp, error) {
	c, _, ok := listComponents(normalized)
	if !ok {
		return canon.Timestamp{}, fmt.Errorf("array: cannot convert %T", normalized)
	}
	return parse.ConvertComponents(c, ctx.Options)
}

func (a *Array) Parse(input any, ctx *parse.Context) parse.Result {
	return parse.Run(a, input, ctx)
}

// CheckFastPath accepts lists of at most seven integral, in-range
// components.
func (a *Array) CheckFastPath(input any, ctx *parse.Context) parse.FastPathResult {
	conf := a.Confidence(input, ctx)
	return parse.SafeFastPath(parse.TypeArray, conf, func() parse.FastPathResult {
		c, extra, ok := listComponents(input)
		if !ok || extra > 0 {
			return parse.FastPathFailure(parse.TypeArray, conf)
		}
		if _, ok := parse.FastFields(c); !ok {
			return parse.FastPathFailure(parse.TypeArray, conf)
		}
		ts, err := parse.ConvertComponents(c, ctx.Options)
		if err != nil {
			return parse.FastPathFailure(parse.TypeArray, conf)
		}
		return parse.FastPathAccept(parse.TypeArray, ts, conf)
	})
}

func (a *Array) OptimizationHints(input any, ctx *parse.Context) parse.OptimizationHints {
	_, extra, _ := listComponents(input)
	n := a.Normalize(input, ctx)
	var warnings []string
	if extra > 0 {
		warnings = append(warnings, fmt.Sprintf("array longer than expected: %d extra elements ignored", extra))
	}
	return parse.HintsFor(a.Confidence(input, ctx), n.Transforms, warnings...)
}
