package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

func TestArray_FullScenario(t *testing.T) {
	in := []int{2023, 6, 15, 14, 30, 45, 123}
	res := NewArray().Parse(in, parse.Background(in, parse.WithTimeZone("UTC")))
	require.True(t, res.OK(), "%v", res.Err)

	ts := res.Timestamp
	assert.Equal(t, 2023, ts.Year())
	assert.Equal(t, 6, ts.Month())
	assert.Equal(t, 15, ts.Day())
	assert.Equal(t, 14, ts.Hour())
	assert.Equal(t, 30, ts.Minute())
	assert.Equal(t, 45, ts.Second())
	assert.Equal(t, 123, ts.Millisecond())
	assert.Equal(t, "UTC", ts.Zone())
	assert.Empty(t, res.Transforms)
	assert.Equal(t, parse.TypeArray, res.Strategy)
}

func TestArray_YearZero(t *testing.T) {
	in := []int{0, 1, 1}
	res := NewArray().Parse(in, parse.Background(in))
	require.False(t, res.OK())
	assert.Nil(t, res.Timestamp)
	assert.Equal(t, "ARRAY_VALIDATION", res.Err.Code)
	assert.True(t, parse.IsValidationError(res.Err))
	require.Len(t, res.Err.Issues, 1)
	assert.Equal(t, "year", res.Err.Issues[0].Field)
	assert.Contains(t, res.Err.Error(), "year 0 out of range 1-9999")
	assert.Equal(t, in, res.Err.Input)
}

func TestArray_LeapYears(t *testing.T) {
	tests := []struct {
		in    []int
		valid bool
	}{
		{[]int{2020, 2, 29}, true},
		{[]int{1900, 2, 29}, false},
		{[]int{2000, 2, 29}, true},
		{[]int{2023, 2, 30}, false},
	}
	for _, tt := range tests {
		v := NewArray().Validate(tt.in, parse.Background(tt.in))
		assert.Equal(t, tt.valid, v.Valid, "%v", tt.in)

		res := NewArray().Parse(tt.in, parse.Background(tt.in))
		assert.Equal(t, tt.valid, res.OK(), "%v", tt.in)
		if !tt.valid {
			assert.True(t, parse.IsImpossibleDate(res.Err))
			assert.Equal(t, "ARRAY_IMPOSSIBLE_DATE", res.Err.Code)
		}
	}
}

func TestArray_ValidateReportsAll(t *testing.T) {
	in := []int{10000, 0, 0, 25, 61, 61}
	v := NewArray().Validate(in, parse.Background(in))
	assert.False(t, v.Valid)
	assert.Len(t, v.Errors, 6)
}

func TestArray_NonIntegral(t *testing.T) {
	in := []float64{2023, 6, 15.4}

	loose := NewArray().Parse(in, parse.Background(in))
	require.True(t, loose.OK())
	assert.Equal(t, 15, loose.Timestamp.Day())
	assert.Contains(t, loose.Transforms, "round:day")
	require.Len(t, loose.Warnings, 1)
	assert.Equal(t, parse.CodeNotIntegral, loose.Warnings[0].Code)

	strict := NewArray().Parse(in, parse.Background(in, parse.WithStrict(true)))
	require.False(t, strict.OK())
	assert.Equal(t, "ARRAY_VALIDATION", strict.Err.Code)
}

func TestArray_ExtraElements(t *testing.T) {
	in := []any{2023, 6, 15, 14, 30, 45, 123, 999, 1}
	ctx := parse.Background(in)

	v := NewArray().Validate(in, ctx)
	assert.True(t, v.Valid)
	require.Len(t, v.Warnings, 1)
	assert.Equal(t, "2 extra elements ignored", v.Warnings[0].Message)

	n := NewArray().Normalize(in, ctx)
	assert.Equal(t, []string{"truncate:list"}, n.Transforms)
	assert.Equal(t, 2, ctx.Metadata[parse.MetaExtraItems])

	hints := NewArray().OptimizationHints(in, parse.Background(in))
	assert.Equal(t, parse.CostHigh, hints.Cost)
	assert.Contains(t, hints.Warnings, "array longer than expected: 2 extra elements ignored")
}

func TestArray_NormalizeIdempotent(t *testing.T) {
	for _, in := range []any{
		[]int{2023},
		[]float64{2023, 13.2, 0, -4, 75},
		[]int{2023, 6, 15, 14, 30, 45, 123},
	} {
		a := NewArray()
		once := a.Normalize(in, parse.Background(in))
		twice := a.Normalize(once.Normalized, parse.Background(once.Normalized))
		assert.Empty(t, twice.Transforms, "%v", in)
		assert.Equal(t, once.Normalized, twice.Normalized)
	}
}

func TestArray_NormalizeDefaults(t *testing.T) {
	n := NewArray().Normalize([]int{2023}, parse.Background(nil))
	assert.Equal(t, []int{2023, 1, 1, 0, 0, 0, 0}, n.Normalized)
	assert.Equal(t, []string{
		"default:month", "default:day", "default:hour", "default:minute", "default:second", "default:millisecond",
	}, n.Transforms)
}

func TestArray_ZoneResolution(t *testing.T) {
	in := []int{2023, 6, 15, 12}
	res := NewArray().Parse(in, parse.Background(in, parse.WithTimeZone("Asia/Tokyo")))
	require.True(t, res.OK())
	assert.Equal(t, "Asia/Tokyo", res.Timestamp.Zone())
	assert.Equal(t, 12, res.Timestamp.Hour())
	assert.Equal(t, int64(1686798000000), res.Timestamp.UnixMilli())

	bad := NewArray().Parse(in, parse.Background(in, parse.WithTimeZone("Bogus/Zone")))
	require.False(t, bad.OK())
	assert.True(t, parse.IsZoneError(bad.Err))
	assert.Equal(t, "ARRAY_ZONE", bad.Err.Code)
}

func TestArray_Hints(t *testing.T) {
	full := NewArray().OptimizationHints([]int{2023, 6, 15, 14, 30, 45, 123}, parse.Background(nil))
	assert.Equal(t, parse.CostLow, full.Cost)
	assert.True(t, full.Cacheable)

	partial := NewArray().OptimizationHints([]int{2023}, parse.Background(nil))
	assert.Equal(t, parse.CostMedium, partial.Cost)
	assert.False(t, partial.Cacheable, "year-only lists are below the cacheable confidence")
}

func TestArray_TypedLists(t *testing.T) {
	for _, in := range []any{
		[]int64{2023, 6, 15},
		[]int32{2023, 6, 15},
		[3]uint16{2023, 6, 15},
		[]any{json2023(), 6.0, int8(15)},
	} {
		res := NewArray().Parse(in, parse.Background(in))
		require.True(t, res.OK(), "%#v: %v", in, res.Err)
		assert.Equal(t, canon.Fields{Year: 2023, Month: 6, Day: 15}, res.Timestamp.Fields())
	}
}
