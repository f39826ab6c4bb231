package parse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atemporal/internal/canon"
)

func comps(vals ...float64) Components {
	var c Components
	for i, v := range vals {
		c.Set(Component(i), v)
	}
	return c
}

func codes(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Field + ":" + is.Code
	}
	return out
}

func TestComponentByName(t *testing.T) {
	c, ok := ComponentByName("minute")
	require.True(t, ok)
	assert.Equal(t, Minute, c)
	assert.Equal(t, "minute", c.String())

	_, ok = ComponentByName("week")
	assert.False(t, ok)
}

func TestValidateComponents_LeapYears(t *testing.T) {
	tests := []struct {
		name  string
		input Components
		valid bool
	}{
		{"2020-02-29 leap year", comps(2020, 2, 29), true},
		{"1900-02-29 non-leap century", comps(1900, 2, 29), false},
		{"2000-02-29 leap century", comps(2000, 2, 29), true},
		{"2023-02-30", comps(2023, 2, 30), false},
		{"2023-04-31", comps(2023, 4, 31), false},
		{"2023-12-31", comps(2023, 12, 31), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, _ := ValidateComponents(tt.input, false)
			if tt.valid {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, CodeImpossibleDate, errs[0].Code)
			assert.Equal(t, "day", errs[0].Field)
		})
	}
}

func TestValidateComponents_ReportsEveryViolation(t *testing.T) {
	errs, _ := ValidateComponents(comps(0, 13, 32, 24, 60, 60), false)
	assert.Equal(t, []string{
		"year:RANGE", "month:RANGE", "day:RANGE", "hour:RANGE", "minute:RANGE", "second:RANGE",
	}, codes(errs))
}

func TestValidateComponents_YearZeroMessage(t *testing.T) {
	errs, _ := ValidateComponents(comps(0, 1, 1), false)
	require.Len(t, errs, 1)
	assert.Equal(t, "year 0 out of range 1-9999", errs[0].Message)
}

func TestValidateComponents_YearRequired(t *testing.T) {
	var c Components
	c.Set(Month, 6)
	errs, _ := ValidateComponents(c, false)
	assert.Equal(t, []string{"year:TYPE"}, codes(errs))
}

func TestValidateComponents_NonIntegral(t *testing.T) {
	c := comps(2023, 6.4, 15)

	errs, warns := ValidateComponents(c, false)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"month:NOT_INTEGRAL"}, codes(warns))

	errs, warns = ValidateComponents(c, true)
	assert.Equal(t, []string{"month:NOT_INTEGRAL"}, codes(errs))
	assert.Empty(t, warns)
}

func TestValidateComponents_Subsecond(t *testing.T) {
	c := comps(2023, 6, 15, 0, 0, 0, 1500)

	errs, warns := ValidateComponents(c, false)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"millisecond:RANGE"}, codes(warns))

	errs, _ = ValidateComponents(c, true)
	assert.Equal(t, []string{"millisecond:RANGE"}, codes(errs))
}

func TestValidateComponents_NonFinite(t *testing.T) {
	errs, _ := ValidateComponents(comps(2023, math.NaN(), math.Inf(1)), false)
	assert.Equal(t, []string{"month:TYPE", "day:TYPE"}, codes(errs))
}

func TestNormalizeComponents_Defaults(t *testing.T) {
	out, transforms := NormalizeComponents(comps(2023, 1))
	assert.Equal(t, canon.Fields{Year: 2023, Month: 1, Day: 1}, out.Fields())
	assert.Equal(t, []string{
		"default:day", "default:hour", "default:minute", "default:second",
		"default:millisecond", "default:microsecond", "default:nanosecond",
	}, transforms)
}

func TestNormalizeComponents_RoundAndClamp(t *testing.T) {
	out, transforms := NormalizeComponents(comps(2023, 13, -2, 23.5, 61, 2.5, -0.5))
	f := out.Fields()
	assert.Equal(t, 12, f.Month)
	assert.Equal(t, 1, f.Day)
	assert.Equal(t, 23, f.Hour, "23.5 rounds to 24 then clamps")
	assert.Equal(t, 59, f.Minute)
	assert.Equal(t, 3, f.Second, "half rounds away from zero")
	assert.Equal(t, 0, f.Millisecond)
	assert.Equal(t, []string{
		"clamp:month", "clamp:day", "round:hour", "clamp:hour", "clamp:minute",
		"round:second", "round:millisecond", "clamp:millisecond", "default:microsecond", "default:nanosecond",
	}, transforms)
}

func TestNormalizeComponents_Idempotent(t *testing.T) {
	inputs := []Components{
		comps(2023),
		comps(2023, 6.7, 40, -1, 99.2),
		comps(2023, 6, 15, 14, 30, 45, 123),
		comps(9999, 12, 31, 23, 59, 59, 999, 999, 999),
	}
	for _, in := range inputs {
		once, _ := NormalizeComponents(in)
		twice, transforms := NormalizeComponents(once)
		assert.Empty(t, transforms)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeComponents_KeepsOverlongDay(t *testing.T) {
	out, transforms := NormalizeComponents(comps(2023, 2, 30))
	assert.Equal(t, 30, out.Fields().Day)
	assert.NotContains(t, transforms, "clamp:day")
}

func TestComponentConfidence(t *testing.T) {
	full := ComponentConfidence(comps(2023, 6, 15, 14, 30, 45, 123))
	yearOnly := ComponentConfidence(comps(2023))
	outOfRange := ComponentConfidence(comps(2023, 13, 15))
	fractional := ComponentConfidence(comps(2023, 6.5, 15))

	assert.InDelta(t, 0.95, full, 1e-9)
	assert.InDelta(t, 0.65, yearOnly, 1e-9)
	assert.Less(t, outOfRange, ComponentConfidence(comps(2023, 12, 15)))
	assert.Less(t, fractional, ComponentConfidence(comps(2023, 6, 15)))

	tiny := ComponentConfidence(comps(math.NaN(), math.NaN(), math.NaN()))
	assert.Greater(t, tiny, 0.0)
}

func TestFastFields(t *testing.T) {
	f, ok := FastFields(comps(2023, 6, 15, 14, 30, 45, 123))
	require.True(t, ok)
	assert.Equal(t, canon.Fields{Year: 2023, Month: 6, Day: 15, Hour: 14, Minute: 30, Second: 45, Millisecond: 123}, f)

	f, ok = FastFields(comps(2023))
	require.True(t, ok)
	assert.Equal(t, canon.Fields{Year: 2023, Month: 1, Day: 1}, f)

	for _, c := range []Components{
		comps(2023, 2, 29),
		comps(2023, 6.5),
		comps(0),
		comps(2023, 6, 15, 24),
		{},
	} {
		_, ok := FastFields(c)
		assert.False(t, ok)
	}
}

func TestConvertComponents_Zones(t *testing.T) {
	c := comps(2023, 6, 15, 12)
	c.Zone = "Europe/Paris"

	ts, err := ConvertComponents(c, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", ts.Zone())
	assert.Equal(t, 12, ts.Hour())

	ts, err = ConvertComponents(c, Options{TimeZone: "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", ts.Zone())
	assert.Equal(t, 12, ts.Hour(), "wall clock is interpreted in the requested zone")

	c.Zone = "Mars/Olympus"
	_, err = ConvertComponents(c, Options{})
	var ze *canon.ZoneError
	assert.ErrorAs(t, err, &ze)
}
