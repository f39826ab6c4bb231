package parse

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atemporal/internal/canon"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "ARRAY_VALIDATION", ErrorCode(TypeArray, ClassValidation))
	assert.Equal(t, "TEXT_CONVERSION", ErrorCode(TypeText, ClassConversion))
	assert.Equal(t, "RECORD_IMPOSSIBLE_DATE", ErrorCode(TypeRecord, ClassImpossibleDate))
	assert.Equal(t, CodeUnparseable, ErrorCode(TypeFallback, ClassUnparseable))
}

func TestValidationFailure_Class(t *testing.T) {
	rangeOnly := ValidationFailure(TypeArray, nil, []Issue{{Field: "year", Code: CodeRange, Message: "year 0 out of range 1-9999"}})
	assert.Equal(t, ClassValidation, rangeOnly.Class)
	assert.Equal(t, "year 0 out of range 1-9999", rangeOnly.Message)

	impossible := ValidationFailure(TypeArray, nil, []Issue{
		{Field: "hour", Code: CodeRange, Message: "hour 25 out of range 0-23"},
		{Field: "day", Code: CodeImpossibleDate, Message: "day 30 does not exist in 2023-02"},
	})
	assert.Equal(t, ClassImpossibleDate, impossible.Class)
	assert.Equal(t, "2 validation errors", impossible.Message)
	assert.Contains(t, impossible.Error(), "hour: hour 25 out of range 0-23; day: day 30 does not exist in 2023-02")

	zone := ValidationFailure(TypeRecord, nil, []Issue{
		{Field: "day", Code: CodeImpossibleDate},
		{Field: "timeZone", Code: CodeZone},
	})
	assert.Equal(t, ClassZone, zone.Class)
	assert.Equal(t, "RECORD_ZONE", zone.Code)
}

func TestConversionFailure(t *testing.T) {
	_, zerr := canon.New(canon.Fields{Year: 2023, Month: 1, Day: 1}, "Nowhere/Special", canon.ISO8601)
	require.Error(t, zerr)

	e := ConversionFailure(TypeText, "x", zerr)
	assert.Equal(t, ClassZone, e.Class)
	assert.Equal(t, "TEXT_ZONE", e.Code)
	assert.True(t, IsZoneError(e))

	_, rerr := canon.New(canon.Fields{Year: 2023, Month: 2, Day: 30}, "UTC", canon.ISO8601)
	e = ConversionFailure(TypeText, "x", rerr)
	assert.Equal(t, ClassConversion, e.Class)
	assert.True(t, IsConversionError(e))
	var re *canon.RangeError
	assert.ErrorAs(t, e, &re)

	inner := NewError(TypeArray, ClassValidation, nil, "inner")
	assert.Same(t, inner, ConversionFailure(TypeText, "x", fmt.Errorf("wrapped: %w", inner)))
}

func TestErrorHelpers_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", Unparseable(TypeFallback, struct{}{}))
	assert.True(t, IsUnparseable(err))
	assert.False(t, IsValidationError(err))
	assert.False(t, IsConversionError(err))
	assert.False(t, IsZoneError(err))

	v := fmt.Errorf("outer: %w", ValidationFailure(TypeArray, nil, []Issue{{Code: CodeImpossibleDate}}))
	assert.True(t, IsValidationError(v))
	assert.True(t, IsImpossibleDate(v))

	assert.False(t, IsValidationError(errors.New("plain")))
}

func TestUnparseable(t *testing.T) {
	e := Unparseable(TypeFallback, nil)
	assert.Equal(t, CodeUnparseable, e.Code)
	assert.Equal(t, "unparseable input of type <nil>", e.Message)
	assert.Equal(t, "UNPARSEABLE: unparseable input of type <nil> [strategy=fallback]", e.Error())
}
