package cachekey

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T, b *Builder) string {
	t.Helper()
	key, err := b.Key()
	require.NoError(t, err)
	return key
}

func TestBuilder_Deterministic(t *testing.T) {
	build := func() string {
		return mustKey(t, NewBuilder(4).Tag("x").String("a").Int(42).Bool(true))
	}
	first := build()
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, build())
	}
	assert.Equal(t, "x|'a|#42|1", first)
}

func TestBuilder_RecordOrderIndependent(t *testing.T) {
	a := map[string]any{}
	b := map[string]any{}
	keys := []string{"zone", "calendar", "strict", "locale", "a", "b", "c"}
	for i, k := range keys {
		a[k] = i
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b[keys[i]] = i
	}

	ka := mustKey(t, NewBuilder(1).Record(a))
	kb := mustKey(t, NewBuilder(1).Record(b))
	assert.Equal(t, ka, kb)
	assert.True(t, strings.HasPrefix(ka, "{a:#4,b:#5,c:#6,calendar:#1"))
}

func TestBuilder_NestedRecordsSorted(t *testing.T) {
	v := map[string]any{
		"outer": map[string]any{"z": 1, "a": []any{"x", 2, nil}},
		"first": true,
	}
	assert.Equal(t, "{first:1,outer:{a:['x,#2,~],z:#1}}", mustKey(t, NewBuilder(1).Value(v)))
}

func TestBuilder_TypeDistinctions(t *testing.T) {
	values := []any{"1", 1, true, nil, "true", "", []any{}, map[string]any{}}
	seen := map[string]any{}
	for _, v := range values {
		key := mustKey(t, NewBuilder(1).Value(v))
		prev, dup := seen[key]
		assert.False(t, dup, "%#v collides with %#v as %q", v, prev, key)
		seen[key] = v
	}
}

func TestBuilder_IntegralFloatMatchesInt(t *testing.T) {
	assert.Equal(t,
		mustKey(t, NewBuilder(1).Value(3)),
		mustKey(t, NewBuilder(1).Value(3.0)))
	assert.Equal(t,
		mustKey(t, NewBuilder(1).Value(int64(1686839445123))),
		mustKey(t, NewBuilder(1).Value(json.Number("1686839445123"))))
	assert.NotEqual(t,
		mustKey(t, NewBuilder(1).Value(3)),
		mustKey(t, NewBuilder(1).Value(3.5)))
}

func TestBuilder_SpecialFloats(t *testing.T) {
	assert.Equal(t, "#NaN", mustKey(t, NewBuilder(1).Float(math.NaN())))
	assert.Equal(t, "#+Inf", mustKey(t, NewBuilder(1).Float(math.Inf(1))))
	assert.Equal(t, "#-Inf", mustKey(t, NewBuilder(1).Float(math.Inf(-1))))
}

func TestBuilder_UnicodeNormalization(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	require.NotEqual(t, composed, decomposed)

	assert.Equal(t,
		mustKey(t, NewBuilder(1).String(composed)),
		mustKey(t, NewBuilder(1).String(decomposed)))
	assert.Equal(t,
		mustKey(t, NewBuilder(1).Record(map[string]any{composed: 1})),
		mustKey(t, NewBuilder(1).Record(map[string]any{decomposed: 1})))
}

func TestBuilder_EscapesDelimiters(t *testing.T) {
	split := mustKey(t, NewBuilder(2).String("a").String("b"))
	joined := mustKey(t, NewBuilder(1).String("a|'b"))
	assert.NotEqual(t, split, joined)
	assert.Equal(t, `'a\|'b`, joined)
}

func TestBuilder_EscapesControlCharacters(t *testing.T) {
	key := mustKey(t, NewBuilder(1).String("line\nbreak\x00"))
	assert.NotContains(t, key, "\n")
	assert.NotContains(t, key, "\x00")
	assert.NoError(t, Validate(key))
}

func TestBuilder_Time(t *testing.T) {
	ts := time.Date(2023, 6, 15, 14, 30, 45, 123_000_000, time.UTC)
	assert.Equal(t, "^1686839445.123000000@UTC,UTC,0", mustKey(t, NewBuilder(1).Value(ts)))
}

func TestBuilder_TimeUnnamedFixedZones(t *testing.T) {
	instant := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	plusOne := instant.In(time.FixedZone("", 3600))
	plusTwo := instant.In(time.FixedZone("", 7200))

	a := mustKey(t, NewBuilder(1).Value(plusOne))
	b := mustKey(t, NewBuilder(1).Value(plusTwo))
	assert.NotEqual(t, a, b)
	assert.Equal(t, "^1686830400.000000000@,,3600", a)

	pa, err := ForParse(plusOne, "", "", false)
	require.NoError(t, err)
	pb, err := ForParse(plusTwo, "", "", false)
	require.NoError(t, err)
	assert.NotEqual(t, pa, pb)
}

type keyed struct{ id string }

func (k keyed) CacheKey() string { return "k:" + k.id }

func TestBuilder_Keyer(t *testing.T) {
	assert.Equal(t, `@k\:abc`, mustKey(t, NewBuilder(1).Value(keyed{id: "abc"})))
}

func TestBuilder_TypedCollections(t *testing.T) {
	assert.Equal(t, "['a,'b]", mustKey(t, NewBuilder(1).Value([]string{"a", "b"})))
	assert.Equal(t, "{x:#1}", mustKey(t, NewBuilder(1).Value(map[string]int{"x": 1})))

	n := 5
	assert.Equal(t, "#5", mustKey(t, NewBuilder(1).Value(&n)))
	var nilPtr *int
	assert.Equal(t, "~", mustKey(t, NewBuilder(1).Value(nilPtr)))
}

func TestBuilder_Unkeyable(t *testing.T) {
	type plain struct{ A int }

	_, err := NewBuilder(1).Value(plain{A: 1}).Key()
	assert.ErrorIs(t, err, ErrUnkeyable)

	_, err = NewBuilder(1).Value(map[int]string{1: "a"}).Key()
	assert.ErrorIs(t, err, ErrUnkeyable)

	_, err = NewBuilder(1).Value(func() {}).Key()
	assert.ErrorIs(t, err, ErrUnkeyable)

	_, err = NewBuilder(1).Value(map[string]any{"inner": plain{}}).Key()
	assert.ErrorIs(t, err, ErrUnkeyable)
	assert.Contains(t, err.Error(), `record["inner"]`)
}

func TestBuilder_ErrorIsSticky(t *testing.T) {
	type plain struct{}
	b := NewBuilder(3).String("a").Value(plain{}).String("b")
	assert.Equal(t, 1, b.Len())
	assert.ErrorIs(t, b.Err(), ErrUnkeyable)

	b.Reset()
	assert.NoError(t, b.Err())
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, "'c", mustKey(t, b.String("c")))
}

func TestBuilder_ZeroValueUsable(t *testing.T) {
	var b Builder
	assert.Equal(t, "#1|~", mustKey(t, b.Int(1).Nil()))
}

func TestCompareUTF16(t *testing.T) {
	// U+FF61 sorts after U+1F600 in UTF-8 byte order but before it in UTF-16.
	assert.Equal(t, -1, compareUTF16("\U0001F600", "｡"))
	assert.Equal(t, 0, compareUTF16("abc", "abc"))
	assert.Equal(t, -1, compareUTF16("ab", "abc"))
	assert.Equal(t, 1, compareUTF16("b", "a"))
}

func TestBuilder_ListOrderMatters(t *testing.T) {
	a := mustKey(t, NewBuilder(1).List(2023, 6, 15))
	b := mustKey(t, NewBuilder(1).List(2023, 15, 6))
	assert.Equal(t, "[#2023,#6,#15]", a)
	assert.NotEqual(t, a, b)
}
