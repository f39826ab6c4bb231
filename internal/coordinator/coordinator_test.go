package coordinator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atemporal/internal/config"
	"github.com/roach88/atemporal/internal/memo"
	"github.com/roach88/atemporal/internal/metrics"
	"github.com/roach88/atemporal/internal/parse"
	"github.com/roach88/atemporal/internal/store"
	"github.com/roach88/atemporal/internal/testutil"
)

func TestParse_ArrayScenario(t *testing.T) {
	c := newTestCoordinator(nil)

	res := c.Parse([]int{2023, 6, 15, 14, 30, 45, 123}, parse.WithTimeZone("UTC"))
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
	assert.Equal(t, parse.TypeArray, res.Strategy)
	assert.True(t, res.FastPath)
	assert.Equal(t, "attempt-1", res.AttemptID)
}

func TestParse_RecordScenario(t *testing.T) {
	c := newTestCoordinator(nil)

	res := c.Parse(map[string]any{"year": 2023, "month": 1})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, parse.TypeRecord, res.Strategy)
	assert.Equal(t, "2023-01-01T00:00:00+00:00[UTC]", res.Timestamp.String())
}

func TestParse_YearZeroScenario(t *testing.T) {
	c := newTestCoordinator(nil)

	res := c.Parse([]int{0, 1, 1})
	require.False(t, res.OK())
	assert.Nil(t, res.Timestamp)
	assert.Equal(t, "ARRAY_VALIDATION", res.Err.Code)
	assert.Contains(t, res.Err.Error(), "1-9999")
	assert.Equal(t, []int{0, 1, 1}, res.Err.Input)
	assert.Equal(t, parse.TypeArray, res.Err.Strategy)
}

func TestParse_ExternalScenario(t *testing.T) {
	c := newTestCoordinator(nil)
	in := map[string]any{"seconds": 1672531200, "nanoseconds": 500000000}

	res := c.Parse(in)
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, parse.TypeExternal, res.Strategy)
	assert.Equal(t, "2023-01-01T00:00:00.5+00:00[UTC]", res.Timestamp.String())

	res = c.Parse(in, parse.WithTimeZone("America/New_York"))
	require.True(t, res.OK())
	assert.Equal(t, "2022-12-31T19:00:00.5-05:00[America/New_York]", res.Timestamp.String())
}

func TestParse_Fallback(t *testing.T) {
	c := newTestCoordinator(nil)

	for _, in := range []any{nil, struct{}{}, true, []string{"a"}, map[string]any{"week": 3}} {
		res := c.Parse(in)
		require.False(t, res.OK())
		assert.Equal(t, parse.CodeUnparseable, res.Err.Code, "%#v", in)
		assert.Equal(t, parse.TypeFallback, res.Strategy)
		assert.Equal(t, in, res.Err.Input)
	}
}

func TestParse_ShapesRouteToStrategies(t *testing.T) {
	c := newTestCoordinator(nil)
	when := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input any
		want  parse.Type
	}{
		{when, parse.TypeNative},
		{[]float64{2023, 6, 15}, parse.TypeArray},
		{map[string]int{"year": 2023, "month": 6}, parse.TypeRecord},
		{parse.ExternalTimestamp{Seconds: 1}, parse.TypeExternal},
		{int64(1686830400000), parse.TypeNumeric},
		{"2023-06-15T12:00:00Z", parse.TypeText},
	}
	for _, tt := range tests {
		res := c.Parse(tt.input)
		require.True(t, res.OK(), "%#v: %v", tt.input, res.Err)
		assert.Equal(t, tt.want, res.Strategy, "%#v", tt.input)
	}

	canonical := c.Parse(*c.Parse(when).Timestamp)
	require.True(t, canonical.OK())
	assert.Equal(t, parse.TypeCanonical, canonical.Strategy)
}

func TestDispatch_HighestConfidenceWins(t *testing.T) {
	low := &scripted{typ: "low", priority: 100, conf: 0.5, year: 2001}
	high := &scripted{typ: "high", priority: 1, conf: 0.9, year: 2002}
	c := newTestCoordinator(newRegistry(t, low, high))

	res := c.Parse("x")
	require.True(t, res.OK())
	assert.Equal(t, parse.Type("high"), res.Strategy)
	assert.Equal(t, 2002, res.Timestamp.Year())
}

func TestDispatch_PriorityBreaksTies(t *testing.T) {
	a := &scripted{typ: "a", priority: 10, conf: 0.7, year: 2001}
	b := &scripted{typ: "b", priority: 20, conf: 0.7, year: 2002}
	c := newTestCoordinator(newRegistry(t, a, b))

	assert.Equal(t, parse.Type("b"), c.Parse("x").Strategy)
}

func TestDispatch_RegistrationOrderBreaksRemainingTies(t *testing.T) {
	first := &scripted{typ: "first", priority: 10, conf: 0.7, year: 2001}
	second := &scripted{typ: "second", priority: 10, conf: 0.7, year: 2002}

	for i := 0; i < 20; i++ {
		c := newTestCoordinator(newRegistry(t, first, second))
		assert.Equal(t, parse.Type("first"), c.Parse("x").Strategy)
	}
	c := newTestCoordinator(newRegistry(t, second, first))
	assert.Equal(t, parse.Type("second"), c.Parse("x").Strategy)
}

func TestDispatch_RefusingStrategiesAreSkipped(t *testing.T) {
	refuse := &scripted{typ: "refuse", priority: 100, conf: 1, refuse: true}
	zero := &scripted{typ: "zero", priority: 100, conf: 0}
	ok := &scripted{typ: "ok", priority: 1, conf: 0.3, year: 2010}
	c := newTestCoordinator(newRegistry(t, refuse, zero, ok))

	res := c.Parse("x")
	assert.Equal(t, parse.Type("ok"), res.Strategy)
	assert.Zero(t, refuse.parseCalls.Load())
	assert.Zero(t, zero.parseCalls.Load())
}

func TestDispatch_OnlySelectedGetsFastPath(t *testing.T) {
	best := &scripted{typ: "best", conf: 0.9, fast: true, year: 2001}
	other := &scripted{typ: "other", conf: 0.8, fast: true, year: 2002}
	c := newTestCoordinator(newRegistry(t, other, best))

	res := c.Parse("x")
	require.True(t, res.OK())
	assert.True(t, res.FastPath)
	assert.Equal(t, int32(1), best.fastCalls.Load())
	assert.Zero(t, best.parseCalls.Load(), "fast path skips the full pipeline")
	assert.Zero(t, other.fastCalls.Load())
	assert.Zero(t, other.parseCalls.Load())
}

func TestDispatch_DeclinedFastPathRunsFullParse(t *testing.T) {
	s := &scripted{typ: "s", conf: 0.9, year: 2001}
	c := newTestCoordinator(newRegistry(t, s))

	res := c.Parse("x")
	require.True(t, res.OK())
	assert.False(t, res.FastPath)
	assert.Equal(t, int32(1), s.fastCalls.Load())
	assert.Equal(t, int32(1), s.parseCalls.Load())
}

func TestDispatch_NoRetryByDefault(t *testing.T) {
	best := &scripted{typ: "best", conf: 0.9, fail: true}
	next := &scripted{typ: "next", conf: 0.5, year: 2002}
	c := newTestCoordinator(newRegistry(t, best, next))

	res := c.Parse("x")
	require.False(t, res.OK())
	assert.Equal(t, "BEST_VALIDATION", res.Err.Code)
	assert.Zero(t, next.parseCalls.Load())
}

func TestDispatch_RetryOnFailure(t *testing.T) {
	best := &scripted{typ: "best", conf: 0.9, fail: true}
	next := &scripted{typ: "next", conf: 0.5, year: 2002}
	c := newTestCoordinator(newRegistry(t, best, next), WithRetryOnFailure(true))

	res := c.Parse("x")
	require.True(t, res.OK())
	assert.Equal(t, parse.Type("next"), res.Strategy)

	// Every candidate failing reports the best-ranked failure.
	alsoFails := &scripted{typ: "next", conf: 0.5, fail: true}
	c = newTestCoordinator(newRegistry(t, best, alsoFails), WithRetryOnFailure(true))
	res = c.Parse("x")
	require.False(t, res.OK())
	assert.Equal(t, "BEST_VALIDATION", res.Err.Code)
}

func TestDispatch_RetryFromConfig(t *testing.T) {
	best := &scripted{typ: "best", conf: 0.9, fail: true}
	next := &scripted{typ: "next", conf: 0.5, year: 2002}

	t.Cleanup(config.Reset)
	require.NoError(t, config.Set(config.Config{RetryOnFailure: true}))
	c := New(newRegistry(t, best, next), WithLogger(quietLogger()))

	assert.True(t, c.Parse("x").OK())
}

func TestDispatch_RetryFollowsConfigPerCall(t *testing.T) {
	best := &scripted{typ: "best", conf: 0.9, fail: true}
	next := &scripted{typ: "next", conf: 0.5, year: 2002}

	cfg := config.Default()
	c := New(newRegistry(t, best, next),
		WithLogger(quietLogger()),
		WithMemo(nil),
		WithConfig(func() config.Config { return cfg }),
	)
	assert.False(t, c.Parse("x").OK())

	cfg.RetryOnFailure = true
	assert.True(t, c.Parse("x").OK())

	// An explicit option wins over the config source.
	c = New(newRegistry(t, best, next),
		WithLogger(quietLogger()),
		WithMemo(nil),
		WithConfig(func() config.Config { return cfg }),
		WithRetryOnFailure(false),
	)
	assert.False(t, c.Parse("x").OK())
}

func TestDispatch_PanickingStrategyBecomesConversionError(t *testing.T) {
	s := &scripted{typ: "boom", conf: 0.9, panics: true}
	c := newTestCoordinator(newRegistry(t, s))

	var res parse.Result
	require.NotPanics(t, func() { res = c.Parse("x") })
	require.False(t, res.OK())
	assert.Equal(t, "BOOM_CONVERSION", res.Err.Code)
	assert.True(t, parse.IsConversionError(res.Err))
}

func TestRegistry_DuplicateType(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&scripted{typ: "a"}))

	err := r.Register(&scripted{typ: "a"})
	assert.True(t, errors.Is(err, ErrDuplicateType))

	err = r.Register(&scripted{typ: parse.TypeFallback})
	assert.True(t, errors.Is(err, ErrDuplicateType))

	assert.ErrorIs(t, r.Register(nil), ErrNilStrategy)
	assert.Equal(t, 1, r.Len())
	assert.Panics(t, func() { r.MustRegister(&scripted{typ: "a"}) })
}

func TestRegistry_DefaultOrder(t *testing.T) {
	var types []parse.Type
	for _, d := range DefaultRegistry().Descriptors() {
		types = append(types, d.Type)
	}
	assert.Equal(t, []parse.Type{
		parse.TypeCanonical, parse.TypeNative, parse.TypeExternal, parse.TypeRecord,
		parse.TypeArray, parse.TypeNumeric, parse.TypeText, parse.TypeFallback,
	}, types)
}

func TestParse_ZonePriority(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultTimeZone = "Asia/Tokyo"
	c := newTestCoordinator(nil, WithConfig(func() config.Config { return cfg }))
	in := map[string]any{"year": 2023, "month": 6, "day": 15, "hour": 12, "timeZone": "Europe/Paris"}

	res := c.Parse(in)
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, "Asia/Tokyo", res.Timestamp.Zone(), "process default beats embedded zone")

	res = c.Parse(in, parse.WithTimeZone("UTC"))
	require.True(t, res.OK())
	assert.Equal(t, "UTC", res.Timestamp.Zone(), "call site beats process default")

	c = newTestCoordinator(nil)
	res = c.Parse(in)
	require.True(t, res.OK())
	assert.Equal(t, "Europe/Paris", res.Timestamp.Zone(), "embedded zone without defaults")
	assert.Equal(t, 12, res.Timestamp.Hour())
}

func TestParse_ProcessDefaultZone(t *testing.T) {
	t.Cleanup(config.Reset)
	require.NoError(t, config.SetDefaultTimeZone("America/New_York"))

	c := New(nil, WithLogger(quietLogger()), WithMemo(nil))
	res := c.Parse([]int{2023, 1, 1})
	require.True(t, res.OK())
	assert.Equal(t, "America/New_York", res.Timestamp.Zone())
}

func TestParse_StrictFromOptions(t *testing.T) {
	c := newTestCoordinator(nil)

	assert.True(t, c.Parse([]float64{2023, 6, 15.5}).OK())

	res := c.Parse([]float64{2023, 6, 15.5}, parse.WithStrict(true))
	require.False(t, res.OK())
	assert.Equal(t, "ARRAY_VALIDATION", res.Err.Code)
}

func TestParse_ElapsedAndClockFallback(t *testing.T) {
	c := newTestCoordinator(nil, WithClock(testutil.NewStepClock(time.Time{}, time.Millisecond)))
	res := c.Parse([]int{2023, 6, 15})
	require.True(t, res.OK())
	assert.Positive(t, res.Elapsed)

	for _, clk := range []parse.Clock{testutil.PanicClock{}, testutil.ZeroClock{}, nil} {
		c = newTestCoordinator(nil, WithClock(clk))
		res = c.Parse([]int{2023, 6, 15})
		assert.True(t, res.OK(), "a broken clock never fails a parse")
		assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))

		res = c.Parse([]int{0})
		require.False(t, res.OK())
		assert.Equal(t, res.Elapsed, res.Err.Elapsed)
	}
}

func TestMemo_CachesCacheableResults(t *testing.T) {
	m := memo.New[parse.Result]()
	c := newTestCoordinator(nil, WithMemo(m))
	in := []int{2023, 6, 15, 14, 30, 45, 123}

	first := c.Parse(in)
	require.True(t, first.OK())
	assert.False(t, first.Cached)

	second := c.Parse(in)
	require.True(t, second.OK())
	assert.True(t, second.Cached)
	assert.True(t, first.Timestamp.Equal(*second.Timestamp))
	assert.Equal(t, "attempt-2", second.AttemptID)

	// Different options are a different key.
	third := c.Parse(in, parse.WithTimeZone("Asia/Tokyo"))
	assert.False(t, third.Cached)
	assert.Equal(t, "Asia/Tokyo", third.Timestamp.Zone())

	st := c.MemoStats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, 2, st.Size)
}

func TestMemo_SkipsFailuresAndLowConfidence(t *testing.T) {
	m := memo.New[parse.Result]()
	c := newTestCoordinator(nil, WithMemo(m))

	c.Parse([]int{0, 1, 1})
	assert.False(t, c.Parse([]int{0, 1, 1}).Cached, "failures are not memoized")

	// Epoch-millisecond text has confidence 0.6.
	c.Parse("1686830400000")
	assert.False(t, c.Parse("1686830400000").Cached)

	s := &scripted{typ: "s", conf: 0.9, year: 2001, cacheable: false}
	c = newTestCoordinator(newRegistry(t, s), WithMemo(memo.New[parse.Result]()))
	c.Parse("x")
	assert.False(t, c.Parse("x").Cached)
	assert.Equal(t, int32(2), s.parseCalls.Load())
}

func TestMemo_UnkeyableInputStillParses(t *testing.T) {
	c := newTestCoordinator(nil, WithMemo(memo.New[parse.Result]()))
	res := c.Parse(func() {})
	require.False(t, res.OK())
	assert.Equal(t, parse.CodeUnparseable, res.Err.Code)
}

func TestMemo_ResultsAreDetached(t *testing.T) {
	s := &scripted{typ: "s", conf: 0.9, year: 2001, cacheable: true, transforms: []string{"round:second"}}
	c := newTestCoordinator(newRegistry(t, s), WithMemo(memo.New[parse.Result]()))

	first := c.Parse("x")
	require.True(t, first.OK())
	require.Len(t, first.Transforms, 1)
	first.Transforms[0] = "mutated"

	second := c.Parse("x")
	require.True(t, second.Cached)
	assert.Equal(t, "round:second", second.Transforms[0])
	assert.Equal(t, int32(1), s.parseCalls.Load())
}

func TestMemo_UnnamedFixedZonesAreDistinct(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	c := newTestCoordinator(nil, WithMemo(memo.New[parse.Result]()), WithPersistentCache(st))
	instant := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)

	plusOne := c.Parse(instant.In(time.FixedZone("", 3600)))
	require.True(t, plusOne.OK(), "%v", plusOne.Err)
	assert.Equal(t, "+01:00", plusOne.Timestamp.Zone())

	plusTwo := c.Parse(instant.In(time.FixedZone("", 7200)))
	require.True(t, plusTwo.OK(), "%v", plusTwo.Err)
	assert.False(t, plusTwo.Cached)
	assert.Equal(t, "+02:00", plusTwo.Timestamp.Zone())
	assert.Equal(t, 14, plusTwo.Timestamp.Fields().Hour)

	// A fresh coordinator over the same store keeps them apart too.
	fresh := newTestCoordinator(nil, WithPersistentCache(st))
	again := fresh.Parse(instant.In(time.FixedZone("", 7200)))
	require.True(t, again.OK())
	assert.True(t, again.Cached)
	assert.Equal(t, "+02:00", again.Timestamp.Zone())
}

func TestPersistentCache(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	in := []int{2023, 6, 15, 14, 30, 45, 123}

	c1 := newTestCoordinator(nil, WithPersistentCache(s))
	first := c1.ParseContext(context.Background(), in)
	require.True(t, first.OK())
	assert.False(t, first.Cached)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	c2 := newTestCoordinator(nil, WithPersistentCache(s), WithMemo(memo.New[parse.Result]()))
	second := c2.Parse(in)
	require.True(t, second.OK())
	assert.True(t, second.Cached)
	assert.Equal(t, first.Timestamp.String(), second.Timestamp.String())
	assert.Equal(t, parse.TypeArray, second.Strategy)

	// Promoted into the in-process memo.
	assert.True(t, c2.Parse(in).Cached)
	assert.Equal(t, int64(1), c2.MemoStats().Hits)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (store.Entry, bool, error) {
	return store.Entry{}, false, errors.New("disk on fire")
}

func (failingCache) Put(context.Context, store.Entry) error {
	return errors.New("disk on fire")
}

func TestPersistentCache_FailuresAreNotFatal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := newTestCoordinator(nil, WithPersistentCache(failingCache{}), WithMetrics(m))

	res := c.Parse([]int{2023, 6, 15, 14, 30, 45, 123})
	require.True(t, res.OK())
	assert.Equal(t, 2.0, prom.ToFloat64(m.CacheTotal.WithLabelValues(metrics.LevelPersistent, metrics.CacheError)))
}

func TestMetrics_Recorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := newTestCoordinator(nil, WithMetrics(m), WithMemo(memo.New[parse.Result]()))
	in := []int{2023, 6, 15, 14, 30, 45, 123}

	c.Parse(in)
	c.Parse(in)
	c.Parse([]int{0})

	assert.Equal(t, 2.0, prom.ToFloat64(m.ParseTotal.WithLabelValues("array", metrics.ResultOK)))
	assert.Equal(t, 1.0, prom.ToFloat64(m.ParseTotal.WithLabelValues("array", metrics.ResultError)))
	assert.Equal(t, 1.0, prom.ToFloat64(m.FastPathTotal.WithLabelValues("array")))
	assert.Equal(t, 1.0, prom.ToFloat64(m.CacheTotal.WithLabelValues(metrics.LevelMemory, metrics.CacheHit)))
	assert.Equal(t, 2.0, prom.ToFloat64(m.CacheTotal.WithLabelValues(metrics.LevelMemory, metrics.CacheMiss)))
}

func TestParse_Concurrent(t *testing.T) {
	c := newTestCoordinator(nil, WithMemo(memo.New[parse.Result](memo.WithMaxEntries(8))))
	inputs := []any{
		[]int{2023, 6, 15, 14, 30, 45, 123},
		map[string]any{"year": 2024, "month": 2, "day": 29},
		"2023-06-15T12:00:00Z",
		int64(1686830400000),
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res := c.Parse(inputs[(g+i)%len(inputs)])
				assert.True(t, res.OK())
			}
		}()
	}
	wg.Wait()
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Equal(t, "attempt", NewFixedGenerator().Generate())

	assert.Len(t, UUIDv7Generator{}.Generate(), 36)
}
