package parse

import "time"

// Clock supplies timestamps for elapsed-time instrumentation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the monotonic wall clock.
type SystemClock struct{}

// Now returns time.Now, which carries a monotonic reading.
func (SystemClock) Now() time.Time { return time.Now() }

// coarseNow is the fallback clock: wall time at millisecond resolution with
// the monotonic reading stripped.
func coarseNow() time.Time {
	return time.Now().Round(0).Truncate(time.Millisecond)
}

// SafeNow reads clk, substituting the coarse clock when clk is nil, panics,
// or returns the zero time. The second result reports the substitution.
func SafeNow(clk Clock) (t time.Time, coarse bool) {
	if clk == nil {
		return coarseNow(), true
	}
	defer func() {
		if r := recover(); r != nil {
			t, coarse = coarseNow(), true
		}
	}()
	t = clk.Now()
	if t.IsZero() {
		return coarseNow(), true
	}
	return t, false
}
