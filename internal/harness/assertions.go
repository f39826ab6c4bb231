package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// AssertionError is returned when an assertion fails.
// It includes the strategies of the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		outcome := ev.Timestamp
		if !ev.OK {
			outcome = ev.Code
		}
		fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Seq, ev.Strategy, outcome)
	}
	return buf.String()
}

// evaluateAssertion dispatches to the checker for a.Type.
func evaluateAssertion(trace []TraceEvent, a Assertion) error {
	switch a.Type {
	case AssertStrategyUsed:
		return assertStrategyUsed(trace, a)
	case AssertStrategyOrder:
		return assertStrategyOrder(trace, a)
	case AssertStrategyCount:
		return assertCount(trace, a, fmt.Sprintf("%d results from %s", a.Count, a.Strategy),
			func(ev TraceEvent) bool { return ev.Strategy == a.Strategy })
	case AssertFailureCount:
		return assertCount(trace, a, fmt.Sprintf("%d failures", a.Count),
			func(ev TraceEvent) bool { return !ev.OK })
	case AssertCachedCount:
		return assertCount(trace, a, fmt.Sprintf("%d cached results", a.Count),
			func(ev TraceEvent) bool { return ev.Cached })
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertStrategyUsed(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Strategy == a.Strategy {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("a result from %s", a.Strategy),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertStrategyOrder checks that the strategies appear in order.
// Intervening events are allowed.
func assertStrategyOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Strategies) && ev.Strategy == a.Strategies[next] {
			next++
		}
	}
	if next == len(a.Strategies) {
		return nil
	}

	actual := make([]string, len(trace))
	for i, ev := range trace {
		actual[i] = ev.Strategy
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("strategies in order %v", a.Strategies),
		Actual:   fmt.Sprintf("%v (first missing: %s)", actual, a.Strategies[next]),
		Trace:    trace,
	}
}

func assertCount(trace []TraceEvent, a Assertion, expected string, match func(TraceEvent) bool) error {
	n := 0
	for _, ev := range trace {
		if match(ev) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   fmt.Sprintf("%d", n),
		Trace:    trace,
	}
}

// checkExpect compares res with e and returns one message per mismatch.
func checkExpect(e *Expect, res parse.Result) []string {
	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("%s: expected %v, got %v", field, want, got))
	}

	failing := e.Code != "" || e.MessageContains != ""
	switch {
	case failing && res.OK():
		errs = append(errs, fmt.Sprintf("expected failure, got %s", res.Timestamp))
	case !failing && !res.OK():
		errs = append(errs, fmt.Sprintf("expected success, got %v", res.Err))
	}

	if e.Timestamp != "" && res.OK() && res.Timestamp.String() != e.Timestamp {
		mismatch("timestamp", e.Timestamp, res.Timestamp.String())
	}
	if e.Code != "" && res.Err != nil && res.Err.Code != e.Code {
		mismatch("code", e.Code, res.Err.Code)
	}
	if e.MessageContains != "" && res.Err != nil && !strings.Contains(res.Err.Error(), e.MessageContains) {
		errs = append(errs, fmt.Sprintf("message: %q does not contain %q", res.Err.Error(), e.MessageContains))
	}
	if e.Strategy != "" && string(res.Strategy) != e.Strategy {
		mismatch("strategy", e.Strategy, res.Strategy)
	}
	if e.FastPath != nil && res.FastPath != *e.FastPath {
		mismatch("fast_path", *e.FastPath, res.FastPath)
	}
	if e.Cached != nil && res.Cached != *e.Cached {
		mismatch("cached", *e.Cached, res.Cached)
	}

	if len(e.Fields) > 0 && res.OK() {
		got := fieldMap(res.Timestamp.Fields())
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			v, ok := got[name]
			if !ok {
				errs = append(errs, fmt.Sprintf("fields: unknown field %q", name))
				continue
			}
			if v != e.Fields[name] {
				mismatch("fields."+name, e.Fields[name], v)
			}
		}
	}
	return errs
}

func fieldMap(f canon.Fields) map[string]int {
	return map[string]int{
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
}
