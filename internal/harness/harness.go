package harness

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/config"
	"github.com/roach88/atemporal/internal/coordinator"
	"github.com/roach88/atemporal/internal/memo"
	"github.com/roach88/atemporal/internal/parse"
	"github.com/roach88/atemporal/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh coordinator isolated from process
// configuration. Expectation and assertion failures are reported in the
// result; the error is reserved for steps that cannot be executed.
func Run(scenario *Scenario) (*Result, error) {
	c := newCoordinator(scenario)
	result := NewResult()

	for i, step := range scenario.Flow {
		input, err := inputFor(step)
		if err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}

		res := c.Parse(input, stepOptions(scenario.Options, step)...)
		result.AddTrace(traceEvent(i+1, input, res))

		if step.Expect != nil {
			for _, msg := range checkExpect(step.Expect, res) {
				result.AddError(fmt.Sprintf("flow[%d]: %s", i, msg))
			}
		}
	}

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(result.Trace, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

func newCoordinator(s *Scenario) *coordinator.Coordinator {
	cfg := config.Default()
	cfg.DefaultTimeZone = s.Options.DefaultZone
	cfg.Strict = s.Options.Strict

	var m *memo.Cache[parse.Result]
	if s.Options.Memo {
		m = memo.New[parse.Result]()
	}

	return coordinator.New(nil,
		coordinator.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		coordinator.WithConfig(func() config.Config { return cfg }),
		coordinator.WithMemo(m),
		coordinator.WithRetryOnFailure(s.Options.Retry),
		coordinator.WithIDGenerator(testutil.NewSequentialIDGenerator(s.Name)),
		coordinator.WithClock(testutil.NewStepClock(time.Time{}, time.Millisecond)),
	)
}

// stepOptions layers the step's overrides over the scenario options.
func stepOptions(o ScenarioOptions, step Step) []parse.Option {
	var opts []parse.Option
	zone := o.Zone
	if step.Zone != nil {
		zone = *step.Zone
	}
	if zone != "" {
		opts = append(opts, parse.WithTimeZone(zone))
	}

	cal := o.Calendar
	if step.Calendar != "" {
		cal = step.Calendar
	}
	if cal != "" {
		opts = append(opts, parse.WithCalendar(canon.Calendar(cal)))
	}

	if step.Strict != nil {
		opts = append(opts, parse.WithStrict(*step.Strict))
	}
	return opts
}

// inputFor applies the step's conversion to its raw input.
func inputFor(step Step) (any, error) {
	switch step.As {
	case "":
		return step.Input, nil
	case AsNative:
		s, ok := step.Input.(string)
		if !ok {
			return nil, fmt.Errorf("native input must be an RFC 3339 string, got %T", step.Input)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("native input: %w", err)
		}
		return t, nil
	case AsExternal:
		m, ok := step.Input.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("external input must be a record, got %T", step.Input)
		}
		var ext parse.ExternalTimestamp
		for k, v := range m {
			n, ok := v.(int)
			if !ok {
				return nil, fmt.Errorf("external input: %s must be an integer, got %T", k, v)
			}
			switch k {
			case "seconds":
				ext.Seconds = int64(n)
			case "nanoseconds":
				ext.Nanoseconds = int64(n)
			default:
				return nil, fmt.Errorf("external input: unknown field %q", k)
			}
		}
		return ext, nil
	}
	return nil, fmt.Errorf("unknown conversion %q", step.As)
}

func traceEvent(seq int, input any, res parse.Result) TraceEvent {
	ev := TraceEvent{
		Seq:        seq,
		Input:      input,
		Strategy:   string(res.Strategy),
		OK:         res.OK(),
		Confidence: math.Round(res.Confidence*100) / 100,
		FastPath:   res.FastPath,
		Cached:     res.Cached,
		Transforms: res.Transforms,
		AttemptID:  res.AttemptID,
	}
	if res.OK() {
		ev.Timestamp = res.Timestamp.String()
	}
	if res.Err != nil {
		ev.Code = res.Err.Code
	}
	return ev
}
