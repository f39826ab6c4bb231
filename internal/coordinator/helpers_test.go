package coordinator

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/config"
	"github.com/roach88/atemporal/internal/parse"
	"github.com/roach88/atemporal/internal/testutil"
)

// scripted is a strategy whose every answer is set by the test.
type scripted struct {
	typ       parse.Type
	priority  int
	conf      float64
	refuse    bool
	fast      bool
	fail      bool
	panics    bool
	cacheable bool
	year      int
	// transforms is returned by Normalize.
	transforms []string

	fastCalls  atomic.Int32
	parseCalls atomic.Int32
}

func (s *scripted) Descriptor() parse.Descriptor {
	return parse.Descriptor{Type: s.typ, Priority: s.priority}
}

func (s *scripted) CanHandle(any, *parse.Context) bool { return !s.refuse }

func (s *scripted) Confidence(any, *parse.Context) float64 {
	if s.refuse {
		return 0
	}
	return s.conf
}

func (s *scripted) Validate(input any, _ *parse.Context) parse.ValidationResult {
	return parse.ValidationResult{Valid: !s.fail, Input: input, Confidence: s.conf}
}

func (s *scripted) Normalize(input any, _ *parse.Context) parse.NormalizationResult {
	return parse.NormalizationResult{Normalized: input, Transforms: s.transforms}
}

func (s *scripted) Convert(any, *parse.Context) (canon.Timestamp, error) {
	return canon.New(canon.Fields{Year: s.year, Month: 1, Day: 1}, canon.UTC, "")
}

func (s *scripted) Parse(input any, ctx *parse.Context) parse.Result {
	s.parseCalls.Add(1)
	if s.panics {
		panic("scripted panic")
	}
	if s.fail {
		return parse.Result{
			Err:      parse.NewError(s.typ, parse.ClassValidation, input, "scripted failure"),
			Strategy: s.typ,
		}
	}
	return parse.Run(s, input, ctx)
}

func (s *scripted) CheckFastPath(input any, ctx *parse.Context) parse.FastPathResult {
	s.fastCalls.Add(1)
	if !s.fast {
		return parse.FastPathFailure(s.typ, s.conf)
	}
	ts, _ := s.Convert(input, ctx)
	return parse.FastPathAccept(s.typ, ts, s.conf)
}

func (s *scripted) OptimizationHints(any, *parse.Context) parse.OptimizationHints {
	return parse.OptimizationHints{Cost: parse.CostLow, Cacheable: s.cacheable}
}

// newRegistry registers strategies in order.
func newRegistry(t *testing.T, strategies ...parse.Strategy) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	for _, s := range strategies {
		if err := r.Register(s); err != nil {
			t.Fatalf("Register(%s) failed: %v", s.Descriptor().Type, err)
		}
	}
	return r
}

// quietLogger discards output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestCoordinator builds a coordinator isolated from process
// configuration, with sequential attempt IDs and no memo unless opts add one.
func newTestCoordinator(reg *Registry, opts ...Option) *Coordinator {
	base := []Option{
		WithLogger(quietLogger()),
		WithIDGenerator(testutil.NewSequentialIDGenerator("attempt")),
		WithConfig(func() config.Config { return config.Default() }),
		WithMemo(nil),
		WithRetryOnFailure(false),
	}
	return New(reg, append(base, opts...)...)
}
