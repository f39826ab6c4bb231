package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/atemporal/internal/cachekey"
	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/config"
	"github.com/roach88/atemporal/internal/memo"
	"github.com/roach88/atemporal/internal/metrics"
	"github.com/roach88/atemporal/internal/parse"
	"github.com/roach88/atemporal/internal/store"
)

// PersistentCache is the second memo level. Implemented by store.Store.
type PersistentCache interface {
	Get(ctx context.Context, key string) (store.Entry, bool, error)
	Put(ctx context.Context, e store.Entry) error
}

// Coordinator dispatches parse calls across a Registry.
//
// Thread-safety: a Coordinator is safe for concurrent use once built. Each
// call gets its own parse.Context; only the memo levels are shared.
type Coordinator struct {
	registry   *Registry
	logger     *slog.Logger
	metrics    *metrics.Metrics
	memo       *memo.Cache[parse.Result]
	persistent PersistentCache
	ids        IDGenerator
	clock      parse.Clock
	config     func() config.Config
	retry      *bool // nil defers to the config source on every call
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records every attempt into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithMemo sets the in-process memo. A nil cache disables it.
func WithMemo(m *memo.Cache[parse.Result]) Option {
	return func(c *Coordinator) { c.memo = m }
}

// WithPersistentCache adds a second memo level behind the in-process one.
func WithPersistentCache(p PersistentCache) Option {
	return func(c *Coordinator) { c.persistent = p }
}

// WithIDGenerator sets the attempt ID source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Coordinator) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithClock sets the elapsed-time clock. Default: parse.SystemClock.
func WithClock(clk parse.Clock) Option {
	return func(c *Coordinator) { c.clock = clk }
}

// WithConfig sets the source of process defaults. Default: config.Current.
func WithConfig(fn func() config.Config) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.config = fn
		}
	}
}

// WithRetryOnFailure lets a failed parse fall through to the next-ranked
// candidate, overriding the configured RetryOnFailure. Off by default: the
// best-confidence failure is reported.
func WithRetryOnFailure(retry bool) Option {
	return func(c *Coordinator) { c.retry = &retry }
}

// New creates a Coordinator over reg. A nil reg selects DefaultRegistry.
// The in-process memo defaults to one sized by the process configuration
// current at construction; later config changes do not resize it. Zone,
// calendar, strict and retry settings are read from the config source on
// every call.
func New(reg *Registry, opts ...Option) *Coordinator {
	if reg == nil {
		reg = DefaultRegistry()
	}
	c := &Coordinator{
		registry: reg,
		logger:   slog.Default(),
		ids:      UUIDv7Generator{},
		clock:    parse.SystemClock{},
		config:   config.Current,
	}
	cfg := config.Current()
	if cfg.CacheSize > 0 {
		c.memo = memo.New[parse.Result](memo.WithMaxEntries(cfg.CacheSize), memo.WithTTL(cfg.CacheTTL))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the strategies the coordinator dispatches to.
func (c *Coordinator) Registry() *Registry { return c.registry }

// MemoStats returns the in-process memo counters, zero when disabled.
func (c *Coordinator) MemoStats() memo.Stats {
	if c.memo == nil {
		return memo.Stats{}
	}
	return c.memo.Stats()
}

// Options resolves opts over the process defaults.
func (c *Coordinator) Options(opts ...parse.Option) parse.Options {
	cfg := c.config()
	return parse.Resolve(parse.Options{
		TimeZone: cfg.DefaultTimeZone,
		Calendar: canon.Calendar(cfg.DefaultCalendar),
		Strict:   cfg.Strict,
	}, opts...)
}

// Parse is ParseContext with a background context.
func (c *Coordinator) Parse(input any, opts ...parse.Option) parse.Result {
	return c.ParseContext(context.Background(), input, opts...)
}

// ParseContext parses input. ctx bounds persistent cache access only;
// parsing itself never blocks.
func (c *Coordinator) ParseContext(ctx context.Context, input any, opts ...parse.Option) parse.Result {
	options := c.Options(opts...)
	pctx := parse.NewContext(input, options, c.clock, c.ids.Generate())

	key, keyErr := cachekey.ForParse(input, options.TimeZone, string(options.Calendar), options.Strict)
	if keyErr != nil {
		c.logger.Debug("input not memoizable",
			"attempt", pctx.AttemptID,
			"error", keyErr,
		)
		return c.finish(pctx, c.dispatch(ctx, "", input, pctx))
	}
	key = cachekey.Bound(key)

	if c.memo == nil {
		return c.finish(pctx, c.dispatch(ctx, key, input, pctx))
	}

	res, hit := c.memo.GetOrCompute(key, func() (parse.Result, bool) {
		return c.lookupOrDispatch(ctx, key, input, pctx)
	})
	if hit {
		c.metrics.ObserveCache(metrics.LevelMemory, metrics.CacheHit)
		res.Cached = true
	}
	return c.finish(pctx, res)
}

// finish stamps the caller's attempt on res and records it.
func (c *Coordinator) finish(pctx *parse.Context, res parse.Result) parse.Result {
	res = detach(res)
	res.AttemptID = pctx.AttemptID
	res.Elapsed = pctx.Elapsed()
	if res.Err != nil {
		res.Err.Elapsed = res.Elapsed
	}

	if pctx.CoarseClock() {
		c.logger.Warn("clock unavailable, using coarse clock", "attempt", pctx.AttemptID)
	}
	c.metrics.ObserveParse(string(res.Strategy), res.OK(), res.Elapsed)
	if res.OK() {
		c.logger.Debug("parse succeeded",
			"attempt", pctx.AttemptID,
			"strategy", res.Strategy,
			"confidence", res.Confidence,
			"fast_path", res.FastPath,
			"cached", res.Cached,
		)
	} else {
		c.logger.Debug("parse failed",
			"attempt", pctx.AttemptID,
			"strategy", res.Strategy,
			"code", res.Err.Code,
		)
	}
	return res
}

// detach copies the slices and error of a possibly shared result.
func detach(res parse.Result) parse.Result {
	res.Warnings = append([]parse.Issue(nil), res.Warnings...)
	res.Transforms = append([]string(nil), res.Transforms...)
	if res.Err != nil {
		e := *res.Err
		e.Issues = append([]parse.Issue(nil), e.Issues...)
		res.Err = &e
	}
	return res
}

// lookupOrDispatch consults the persistent cache before dispatching.
// The boolean reports whether the result may be memoized in process.
func (c *Coordinator) lookupOrDispatch(ctx context.Context, key string, input any, pctx *parse.Context) (parse.Result, bool) {
	c.metrics.ObserveCache(metrics.LevelMemory, metrics.CacheMiss)
	if res, ok := c.lookupPersistent(ctx, key, pctx); ok {
		return res, true
	}
	res, cacheable := c.run(input, pctx)
	if cacheable {
		c.storePersistent(ctx, key, res)
	}
	return res, cacheable
}

// dispatch runs an attempt without the in-process memo.
func (c *Coordinator) dispatch(ctx context.Context, key string, input any, pctx *parse.Context) parse.Result {
	if key != "" {
		if res, ok := c.lookupPersistent(ctx, key, pctx); ok {
			return res
		}
	}
	res, cacheable := c.run(input, pctx)
	if cacheable && key != "" {
		c.storePersistent(ctx, key, res)
	}
	return res
}

func (c *Coordinator) lookupPersistent(ctx context.Context, key string, pctx *parse.Context) (parse.Result, bool) {
	if c.persistent == nil {
		return parse.Result{}, false
	}
	e, ok, err := c.persistent.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.ObserveCache(metrics.LevelPersistent, metrics.CacheError)
		c.logger.Warn("persistent cache read failed", "attempt", pctx.AttemptID, "error", err)
		return parse.Result{}, false
	case !ok:
		c.metrics.ObserveCache(metrics.LevelPersistent, metrics.CacheMiss)
		return parse.Result{}, false
	}
	c.metrics.ObserveCache(metrics.LevelPersistent, metrics.CacheHit)
	ts := e.Timestamp
	return parse.Result{
		Timestamp:  &ts,
		Strategy:   parse.Type(e.Strategy),
		Confidence: e.Confidence,
		Cached:     true,
	}, true
}

func (c *Coordinator) storePersistent(ctx context.Context, key string, res parse.Result) {
	if c.persistent == nil || !res.OK() {
		return
	}
	err := c.persistent.Put(ctx, store.Entry{
		Key:        key,
		Timestamp:  *res.Timestamp,
		Strategy:   string(res.Strategy),
		Confidence: res.Confidence,
		AttemptID:  res.AttemptID,
	})
	if err != nil {
		c.metrics.ObserveCache(metrics.LevelPersistent, metrics.CacheError)
		c.logger.Warn("persistent cache write failed", "attempt", res.AttemptID, "error", err)
		return
	}
	c.metrics.ObserveCache(metrics.LevelPersistent, metrics.CacheStore)
}

// run ranks the candidates and parses with the best one. The boolean
// reports whether the result is cacheable.
func (c *Coordinator) run(input any, pctx *parse.Context) (parse.Result, bool) {
	candidates := c.registry.rank(input, pctx)
	if len(candidates) == 0 {
		c.logger.Debug("no strategy accepted input, using fallback",
			"attempt", pctx.AttemptID,
			"kind", pctx.Kind,
		)
		return c.registry.fallback.Parse(input, pctx), false
	}

	best := candidates[0]
	pctx.Confidence = best.Confidence
	c.logger.Debug("strategy selected",
		"attempt", pctx.AttemptID,
		"strategy", best.Descriptor.Type,
		"confidence", best.Confidence,
		"candidates", len(candidates),
	)

	if fp := fastPath(best.strategy, input, pctx); fp.Accepted && fp.Timestamp != nil {
		c.metrics.ObserveFastPath(string(best.Descriptor.Type))
		res := parse.Result{
			Timestamp:  fp.Timestamp,
			Strategy:   best.Descriptor.Type,
			Confidence: fp.Confidence,
			FastPath:   true,
			AttemptID:  pctx.AttemptID,
		}
		return res, cacheable(best.strategy, input, pctx)
	}

	res := fullParse(best, input, pctx)
	if res.OK() || !c.retryOnFailure() {
		return res, res.OK() && cacheable(best.strategy, input, pctx)
	}

	for _, next := range candidates[1:] {
		pctx.Confidence = next.Confidence
		retry := fullParse(next, input, pctx)
		c.logger.Debug("retrying with next candidate",
			"attempt", pctx.AttemptID,
			"strategy", next.Descriptor.Type,
			"ok", retry.OK(),
		)
		if retry.OK() {
			return retry, cacheable(next.strategy, input, pctx)
		}
	}
	return res, false
}

func (c *Coordinator) retryOnFailure() bool {
	if c.retry != nil {
		return *c.retry
	}
	return c.config().RetryOnFailure
}

// fastPath calls CheckFastPath, declining on panic.
func fastPath(s parse.Strategy, input any, pctx *parse.Context) (fp parse.FastPathResult) {
	defer func() {
		if recover() != nil {
			fp = parse.FastPathResult{}
		}
	}()
	return s.CheckFastPath(input, pctx)
}

// fullParse runs the candidate's Parse, converting an escaped panic or a
// malformed result into a conversion error.
func fullParse(cand Candidate, input any, pctx *parse.Context) (res parse.Result) {
	typ := cand.Descriptor.Type
	defer func() {
		if r := recover(); r != nil {
			res = parse.Result{
				Err:        parse.NewError(typ, parse.ClassConversion, input, fmt.Sprintf("panic during %s parse: %v", typ, r)),
				Strategy:   typ,
				Confidence: cand.Confidence,
				AttemptID:  pctx.AttemptID,
			}
		}
	}()
	res = cand.strategy.Parse(input, pctx)
	if res.Strategy == "" {
		res.Strategy = typ
	}
	if !res.OK() && res.Err == nil {
		res.Timestamp = nil
		res.Err = parse.NewError(typ, parse.ClassConversion, input, fmt.Sprintf("%s parse returned no timestamp", typ))
	}
	return res
}

// cacheable asks the strategy whether its result may be memoized.
func cacheable(s parse.Strategy, input any, pctx *parse.Context) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return s.OptimizationHints(input, pctx).Cacheable
}
