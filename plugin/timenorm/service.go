// Package timenorm normalizes tagged temporal expressions into concrete
// calendar values anchored to a reference instant.
//
// A call runs four stages: the token parser, the ambiguity filter (when the
// source text is known), the context merger and the result assembler that
// applies the year guard and dedups.
package timenorm

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/internal/observability"
	"github.com/hrygo/timenorm/plugin/timenorm/ambiguity"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
	"github.com/hrygo/timenorm/plugin/timenorm/locale"
	"github.com/hrygo/timenorm/plugin/timenorm/merger"
	"github.com/hrygo/timenorm/plugin/timenorm/resolver"
	"github.com/hrygo/timenorm/plugin/timenorm/token"
)

// DefaultBatchConcurrency bounds ResolveBatch when no limit is configured.
const DefaultBatchConcurrency = 8

// Service is the public entry point. It is immutable after construction and
// safe for concurrent use.
type Service struct {
	localeName  string
	env         resolver.Env
	registry    *resolver.Registry
	merger      *merger.Merger
	filter      *ambiguity.Filter
	window      resolver.YearWindow
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

type config struct {
	locale      string
	calendar    *calendar.Calendar
	caps        resolver.RecurringCaps
	window      resolver.YearWindow
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
	rules       []merger.Rule
}

// Option configures a Service.
type Option func(*config)

// WithLocale selects the alias table ("en", "zh").
func WithLocale(name string) Option {
	return func(c *config) { c.locale = name }
}

// WithCalendar replaces the holiday calendar, e.g. one built with a custom
// statutory override table.
func WithCalendar(cal *calendar.Calendar) Option {
	return func(c *config) { c.calendar = cal }
}

// WithRecurringCaps sets the per-unit expansion caps for recurring tokens.
func WithRecurringCaps(caps resolver.RecurringCaps) Option {
	return func(c *config) { c.caps = caps }
}

// WithYearWindow sets the year guard.
func WithYearWindow(w resolver.YearWindow) Option {
	return func(c *config) { c.window = w }
}

// WithBatchConcurrency bounds how many texts ResolveBatch resolves at once.
func WithBatchConcurrency(n int) Option {
	return func(c *config) { c.concurrency = n }
}

// WithLogger sets the logger for request logs and recovered failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics records per-call counters into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithRules replaces the merge-rule catalog.
func WithRules(rules []merger.Rule) Option {
	return func(c *config) { c.rules = rules }
}

// NewService builds a service. It fails only on configuration errors such as
// an unknown locale or an empty year window.
func NewService(opts ...Option) (*Service, error) {
	cfg := config{
		locale:      locale.Default,
		caps:        resolver.DefaultRecurringCaps,
		window:      resolver.DefaultYearWindow,
		concurrency: DefaultBatchConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.window.Min > cfg.window.Max {
		return nil, errors.Errorf("year window [%d, %d] is empty", cfg.window.Min, cfg.window.Max)
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = DefaultBatchConcurrency
	}

	loc, err := locale.Get(cfg.locale)
	if err != nil {
		return nil, errors.Wrapf(err, "load locale %q", cfg.locale)
	}
	if cfg.calendar == nil {
		cfg.calendar = calendar.Default()
	}

	env := resolver.Env{Locale: loc, Calendar: cfg.calendar, Caps: cfg.caps}
	registry := resolver.DefaultRegistry(env)
	mergeOpts := []merger.Option{merger.WithLogger(cfg.logger)}
	if cfg.rules != nil {
		mergeOpts = append(mergeOpts, merger.WithRules(cfg.rules))
	}

	return &Service{
		localeName:  cfg.locale,
		env:         env,
		registry:    registry,
		merger:      merger.New(registry, env, mergeOpts...),
		filter:      ambiguity.New(loc),
		window:      cfg.window,
		concurrency: cfg.concurrency,
		logger:      cfg.logger,
		metrics:     cfg.metrics,
	}, nil
}

// Locale returns the name of the alias table in use.
func (s *Service) Locale() string {
	return s.localeName
}

// Resolve parses tagged tagger output and resolves it against reference.
// Only malformed input and an invalid reference instant are errors; tokens
// that cannot be resolved simply contribute nothing.
func (s *Service) Resolve(ctx context.Context, tagged, reference string) ([]resolver.Result, error) {
	return s.resolve(ctx, "resolve", "", tagged, reference, false)
}

// ResolveText is Resolve with the ambiguity filter run against source, the
// text the tagger saw.
func (s *Service) ResolveText(ctx context.Context, source, tagged, reference string) ([]resolver.Result, error) {
	return s.resolve(ctx, "resolve_text", source, tagged, reference, true)
}

// ResolveTokens resolves an already parsed token list against base.
func (s *Service) ResolveTokens(ctx context.Context, tokens []token.Token, base time.Time) ([]resolver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.assemble(s.merger.Merge(tokens, base)), nil
}

func (s *Service) resolve(ctx context.Context, op, source, tagged, reference string, filter bool) ([]resolver.Result, error) {
	reqCtx := observability.StartOperation(ctx, s.logger, op, s.localeName)
	s.recordRequest()

	results, tokenCount, err := s.run(ctx, source, tagged, reference, filter)
	duration := reqCtx.Duration()
	if s.metrics != nil {
		s.metrics.RecordDuration(s.localeName, duration)
	}
	if err != nil {
		s.recordFailure()
		reqCtx.Warn("resolve failed",
			slog.String(observability.LogFieldErrorCode, string(terrors.GetCodeFromError(errors.Cause(err), "UNKNOWN"))),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordResults(len(results))
	}
	reqCtx.Debug("resolve completed",
		slog.String(observability.LogFieldReference, reference),
		slog.Int(observability.LogFieldTokenCount, tokenCount),
		slog.Int(observability.LogFieldResultCount, len(results)),
		slog.Int64(observability.LogFieldDuration, duration.Milliseconds()),
	)
	return results, nil
}

func (s *Service) run(ctx context.Context, source, tagged, reference string, filter bool) ([]resolver.Result, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	base, err := resolver.ParseReference(reference)
	if err != nil {
		return nil, 0, err
	}
	tokens, err := token.Parse(tagged)
	if err != nil {
		return nil, 0, err
	}
	if filter {
		tokens = s.filter.Apply(source, tokens)
	}
	results, err := s.ResolveTokens(ctx, tokens, base)
	return results, len(tokens), err
}

func (s *Service) assemble(results []resolver.Result) []resolver.Result {
	return resolver.Dedup(s.window.Guard(results))
}

func (s *Service) recordRequest() {
	if s.metrics != nil {
		s.metrics.RecordRequest(s.localeName)
	}
}

func (s *Service) recordFailure() {
	if s.metrics != nil {
		s.metrics.RecordFailure(s.localeName)
	}
}

// Request is one item of a batch. Source is optional; when set the ambiguity
// filter runs against it.
type Request struct {
	Source    string `json:"source,omitempty"`
	Tagged    string `json:"tagged"`
	Reference string `json:"reference"`
}

// ResolveBatch resolves reqs concurrently, at most the configured number at a
// time. Results keep the order of reqs. The first error cancels the rest.
func (s *Service) ResolveBatch(ctx context.Context, reqs []Request) ([][]resolver.Result, error) {
	out := make([][]resolver.Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, req := range reqs {
		i, req := i, req // per-iteration copies (go.mod targets go 1.21)
		g.Go(func() error {
			var (
				results []resolver.Result
				err     error
			)
			if req.Source != "" {
				results, err = s.ResolveText(gctx, req.Source, req.Tagged, req.Reference)
			} else {
				results, err = s.Resolve(gctx, req.Tagged, req.Reference)
			}
			if err != nil {
				return errors.Wrapf(err, "batch item %d", i)
			}
			out[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
