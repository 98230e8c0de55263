// Package search aggregates job listings from independent sources.
//
// Every source call goes through the retry executor and the source's circuit
// breaker. A failing source contributes nothing; it never fails the search.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"jobscout/internal/domain/entity"
	"jobscout/internal/observability/logging"
	"jobscout/internal/observability/tracing"
	"jobscout/internal/resilience/backoff"
	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/resilience/retry"
	"jobscout/internal/utils/text"
)

// Source is one job board adapter.
type Source interface {
	Name() string
	Search(ctx context.Context, keywords []string, location string) ([]entity.RawListing, error)
}

// OutcomeLogger records the result of every source call.
// *report.Service implements it.
type OutcomeLogger interface {
	LogOutcome(ctx context.Context, component, operation string, err error, attrs ...slog.Attr)
}

// ContentFetcher extracts the readable text of a listing page.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// ResultCache stores ranked results per normalized query.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]entity.Listing, bool, error)
	Set(ctx context.Context, key string, listings []entity.Listing) error
}

// SourceSettings tunes the calls to one source.
type SourceSettings struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration
	Policy  backoff.Policy
}

// Config holds the aggregation settings.
type Config struct {
	// Deadline bounds the whole fan-out. Sources still running when it
	// passes contribute nothing.
	Deadline time.Duration
	Defaults SourceSettings
	// Sources overrides Defaults per source name.
	Sources map[string]SourceSettings
	// EnrichThreshold is the description length below which the listing
	// page is fetched. Zero disables enrichment.
	EnrichThreshold   int
	EnrichParallelism int
}

// DefaultConfig returns the default aggregation settings.
func DefaultConfig() Config {
	return Config{
		Deadline: 45 * time.Second,
		Defaults: SourceSettings{
			Timeout: 15 * time.Second,
			Policy:  backoff.SourcePolicy(),
		},
		EnrichThreshold:   200,
		EnrichParallelism: 5,
	}
}

// Service is the source aggregator.
type Service struct {
	sources  []Source
	executor *retry.Executor
	breakers *circuitbreaker.Registry
	outcomes OutcomeLogger
	cfg      Config

	fetcher ContentFetcher
	cache   ResultCache
	clock   quartz.Clock
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithContentFetcher enables description enrichment.
func WithContentFetcher(f ContentFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithResultCache enables result caching.
func WithResultCache(c ResultCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock sets the clock used for date filters and latency.
func WithClock(clock quartz.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates an aggregator over sources. breakers may be nil, in
// which case calls are not guarded by a breaker.
func NewService(sources []Source, executor *retry.Executor, breakers *circuitbreaker.Registry, outcomes OutcomeLogger, cfg Config, opts ...Option) *Service {
	s := &Service{
		sources:  sources,
		executor: executor,
		breakers: breakers,
		outcomes: outcomes,
		cfg:      cfg,
		clock:    quartz.NewReal(),
		logger:   slog.Default(),
		tracer:   tracing.GetTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sources returns the names of the configured sources in registration order.
func (s *Service) Sources() []string {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Name()
	}
	return names
}

// SearchAll queries every source concurrently and returns the merged,
// deduplicated, filtered, enriched and ranked listings. It fails only for an invalid
// query; when every source fails the result is empty.
func (s *Service) SearchAll(ctx context.Context, q entity.SearchQuery) ([]entity.Listing, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if logging.CorrelationID(ctx) == "" {
		ctx = logging.WithCorrelationID(ctx, logging.NewCorrelationID())
	}
	logger := logging.WithCorrelation(ctx, s.logger)

	ctx, span := s.tracer.Start(ctx, "search.SearchAll",
		trace.WithAttributes(
			attribute.StringSlice("search.keywords", q.Keywords),
			attribute.String("search.location", q.Location),
			attribute.String("search.sort_by", string(q.SortBy)),
			attribute.Int("search.sources", len(s.sources)),
		))
	defer span.End()

	key := q.CacheKey()
	if cached, ok := s.cachedResult(ctx, key); ok {
		span.SetAttributes(attribute.Bool("search.cache_hit", true))
		return cached, nil
	}

	start := s.clock.Now()
	listings := s.collect(ctx, q)
	found := len(listings)

	listings = Dedupe(listings)
	unique := len(listings)
	listings = Filter(listings, q.Filters, s.clock.Now())
	s.enrichWithin(ctx, listings, start)
	listings = Rank(listings, q.Keywords, q.SortBy)

	duration := s.clock.Since(start)
	aggregationDuration.Observe(duration.Seconds())
	listingsReturned.Observe(float64(len(listings)))
	span.SetAttributes(attribute.Int("search.results", len(listings)))

	logger.Info("search completed",
		slog.Any("keywords", q.Keywords),
		slog.Int("found", found),
		slog.Int("unique", unique),
		slog.Int("returned", len(listings)),
		slog.Duration("duration", duration))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, listings); err != nil {
			logger.Warn("failed to cache search result", slog.Any("error", err))
		}
	}
	return listings, nil
}

func (s *Service) cachedResult(ctx context.Context, key string) ([]entity.Listing, bool) {
	if s.cache == nil {
		return nil, false
	}
	listings, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("search cache lookup failed", slog.Any("error", err))
		return nil, false
	}
	if ok {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return listings, true
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
	return nil, false
}

// collect fans out to every source and returns the normalized listings in
// source registration order. It returns when all sources finish or the
// aggregation deadline passes, whichever comes first.
func (s *Service) collect(ctx context.Context, q entity.SearchQuery) []entity.Listing {
	dctx := ctx
	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}

	var (
		mu       sync.Mutex
		results  = make([][]entity.Listing, len(s.sources))
		finished = make([]bool, len(s.sources))
	)

	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			listings, err := s.searchSource(dctx, src, q)
			mu.Lock()
			defer mu.Unlock()
			finished[i] = true
			if err == nil {
				results[i] = listings
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-dctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	var merged []entity.Listing
	for i, src := range s.sources {
		if !finished[i] {
			sourcesPendingTotal.WithLabelValues(src.Name()).Inc()
			s.logger.Warn("source still running at aggregation deadline",
				slog.String("source", src.Name()),
				slog.String("correlation_id", logging.CorrelationID(ctx)),
				slog.Duration("deadline", s.cfg.Deadline))
			continue
		}
		merged = append(merged, results[i]...)
	}
	return merged
}

// searchSource runs one source through the executor and its breaker.
func (s *Service) searchSource(ctx context.Context, src Source, q entity.SearchQuery) ([]entity.Listing, error) {
	name := src.Name()
	ctx, span := s.tracer.Start(ctx, "search.source", trace.WithAttributes(attribute.String("search.source", name)))
	defer span.End()

	settings := s.settingsFor(name)
	call := retry.Call{
		Component: name,
		Operation: "search",
		Timeout:   settings.Timeout,
		Details:   map[string]any{"keywords": q.Keywords, "location": q.Location},
	}

	var breaker retry.Breaker
	if s.breakers != nil {
		breaker = s.breakers.Get(name)
	}

	start := s.clock.Now()
	raw, err := retry.Do(ctx, s.executor, call, settings.Policy, breaker, func(ctx context.Context) ([]entity.RawListing, error) {
		return src.Search(ctx, q.Keywords, q.Location)
	})
	duration := s.clock.Since(start)

	if s.outcomes != nil {
		s.outcomes.LogOutcome(ctx, name, "search", err,
			slog.Int("results", len(raw)),
			slog.Duration("duration", duration))
	}
	if err != nil {
		sourceDuration.WithLabelValues(name, "failure").Observe(duration.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search %s: %w", name, err)
	}

	sourceDuration.WithLabelValues(name, "success").Observe(duration.Seconds())
	sourceResultsTotal.WithLabelValues(name).Add(float64(len(raw)))
	span.SetAttributes(attribute.Int("search.results", len(raw)))

	listings := make([]entity.Listing, 0, len(raw))
	for _, r := range raw {
		listings = append(listings, r.Normalize(name))
	}
	return listings, nil
}

func (s *Service) settingsFor(name string) SourceSettings {
	settings := s.cfg.Defaults
	if o, ok := s.cfg.Sources[name]; ok {
		if o.Timeout > 0 {
			settings.Timeout = o.Timeout
		}
		if o.Policy.MaxAttempts > 0 {
			settings.Policy = o.Policy
		}
	}
	return settings
}

// enrichWithin runs enrich under what is left of the aggregation deadline
// measured from start.
func (s *Service) enrichWithin(ctx context.Context, listings []entity.Listing, start time.Time) {
	if s.cfg.Deadline <= 0 {
		s.enrich(ctx, listings)
		return
	}
	remaining := s.cfg.Deadline - s.clock.Since(start)
	if remaining <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()
	s.enrich(ctx, listings)
}

// enrich replaces short descriptions with the readable text of the listing
// page. Failures keep the original description.
func (s *Service) enrich(ctx context.Context, listings []entity.Listing) {
	if s.fetcher == nil || s.cfg.EnrichThreshold <= 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(max(s.cfg.EnrichParallelism, 1))
	for i := range listings {
		if ctx.Err() != nil {
			break
		}
		l := &listings[i]
		if l.URL == "" || text.CountRunes(l.DescriptionText) >= s.cfg.EnrichThreshold {
			continue
		}
		g.Go(func() error {
			content, err := s.fetcher.FetchContent(ctx, l.URL)
			if err != nil {
				enrichTotal.WithLabelValues("failure").Inc()
				s.logger.Debug("description enrichment failed",
					slog.String("listing_id", l.ID),
					slog.String("url", l.URL),
					slog.Any("error", err))
				return nil
			}
			if text.CountRunes(content) > text.CountRunes(l.DescriptionText) {
				l.DescriptionText = content
				enrichTotal.WithLabelValues("success").Inc()
				return nil
			}
			enrichTotal.WithLabelValues("skipped").Inc()
			return nil
		})
	}
	_ = g.Wait()
}
