package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"jobscout/internal/config"
	"jobscout/internal/domain/entity"
	"jobscout/internal/infra/cache"
	"jobscout/internal/infra/db"
	"jobscout/internal/infra/fetcher"
	"jobscout/internal/infra/notifier"
	"jobscout/internal/infra/scraper"
	workerPkg "jobscout/internal/infra/worker"
	"jobscout/internal/observability/logging"
	pkgconfig "jobscout/internal/pkg/config"
	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/resilience/failure"
	"jobscout/internal/resilience/retry"
	"jobscout/internal/usecase/recovery"
	"jobscout/internal/usecase/report"
	"jobscout/internal/usecase/search"
)

const (
	componentCache        = "cache"
	componentContentFetch = "content-fetch"
	shutdownTimeout       = 30 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.Any("error", err))
	}
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("search_schedule", workerConfig.SearchSchedule),
		slog.String("cleanup_schedule", workerConfig.CleanupSchedule),
		slog.String("restore_schedule", workerConfig.RestoreSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Any("keywords", workerConfig.Keywords),
		slog.Duration("search_timeout", workerConfig.SearchTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	tuning, err := config.LoadResilience(workerConfig.ResilienceFile)
	if err != nil {
		logger.Error("invalid resilience configuration", slog.Any("error", err))
		os.Exit(1)
	}

	breakers := circuitbreaker.NewRegistry(tuning.BreakerConfig, logger)
	reporter := report.NewService(tuning.Report,
		report.WithLogger(logger),
		report.WithCircuitStatus(breakers))
	registerSinks(reporter, logger)

	coordinator := recovery.NewCoordinator(
		recovery.WithLogger(logger),
		recovery.WithTripper(breakers),
		recovery.WithAlerter(&reportAlerter{reporter: reporter}))
	reporter.SetRecoveryHandler(coordinator)

	executor := retry.NewExecutor(reporter, retry.WithLogger(logger))

	repo, dcb, closeDB := setupDatabase(ctx, logger, breakers, coordinator)
	defer closeDB()
	var store search.ListingStore
	if repo != nil {
		store = repo
	}

	var opts []search.Option
	opts = append(opts, search.WithLogger(logger))
	resultCache, closeCache := setupCache(ctx, logger, breakers, reporter, coordinator)
	defer closeCache()
	if resultCache != nil {
		opts = append(opts, search.WithResultCache(resultCache))
	}
	if contentFetcher := setupContentFetcher(logger, breakers); contentFetcher != nil {
		opts = append(opts, search.WithContentFetcher(contentFetcher))
	}

	sources, err := scraper.NewFromConfig(createHTTPClient(), loadScraperConfig(tuning), logger)
	if err != nil {
		logger.Error("failed to create job sources", slog.Any("error", err))
		os.Exit(1)
	}
	svc := search.NewService(sources, executor, breakers, reporter, tuning.Search, opts...)
	logger.Info("job sources initialized", slog.Any("sources", svc.Sources()))

	query := entity.SearchQuery{
		Keywords: workerConfig.Keywords,
		Location: workerConfig.Location,
		Filters:  entity.SearchFilters{RemoteOnly: workerConfig.RemoteOnly},
	}
	registerStrategies(logger, coordinator, tuning, sources, breakers, query)

	healthServer := startHealthServer(ctx, logger, workerConfig.HealthPort, breakers, coordinator, reporter)

	scheduler, err := startScheduler(logger, workerConfig, workerMetrics, jobs{
		search:      searchJob(svc, store, query, reporter, workerMetrics),
		cleanup:     cleanupJob(reporter, workerConfig.HistoryRetention),
		restore:     restoreJob(coordinator),
		inventory:   inventoryJob(repo, dcb),
		searchLimit: workerConfig.SearchTimeout,
	})
	if err != nil {
		logger.Error("failed to schedule jobs", slog.Any("error", err))
		os.Exit(1)
	}

	healthServer.SetReady(true)
	logger.Info("worker started")

	<-ctx.Done()
	logger.Info("shutdown signal received")
	healthServer.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduled jobs did not finish in time", slog.Any("error", err))
	}
	if err := reporter.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error reporter shutdown incomplete", slog.Any("error", err))
	}
	logger.Info("worker stopped")
}

// setupDatabase opens PostgreSQL behind the database breaker and registers
// the reconnector. Without DATABASE_URL the worker runs in search-only mode
// and the returned repository is nil.
func setupDatabase(ctx context.Context, logger *slog.Logger, breakers *circuitbreaker.Registry, coordinator *recovery.Coordinator) (*db.ListingRepository, *circuitbreaker.DBCircuitBreaker, func()) {
	dbConfig := db.LoadConfigFromEnv(pkgconfig.NewConfigMetrics("database"), logger)
	database, err := db.Open(ctx, dbConfig)
	if errors.Is(err, db.ErrNoDSN) {
		logger.Warn("DATABASE_URL not set, listings will not be persisted")
		return nil, nil, func() {}
	}
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(ctx, database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	cb, err := breakers.Register(circuitbreaker.DatabaseConfig())
	if err != nil {
		logger.Error("failed to register database breaker", slog.Any("error", err))
		os.Exit(1)
	}
	dcb := circuitbreaker.NewDBCircuitBreaker(database, cb)
	reconnector := db.NewReconnector(dcb, func(ctx context.Context) (*sql.DB, error) {
		return db.Open(ctx, dbConfig)
	}, logger)
	coordinator.AddRestarter(recovery.ComponentDatabase, reconnector)
	coordinator.AddProbe(recovery.ComponentDatabase, reconnector.Probe)

	logger.Info("database connected", slog.Int("max_open_conns", dbConfig.MaxOpenConns))
	return db.NewListingRepository(dcb), dcb, func() {
		if err := dcb.DB().Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}
}

// setupCache connects the optional Redis result cache. Connection failure
// at start disables the cache.
func setupCache(ctx context.Context, logger *slog.Logger, breakers *circuitbreaker.Registry, reporter *report.Service, coordinator *recovery.Coordinator) (search.ResultCache, func()) {
	cacheConfig := cache.LoadConfigFromEnv(pkgconfig.NewConfigMetrics("cache"), logger)
	if !cacheConfig.Enabled() {
		logger.Info("result cache disabled")
		return nil, func() {}
	}
	client, err := cache.NewRedisClient(ctx, cacheConfig.URL)
	if err != nil {
		logger.Warn("result cache unavailable, continuing without it", slog.Any("error", err))
		return nil, func() {}
	}
	cb, err := breakers.Register(circuitbreaker.CacheConfig())
	if err != nil {
		logger.Error("failed to register cache breaker", slog.Any("error", err))
		os.Exit(1)
	}
	rc := cache.NewRedisResultCache(client, cacheConfig, cb)
	coordinator.AddProbe(componentCache, rc.Probe)
	coordinator.AddRestarter(componentCache, recovery.RestarterFunc(rc.Probe))

	logger.Info("result cache enabled", slog.Duration("ttl", cacheConfig.TTL))
	return &reportingCache{cache: rc, reporter: reporter}, func() { closeRedis(logger, client) }
}

func closeRedis(logger *slog.Logger, client *redis.Client) {
	if err := client.Close(); err != nil {
		logger.Error("failed to close redis client", slog.Any("error", err))
	}
}

func setupContentFetcher(logger *slog.Logger, breakers *circuitbreaker.Registry) search.ContentFetcher {
	cfg := fetcher.LoadConfigFromEnv(pkgconfig.NewConfigMetrics("content_fetch"), logger)
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid content fetch configuration, enrichment disabled", slog.Any("error", err))
		return nil
	}
	if !cfg.Enabled {
		logger.Info("content fetching disabled")
		return nil
	}
	cb, err := breakers.Register(circuitbreaker.ExternalAPIConfig(componentContentFetch))
	if err != nil {
		logger.Error("failed to register content fetch breaker", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("content fetching enabled",
		slog.Int("threshold", cfg.Threshold),
		slog.Int("parallelism", cfg.Parallelism),
		slog.Duration("timeout", cfg.Timeout))
	return fetcher.NewReadabilityFetcher(cfg, cb, logger)
}

// registerStrategies installs the configured recovery strategies. The
// external-api template is bound to every source.
func registerStrategies(logger *slog.Logger, coordinator *recovery.Coordinator, tuning *config.Resilience, sources []search.Source, breakers *circuitbreaker.Registry, query entity.SearchQuery) {
	add := func(s recovery.Strategy) {
		if err := coordinator.AddStrategy(s); err != nil {
			logger.Error("invalid recovery strategy", slog.String("component", s.Component), slog.Any("error", err))
			os.Exit(1)
		}
	}

	for name, s := range tuning.Strategies {
		if name != recovery.ComponentExternalAPI {
			add(s)
		}
	}
	if _, ok := tuning.Strategies[componentCache]; !ok {
		add(cacheStrategy())
	}

	template, hasTemplate := tuning.Strategies[recovery.ComponentExternalAPI]
	for _, src := range sources {
		name := src.Name()
		if _, ok := tuning.Strategies[name]; !ok && hasTemplate {
			add(template.ForComponent(name))
		}
		coordinator.AddProbe(name, func(ctx context.Context) error {
			_, err := src.Search(ctx, query.Keywords, query.Location)
			return err
		})
		coordinator.AddRestarter(name, recovery.RestarterFunc(func(context.Context) error {
			if breakers.Get(name).IsOpen() {
				return circuitbreaker.ErrCircuitOpen
			}
			return nil
		}))
	}
}

// cacheStrategy degrades the result cache on connection problems. The
// search keeps working uncached.
func cacheStrategy() recovery.Strategy {
	return recovery.Strategy{
		Component:   componentCache,
		Triggers:    []failure.Kind{failure.ConnectionFailure, failure.Timeout, failure.ServiceUnavailable},
		Actions:     []recovery.Action{recovery.RetryOperation, recovery.EnableGracefulDegradation},
		Cooldown:    5 * time.Minute,
		MaxAttempts: 3,
	}
}

func loadScraperConfig(tuning *config.Resilience) scraper.Config {
	d := scraper.DefaultConfig()
	tr := pkgconfig.NewTracker(nil)
	cfg := scraper.Config{
		Sources:           tuning.EnabledSources,
		UserAgent:         pkgconfig.LoadEnvString("SCRAPER_USER_AGENT", d.UserAgent),
		RequestsPerSecond: pkgconfig.Track(tr, "rps", pkgconfig.LoadEnvFloat("SCRAPER_REQUESTS_PER_SECOND", d.RequestsPerSecond, nil)),
		Burst:             pkgconfig.Track(tr, "burst", pkgconfig.LoadEnvInt("SCRAPER_BURST", d.Burst, pkgconfig.InRange(1, 100))),
		MaxResults:        pkgconfig.Track(tr, "max_results", pkgconfig.LoadEnvInt("SCRAPER_MAX_RESULTS", d.MaxResults, pkgconfig.InRange(1, 500))),
		FindworkToken:     os.Getenv("FINDWORK_API_TOKEN"),
	}
	tr.Finish(slog.Default())
	return cfg
}

// createHTTPClient creates the client shared by the job source adapters.
// TLS 1.2+ is enforced.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// registerSinks adds the notification sinks configured in the environment.
func registerSinks(reporter *report.Service, logger *slog.Logger) {
	reporter.AddSink(notifier.NewSlackSink(loadSlackConfig(logger), logger))
	reporter.AddSink(notifier.NewDiscordSink(loadDiscordConfig(logger), logger))
	reporter.AddSink(notifier.NewWebhookSink(loadWebhookConfig(logger), logger))
}

// loadSlackConfig reads SLACK_ENABLED and SLACK_WEBHOOK_URL. An invalid
// webhook URL disables the sink.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := pkgconfig.LoadEnvBool("SLACK_ENABLED", false).Value
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if !enabled {
		return notifier.SlackConfig{}
	}
	if err := validateWebhookURL(webhookURL, "hooks.slack.com", "/services/"); err != nil {
		logger.Warn("invalid Slack webhook URL, disabling notifications", slog.Any("error", err))
		return notifier.SlackConfig{}
	}
	return notifier.SlackConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 10 * time.Second}
}

// loadDiscordConfig reads DISCORD_ENABLED and DISCORD_WEBHOOK_URL.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := pkgconfig.LoadEnvBool("DISCORD_ENABLED", false).Value
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if !enabled {
		return notifier.DiscordConfig{}
	}
	if err := validateWebhookURL(webhookURL, "discord.com", "/api/webhooks/"); err != nil {
		logger.Warn("invalid Discord webhook URL, disabling notifications", slog.Any("error", err))
		return notifier.DiscordConfig{}
	}
	return notifier.DiscordConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 10 * time.Second}
}

// loadWebhookConfig reads ERROR_WEBHOOK_URL and ERROR_WEBHOOK_TOKEN. The
// sink is enabled whenever a valid URL is set.
func loadWebhookConfig(logger *slog.Logger) notifier.WebhookConfig {
	webhookURL := os.Getenv("ERROR_WEBHOOK_URL")
	if webhookURL == "" {
		return notifier.WebhookConfig{}
	}
	if err := pkgconfig.ValidateHTTPURL(webhookURL); err != nil {
		logger.Warn("invalid error webhook URL, disabling notifications", slog.Any("error", err))
		return notifier.WebhookConfig{}
	}
	cfg := notifier.WebhookConfig{Enabled: true, URL: webhookURL}
	if token := os.Getenv("ERROR_WEBHOOK_TOKEN"); token != "" {
		cfg.Headers = map[string]string{"Authorization": "Bearer " + token}
	}
	return cfg
}

func validateWebhookURL(raw, host, pathPrefix string) error {
	if raw == "" {
		return errors.New("webhook URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "https" {
		return errors.New("webhook URL must use HTTPS")
	}
	if u.Host != host {
		return errors.New("unexpected webhook host " + u.Host)
	}
	if !strings.HasPrefix(u.Path, pathPrefix) {
		return errors.New("unexpected webhook path " + u.Path)
	}
	return nil
}

// reportAlerter turns administrator alerts into high-severity error
// records so that they reach the notification sinks. No strategy is
// registered for the "recovery" component, so alerts never re-enter
// recovery.
type reportAlerter struct {
	reporter *report.Service
}

func (a *reportAlerter) Alert(ctx context.Context, component string, details map[string]any) error {
	a.reporter.Report(ctx, errors.New(component+" requires attention"), "recovery", "alert_"+component, entity.SeverityHigh, details)
	return nil
}

// reportingCache reports result cache failures so that the cache strategy
// can degrade it.
type reportingCache struct {
	cache    *cache.RedisResultCache
	reporter *report.Service
}

func (c *reportingCache) Get(ctx context.Context, key string) ([]entity.Listing, bool, error) {
	listings, ok, err := c.cache.Get(ctx, key)
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		c.reporter.ReportError(ctx, err, componentCache, "get", map[string]any{"key": key})
	}
	return listings, ok, err
}

func (c *reportingCache) Set(ctx context.Context, key string, listings []entity.Listing) error {
	err := c.cache.Set(ctx, key, listings)
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		c.reporter.ReportError(ctx, err, componentCache, "set", map[string]any{"key": key})
	}
	return err
}
