package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"newsflow-bridge/internal/infra/adapter/delivery/discord"
	"newsflow-bridge/internal/infra/adapter/delivery/telegram"
	pgRepo "newsflow-bridge/internal/infra/adapter/persistence/postgres"
	liteRepo "newsflow-bridge/internal/infra/adapter/persistence/sqlite"
	"newsflow-bridge/internal/infra/contentfetch"
	"newsflow-bridge/internal/infra/db"
	"newsflow-bridge/internal/infra/fetch"
	"newsflow-bridge/internal/infra/scheduler"
	workerPkg "newsflow-bridge/internal/infra/worker"
	"newsflow-bridge/internal/pkg/config"
	"newsflow-bridge/internal/repository"
	"newsflow-bridge/internal/translate"
	"newsflow-bridge/internal/usecase/dispatch"
	"newsflow-bridge/internal/usecase/feedsvc"
	"newsflow-bridge/internal/usecase/janitor"
	"newsflow-bridge/internal/usecase/subscription"
)

const userAgent = "newsflow-bridge/1.0 (+https://github.com)"

func main() {
	logger := initLogger()
	config.ApplyYAMLOverlay(logger, os.Getenv("CONFIG_FILE"))
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("dispatch_cron_schedule", workerConfig.DispatchCronSchedule),
		slog.String("janitor_cron_schedule", workerConfig.JanitorCronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("dispatch_timeout", workerConfig.DispatchTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	startMetricsServer(ctx, logger)

	healthAddr := ":" + strconv.Itoa(workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	var (
		feedRepo    repository.FeedRepository
		entryRepo   repository.FeedEntryRepository
		subRepo     repository.SubscriptionRepository
		receiptRepo repository.SentReceiptRepository
	)
	switch db.Driver() {
	case "postgres":
		feedRepo = pgRepo.NewFeedRepo(database)
		entryRepo = pgRepo.NewFeedEntryRepo(database)
		subRepo = pgRepo.NewSubscriptionRepo(database)
		receiptRepo = pgRepo.NewSentReceiptRepo(database)
	default:
		feedRepo = liteRepo.NewFeedRepo(database)
		entryRepo = liteRepo.NewFeedEntryRepo(database)
		subRepo = liteRepo.NewSubscriptionRepo(database)
		receiptRepo = liteRepo.NewSentReceiptRepo(database)
	}

	contentFetchConfig, err := contentfetch.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("failed to load content fetch configuration, disabling content fetching",
			slog.Any("error", err))
		contentFetchConfig = contentfetch.DefaultConfig()
		contentFetchConfig.Enabled = false
	}

	var contentFetcher feedsvc.ContentFetcher
	if contentFetchConfig.Enabled {
		contentFetcher = contentfetch.NewReadabilityFetcher(contentFetchConfig)
		logger.Info("content fetching enabled",
			slog.Int("threshold", contentFetchConfig.Threshold),
			slog.Int("parallelism", contentFetchConfig.Parallelism))
	} else {
		logger.Info("content fetching disabled")
	}

	rssFetcher := fetch.NewRSSFetcher(createHTTPClient(), userAgent, contentFetchConfig.MaxBodySize)

	feedConfig := feedsvc.DefaultConfig()
	feedConfig.ContentFetchThreshold = contentFetchConfig.Threshold
	feedSvc := feedsvc.NewService(feedRepo, entryRepo, rssFetcher, contentFetcher, feedConfig)

	subSvc := subscription.NewService(subRepo, feedRepo, feedSvc, subscription.LoadConfigFromEnv())

	var translator dispatch.Translator
	if t := loadTranslator(logger); t != nil {
		translator = t
	}

	adapters := dispatch.NewAdapterRegistry()
	if registerDeliveryAdapters(logger, adapters) == 0 {
		logger.Error("no delivery adapter configured: set DISCORD_BOT_TOKEN and/or TELEGRAM_BOT_TOKEN")
		os.Exit(1)
	}
	if err := adapters.StartAll(ctx); err != nil {
		logger.Error("failed to start delivery adapters", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := adapters.StopAll(shutdownCtx); err != nil {
			logger.Error("error stopping delivery adapters", slog.Any("error", err))
		}
	}()

	dispatchSvc := dispatch.NewService(feedSvc, subSvc, entryRepo, receiptRepo, adapters, translator, dispatch.DefaultConfig())
	janitorSvc := janitor.NewService(entryRepo, receiptRepo, janitor.DefaultConfig())

	loc, err := time.LoadLocation(workerConfig.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, falling back to UTC", slog.String("timezone", workerConfig.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	sched := scheduler.New(loc)
	if err := sched.Add(scheduler.Job{
		Name:     "dispatch",
		Schedule: workerConfig.DispatchCronSchedule,
		Timeout:  workerConfig.DispatchTimeout,
		Run: func(ctx context.Context) error {
			return runDispatchCycle(ctx, logger, dispatchSvc, workerMetrics)
		},
	}); err != nil {
		logger.Error("failed to schedule dispatch job", slog.Any("error", err))
		os.Exit(1)
	}
	if err := sched.Add(scheduler.Job{
		Name:     "janitor",
		Schedule: workerConfig.JanitorCronSchedule,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := janitorSvc.RunCleanup(ctx)
			return err
		},
	}); err != nil {
		logger.Error("failed to schedule janitor job", slog.Any("error", err))
		os.Exit(1)
	}

	sched.Start()
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("dispatch_schedule", workerConfig.DispatchCronSchedule),
		slog.String("janitor_schedule", workerConfig.JanitorCronSchedule),
		slog.String("timezone", loc.String()))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("error stopping scheduler", slog.Any("error", err))
	}
}

// runDispatchCycle runs one Dispatcher cycle and records its outcome to the
// worker's cron metrics.
func runDispatchCycle(ctx context.Context, logger *slog.Logger, svc *dispatch.Service, metrics *workerPkg.WorkerMetrics) error {
	startTime := time.Now()
	result, err := svc.RunCycle(ctx)
	if err != nil {
		logger.Error("dispatch cycle failed", slog.Any("error", err))
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		return err
	}

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(startTime).Seconds())
	metrics.RecordFeedsProcessed(int(result.FeedsFetched))
	metrics.RecordLastSuccess()

	logger.Info("dispatch cycle completed",
		slog.Int64("feeds_fetched", result.FeedsFetched),
		slog.Int64("feeds_errored", result.FeedsErrored),
		slog.Int64("new_entries", result.NewEntries),
		slog.Int("subscriptions", result.Subscriptions),
		slog.Int64("messages_sent", result.MessagesSent),
		slog.Int64("send_errors", result.SendErrors),
		slog.Duration("duration", result.Duration))
	return nil
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and applies the schema.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database, db.Driver()); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security.
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

// loadTranslator builds the Translation Layer from TRANSLATION_ENABLED /
// TRANSLATION_PROVIDER. A disabled or misconfigured translator falls back to
// a nil Translator, which the Dispatcher treats as translation-off.
func loadTranslator(logger *slog.Logger) *translate.Service {
	if os.Getenv("TRANSLATION_ENABLED") != "true" {
		logger.Info("translation disabled")
		return nil
	}

	var provider translate.Provider
	switch os.Getenv("TRANSLATION_PROVIDER") {
	case "google":
		apiKey := os.Getenv("GOOGLE_TRANSLATE_API_KEY")
		if apiKey == "" {
			logger.Warn("GOOGLE_TRANSLATE_API_KEY not set, translation disabled")
			return nil
		}
		cfg := translate.DefaultGoogleConfig()
		cfg.APIKey = apiKey
		p, err := translate.NewGoogle(cfg)
		if err != nil {
			logger.Warn("failed to initialize google translation provider, translation disabled", slog.Any("error", err))
			return nil
		}
		provider = p
	case "deepl":
		apiKey := os.Getenv("DEEPL_API_KEY")
		if apiKey == "" {
			logger.Warn("DEEPL_API_KEY not set, translation disabled")
			return nil
		}
		cfg := translate.DefaultDeepLConfig()
		cfg.APIKey = apiKey
		p, err := translate.NewDeepL(cfg)
		if err != nil {
			logger.Warn("failed to initialize deepl translation provider, translation disabled", slog.Any("error", err))
			return nil
		}
		provider = p
	case "openai", "":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Warn("OPENAI_API_KEY not set, translation disabled")
			return nil
		}
		provider = translate.NewOpenAI(apiKey, translate.DefaultOpenAIConfig())
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Warn("ANTHROPIC_API_KEY not set, translation disabled")
			return nil
		}
		provider = translate.NewClaude(apiKey)
	case "noop":
		provider = translate.NewNoOp()
	default:
		logger.Warn("unknown TRANSLATION_PROVIDER, translation disabled", slog.String("provider", os.Getenv("TRANSLATION_PROVIDER")))
		return nil
	}

	ttlDays := 30
	if v := os.Getenv("TRANSLATION_CACHE_TTL_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			ttlDays = parsed
		} else {
			logger.Warn("invalid TRANSLATION_CACHE_TTL_DAYS, using default", slog.String("value", v))
		}
	}

	logger.Info("translation enabled", slog.String("provider", provider.Name()), slog.Int("cache_ttl_days", ttlDays))
	return translate.NewService(provider, 10000, time.Duration(ttlDays)*24*time.Hour)
}

// registerDeliveryAdapters wires the Discord and Telegram bindings into the
// dispatch registry and returns the number registered. A platform whose bot
// token is simply absent is skipped (not every installation uses both
// platforms), but at least one adapter must be configured or startup aborts
// (see the caller).
func registerDeliveryAdapters(logger *slog.Logger, registry *dispatch.AdapterRegistry) int {
	registered := 0

	if token := os.Getenv("DISCORD_BOT_TOKEN"); token != "" {
		cfg := discord.DefaultConfig()
		cfg.BotToken = token
		adapter, err := discord.New(cfg)
		if err != nil {
			logger.Error("failed to initialize Discord adapter", slog.Any("error", err))
			os.Exit(1)
		}
		registry.Register(adapter)
		registered++
		logger.Info("Discord delivery adapter registered")
	} else {
		logger.Info("DISCORD_BOT_TOKEN not set, Discord delivery disabled")
	}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg := telegram.DefaultConfig()
		cfg.BotToken = token
		adapter, err := telegram.New(cfg)
		if err != nil {
			logger.Error("failed to initialize Telegram adapter", slog.Any("error", err))
			os.Exit(1)
		}
		registry.Register(adapter)
		registered++
		logger.Info("Telegram delivery adapter registered")
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, Telegram delivery disabled")
	}

	return registered
}
