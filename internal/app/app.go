package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/betflow/betflow-api/internal/api"
	"github.com/betflow/betflow-api/internal/api/middleware"
	"github.com/betflow/betflow-api/internal/config"
	"github.com/betflow/betflow-api/internal/db"
	"github.com/betflow/betflow-api/internal/gateway"
	"github.com/betflow/betflow-api/internal/idempotency"
	"github.com/betflow/betflow-api/internal/observability"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/betflow/betflow-api/internal/service"
	"github.com/betflow/betflow-api/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and the reminder jobs, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// A nil interface, not a typed nil, keeps Redis optional downstream.
	var cache redis.Cmdable
	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		cache = redisClient
	}

	store := repository.NewStore(pool)
	idemStore := idempotency.NewStore(cache, repository.New(pool), cfg.IdempotencyTTL)

	notifier := newNotifier(cfg, logger)
	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	var rates service.ExchangeRateService = service.NewStaticExchangeRateService()
	if cfg.FXAPIURL != "" {
		provider := gateway.NewHTTPRateProvider(cfg.FXAPIURL, &http.Client{Timeout: 5 * time.Second})
		rates = service.NewCachedExchangeRateService(provider, cache, cfg.FXCacheTTL)
		logger.Info("fx rates from provider", zap.String("url", cfg.FXAPIURL), zap.Duration("cache_ttl", cfg.FXCacheTTL))
	}

	notify := service.NewNotificationService(notifier)
	promotions := service.NewPromotionService(store, publisher)
	services := api.Services{
		Users:      service.NewUserService(store, notify),
		Identities: service.NewIdentityService(store),
		Platforms:  service.NewPlatformService(store),
		Accounts:   service.NewAccountService(store),
		Ledger:     service.NewLedgerService(store, publisher),
		Promotions: promotions,
		Statistics: service.NewStatisticsService(store),
		Currency:   service.NewCurrencyService(rates),
	}
	reminders := service.NewReminderService(store, notify, promotions).
		WithAlertDelay(cfg.DocumentAlertDelay).
		WithLocation(cfg.SchedulerTimezone)

	var stopJobs []func()
	if cfg.SchedulerEnabled {
		for _, job := range scheduledJobs(cfg, reminders) {
			stopJobs = append(stopJobs, job.Run(ctx))
		}
		logger.Info("scheduler started", zap.String("timezone", cfg.SchedulerTimezone.String()), zap.Int("jobs", len(stopJobs)))
	}

	router := api.NewRouter(cfg, logger, services, idemStore, pool, cache)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping scheduled jobs")
	for _, stop := range stopJobs {
		stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// scheduledJobs lists the reminder jobs in the configured timezone.
func scheduledJobs(cfg *config.Config, reminders *service.ReminderService) []*worker.JobWorker {
	loc := cfg.SchedulerTimezone
	return []*worker.JobWorker{
		worker.NewJobWorker("daily-summary", worker.DailyAt(9, 0, loc), reminders.DailySummary),
		worker.NewJobWorker("document-check", worker.DailyAt(8, 0, loc), reminders.CheckExpiringDocuments),
		worker.NewJobWorker("promotion-check", worker.EveryHours(cfg.PromotionCheckInterval, loc), reminders.CheckExpiringPromotions),
		worker.NewJobWorker("expire-promotions", worker.DailyAt(0, 0, loc), reminders.ExpirePromotions),
	}
}

func newNotifier(cfg *config.Config, logger *zap.Logger) gateway.Notifier {
	if cfg.TelegramBotToken == "" {
		logger.Info("telegram not configured, alerts go to the log")
		return gateway.NewLogNotifier()
	}
	bot, err := gateway.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		logger.Warn("telegram unavailable, alerts go to the log", zap.Error(err))
		return gateway.NewLogNotifier()
	}
	return bot
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (gateway.Publisher, func()) {
	if cfg.AMQPURL == "" {
		return gateway.NoopPublisher{}, func() {}
	}
	p, err := gateway.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Warn("amqp unavailable, domain events are dropped", zap.Error(err))
		return gateway.NoopPublisher{}, func() {}
	}
	logger.Info("publishing domain events", zap.String("exchange", cfg.AMQPExchange))
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Warn("amqp close failed", zap.Error(err))
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
