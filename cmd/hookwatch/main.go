package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/V4T54L/hookwatch/internal/adapter/api"
	"github.com/V4T54L/hookwatch/internal/adapter/api/handler"
	"github.com/V4T54L/hookwatch/internal/adapter/logsink"
	"github.com/V4T54L/hookwatch/internal/adapter/metrics"
	"github.com/V4T54L/hookwatch/internal/adapter/pii"
	"github.com/V4T54L/hookwatch/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/hookwatch/internal/adapter/repository/redis"
	"github.com/V4T54L/hookwatch/internal/adapter/repository/sqlite"
	"github.com/V4T54L/hookwatch/internal/adapter/sysinfo"
	"github.com/V4T54L/hookwatch/internal/adapter/webhook"
	"github.com/V4T54L/hookwatch/internal/domain"
	"github.com/V4T54L/hookwatch/internal/pkg/config"
	"github.com/V4T54L/hookwatch/internal/pkg/logger"
	"github.com/V4T54L/hookwatch/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// The scheduler, aggregator, reporter and webhook clients log to stderr
	// only, so a failing delivery never feeds back into the webhooks.
	// Everything else uses appLogger, which also ships to the webhooks.
	baseLogger := logger.New(cfg.LogLevel)

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Webhooks ---
	httpClient := &http.Client{Timeout: 15 * time.Second}
	normalHook, err := newWebhook("normal", cfg.NormalWebhookURL, httpClient, cfg, baseLogger)
	if err != nil {
		baseLogger.Error("failed to configure normal webhook", "error", err)
		os.Exit(1)
	}
	errorHook, err := newWebhook("errors", cfg.ErrorWebhookURL, httpClient, cfg, baseLogger)
	if err != nil {
		baseLogger.Error("failed to configure error webhook", "error", err)
		os.Exit(1)
	}

	// --- Log Aggregation ---
	redactor := pii.NewRedactor(splitList(cfg.RedactFields), cfg.Secrets())
	aggregator := usecase.NewLogAggregator(normalHook, errorHook, cfg.WebhookName, redactor, baseLogger, m)

	sink := logsink.NewHandler(aggregator, domain.ParseSeverity(cfg.MaxLogVerbosity), splitList(cfg.LogPrefix)...)
	appLogger := logger.New(cfg.LogLevel, sink)
	slog.SetDefault(appLogger)

	// --- Failure Store ---
	store, pinger, closeStore, err := openFailureStore(ctx, cfg, appLogger)
	if err != nil {
		baseLogger.Error("failed to open failure store", "store", cfg.FailureStore, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	reporter := usecase.NewErrorReporter(store, errorHook, sysinfo.NewProbe(), cfg.ServiceName, baseLogger, m)

	// --- Scheduled Tasks ---
	scheduler := usecase.NewScheduler(baseLogger, m)
	go scheduler.Run(ctx, aggregator, cfg.LogFlushInterval)

	if cfg.BotID != "" {
		source := usecase.StatsFunc(func(context.Context) (usecase.Stats, error) {
			return usecase.Stats{BotID: cfg.BotID, GuildCount: cfg.GuildCount, ShardCount: cfg.ShardCount}, nil
		})
		dirs := usecase.DefaultDirectories(cfg.TopGGToken, cfg.DiscordBotsGGToken, cfg.BotsOnDiscordToken)
		pusher := usecase.NewStatPusher(source, dirs, httpClient, appLogger, m)
		go scheduler.Run(ctx, pusher, cfg.StatPushInterval)
	}

	// --- HTTP Server ---
	router, err := api.NewRouter(cfg, appLogger, reporter, pinger, prometheus.DefaultGatherer, m)
	if err != nil {
		baseLogger.Error("failed to build router", "error", err)
		os.Exit(1)
	}
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		defer reporter.Recover(ctx, "HTTPServer")
		appLogger.Info("starting server", "component", cfg.LogPrefix, "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			reporter.Capture(ctx, "HTTPServer", err)
			baseLogger.Error("server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	baseLogger.Info("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("server shutdown failed", "error", err)
	}
	if err := aggregator.Flush(shutdownCtx); err != nil {
		baseLogger.Error("final log flush failed", "error", err)
	}

	baseLogger.Info("shut down gracefully")
}

// newWebhook returns a Discord webhook for url, or a stdout webhook when no
// url is configured.
func newWebhook(name, url string, client *http.Client, cfg *config.Config, logger *slog.Logger) (domain.Webhook, error) {
	if url == "" {
		logger.Warn("webhook url not set, printing to stdout", "webhook", name)
		return webhook.NewStdoutWebhook(name, os.Stdout), nil
	}
	limiter := rate.NewLimiter(rate.Every(cfg.WebhookRate), cfg.WebhookBurst)
	return webhook.NewDiscordWebhook(url, client, limiter, logger.With("webhook", name))
}

func openFailureStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.FailureRepository, handler.Pinger, func(), error) {
	switch cfg.FailureStore {
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		repo := postgres.NewFailureRepository(db, logger)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return repo, repo, func() { db.Close() }, nil

	case "redis":
		redisOpts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		repo := redisrepo.NewFailureRepository(client, logger)
		if err := repo.Ping(ctx); err != nil {
			logger.Warn("could not connect to redis, reports will fail until it is reachable", "error", err)
		}
		return repo, repo, func() { client.Close() }, nil

	case "sqlite", "":
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, repo, func() { repo.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown failure store %q", cfg.FailureStore)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
