package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/V4T54L/hookwatch/internal/adapter/api/handler"
	"github.com/V4T54L/hookwatch/internal/adapter/api/middleware"
	"github.com/V4T54L/hookwatch/internal/adapter/metrics"
	"github.com/V4T54L/hookwatch/internal/domain"
	"github.com/V4T54L/hookwatch/internal/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reporter is the part of the error reporter exposed over HTTP.
type Reporter interface {
	HandleInteraction(ctx context.Context, in domain.Interaction) (domain.InteractionResponse, error)
	FullText(ctx context.Context, messageID string) (string, error)
	Capture(ctx context.Context, event string, err error)
}

// NewRouter creates and configures the HTTP router. pinger may be nil.
// Admin routes are only mounted when an admin API key is configured.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	reporter Reporter,
	pinger handler.Pinger,
	gatherer prometheus.Gatherer,
	m *metrics.Metrics,
) (http.Handler, error) {
	mux := http.NewServeMux()

	interactionHandler, err := handler.NewInteractionHandler(reporter, cfg.InteractionsPublicKey, logger)
	if err != nil {
		return nil, err
	}
	failureHandler := handler.NewFailureHandler(reporter, pinger, logger)

	// Routes
	mux.Handle("POST /interactions", interactionHandler)
	mux.HandleFunc("GET /health", failureHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if cfg.AdminAPIKey != "" {
		authMiddleware := middleware.Auth(middleware.StaticKeys{cfg.AdminAPIKey}, logger)
		mux.Handle("GET /admin/failures/{messageID}", authMiddleware(http.HandlerFunc(failureHandler.GetFailure)))
	}

	return middleware.Logging(logger, m)(mux), nil
}
