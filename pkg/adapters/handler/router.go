package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wadjakorntonsri/shortlink/pkg/config"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

// Pinger reports store health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, service ports.LinkService, pinger Pinger, logger *slog.Logger) http.Handler {
	h := NewHTTPHandler(service, cfg, logger)
	mw := NewMiddleware(cfg, logger)
	authHandler := NewAuthHandler(cfg, logger)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				logger.Error("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{code}", h.Redirect)
	mux.HandleFunc("POST /api/v1/verify-password", h.VerifyPassword)
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Protected Routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/v1/links", h.Create)
	protectedMux.HandleFunc("POST /api/v1/links/bulk", h.BulkCreate)
	protectedMux.HandleFunc("GET /api/v1/links", h.List)
	protectedMux.HandleFunc("GET /api/v1/links/{code}/stats", h.Stats)
	protectedMux.HandleFunc("DELETE /api/v1/links/{code}", h.Deactivate)

	// protectedMux holds full paths, so the prefix mount dispatches as-is.
	mux.Handle("/api/v1/", mw.AuthMiddleware(protectedMux))

	var handler http.Handler = mux
	if cfg.SentryDSN != "" {
		handler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(handler)
	}
	return RequestLogger(logger, Recover(logger, handler))
}
