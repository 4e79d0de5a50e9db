// Package app wires adapters and services into a runnable application. The
// server, the CLI and the serverless entry share it.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/wadjakorntonsri/shortlink/pkg/adapters/cache"
	"github.com/wadjakorntonsri/shortlink/pkg/adapters/geo"
	"github.com/wadjakorntonsri/shortlink/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shortlink/pkg/adapters/hasher"
	"github.com/wadjakorntonsri/shortlink/pkg/adapters/reporter"
	"github.com/wadjakorntonsri/shortlink/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink/pkg/config"
	"github.com/wadjakorntonsri/shortlink/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Repo    *sqlite.SQLiteRepository
	Service *services.LinkService
	Handler http.Handler
	// Clicks is nil when clicks are recorded inline.
	Clicks *services.AsyncCapturer

	closers []func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, Repo: repo}
	a.closers = append(a.closers, func() { repo.Close() })

	errReporter, err := reporter.NewSentry(cfg.SentryDSN, cfg.AppEnv)
	if err != nil {
		logger.Warn("sentry disabled", "error", err)
		errReporter = reporter.Nop{}
	}
	if s, ok := errReporter.(*reporter.Sentry); ok {
		a.closers = append(a.closers, func() { s.Flush(2 * time.Second) })
	}

	var store ports.Repository = repo
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, link cache disabled", "error", err)
		} else {
			store = cache.NewRedisLinkCache(repo, rdb, cfg.LinkCacheTTL, logger)
			a.closers = append(a.closers, func() { rdb.Close() })
		}
	}

	recorder := services.NewClickRecorder(store)
	capturer := services.NewCapturer(recorder, geo.NewIPAPI(cfg.GeoAPIURL, cfg.GeoTimeout, logger), errReporter, logger)

	var clicks ports.ClickCapturer = capturer
	if cfg.ClickAsync {
		a.Clicks = services.NewAsyncCapturer(capturer, cfg.ClickWorkers, cfg.ClickQueueSize)
		clicks = a.Clicks
	}

	a.Service = services.NewLinkService(store, hasher.NewBcrypt(cfg.BcryptCost), clicks,
		services.WithCodeLength(cfg.CodeLength))
	a.Handler = handler.NewRouter(cfg, a.Service, repo, logger)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
