package handler

import (
	"context"
	"net/http"

	"github.com/wadjakorntonsri/shortlink/pkg/app"
	"github.com/wadjakorntonsri/shortlink/pkg/config"
	"github.com/wadjakorntonsri/shortlink/pkg/logging"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	// No background workers survive between invocations.
	cfg.ClickAsync = false

	logger, _ := logging.New(logging.Options{Level: cfg.LogLevel})

	// Note: On Vercel, db.sqlite is ephemeral unless using a remote SQL/Turso URL in DATABASE_URL
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		panic(err)
	}
	mux = a.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
