// Package reporter forwards swallowed errors to an error tracker.
package reporter

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

type Sentry struct {
	hub *sentry.Hub
}

// NewSentry initializes the global Sentry client. An empty DSN yields a Nop
// reporter.
func NewSentry(dsn, environment string) (ports.ErrorReporter, error) {
	if dsn == "" {
		return Nop{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return nil, err
	}
	return &Sentry{hub: sentry.CurrentHub()}, nil
}

func (s *Sentry) Report(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = s.hub
	}
	hub.CaptureException(err)
}

// Flush waits for buffered events, used on shutdown.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

type Nop struct{}

func (Nop) Report(context.Context, error) {}

var (
	_ ports.ErrorReporter = (*Sentry)(nil)
	_ ports.ErrorReporter = Nop{}
)
