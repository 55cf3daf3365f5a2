// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/sourcecheck/internal/check"
	"github.com/jackzampolin/sourcecheck/internal/config"
	"github.com/jackzampolin/sourcecheck/internal/content"
	"github.com/jackzampolin/sourcecheck/internal/home"
	"github.com/jackzampolin/sourcecheck/internal/metrics"
	"github.com/jackzampolin/sourcecheck/internal/store"
	"github.com/jackzampolin/sourcecheck/internal/webbook"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store        *store.Store
	WebBook      webbook.WebBook
	Processors   *content.Cache
	Prober       *check.Prober
	Scheduler    *check.Scheduler
	MetricsQuery *metrics.Query
	Config       *config.Manager
	Logger       *slog.Logger
	Home         *home.Dir

	closers []func() error
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// WebBookFrom extracts the scraping client from context.
func WebBookFrom(ctx context.Context) webbook.WebBook {
	if s := ServicesFrom(ctx); s != nil {
		return s.WebBook
	}
	return nil
}

// ProcessorsFrom extracts the content processor cache from context.
func ProcessorsFrom(ctx context.Context) *content.Cache {
	if s := ServicesFrom(ctx); s != nil {
		return s.Processors
	}
	return nil
}

// SchedulerFrom extracts the check scheduler from context.
func SchedulerFrom(ctx context.Context) *check.Scheduler {
	if s := ServicesFrom(ctx); s != nil {
		return s.Scheduler
	}
	return nil
}

// MetricsQueryFrom extracts the metrics query helper from context.
func MetricsQueryFrom(ctx context.Context) *metrics.Query {
	if s := ServicesFrom(ctx); s != nil {
		return s.MetricsQuery
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
