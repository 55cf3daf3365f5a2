package svcctx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/sourcecheck/internal/check"
	"github.com/jackzampolin/sourcecheck/internal/config"
	"github.com/jackzampolin/sourcecheck/internal/content"
	"github.com/jackzampolin/sourcecheck/internal/home"
	"github.com/jackzampolin/sourcecheck/internal/metrics"
	"github.com/jackzampolin/sourcecheck/internal/store"
	"github.com/jackzampolin/sourcecheck/internal/telemetry"
	"github.com/jackzampolin/sourcecheck/internal/webbook"
)

// chapterCacheSize bounds the scraper's chapter text cache.
const chapterCacheSize = 64

// BuildConfig configures Build.
type BuildConfig struct {
	// DatabasePath overrides the home directory database. store.MemoryPath
	// opens an in-memory database.
	DatabasePath string
	Home         *home.Dir
	// Config may be nil, in which case defaults are used.
	Config *config.Manager
	// WebBook replaces the HTTP scraper, e.g. with a test double.
	WebBook webbook.WebBook
	Logger  *slog.Logger
}

// Build opens the store and wires the scraper, processors, prober, scheduler
// and metrics together. ctx bounds the rule-change watcher. Close releases
// everything.
func Build(ctx context.Context, cfg BuildConfig) (*Services, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	current := func() *config.Config {
		if cfg.Config != nil {
			return cfg.Config.Get()
		}
		return config.DefaultConfig()
	}

	dbPath := cfg.DatabasePath
	if dbPath == "" {
		if cfg.Home == nil {
			return nil, errors.New("either a database path or a home directory is required")
		}
		if err := cfg.Home.EnsureExists(); err != nil {
			return nil, err
		}
		dbPath = cfg.Home.DatabasePath()
	}

	st, err := store.Open(ctx, store.Config{Path: dbPath, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	s := &Services{
		Store:        st,
		Config:       cfg.Config,
		Home:         cfg.Home,
		Logger:       logger,
		MetricsQuery: metrics.NewQuery(st.DB()),
	}
	s.closers = append(s.closers, st.Close)

	web := cfg.WebBook
	if web == nil {
		wcfg := current().WebBookConfig()
		wcfg.CacheSize = chapterCacheSize
		wcfg.Logger = logger.With("component", "webbook")
		client, err := webbook.New(wcfg)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to create scraper: %w", err)
		}
		web = client
	}
	s.WebBook = telemetry.WrapWebBook(web)

	bus := check.NewBus(logger)

	processors, err := content.NewCache(content.CacheConfig{
		Size:     current().Reader.ProcessorCacheSize,
		Rules:    st,
		Settings: func() content.Settings { return current().ReaderSettings() },
		Notifier: bus,
		Logger:   logger.With("component", "content"),
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	processors.Watch(ctx, st)
	s.Processors = processors

	s.Prober = check.NewProber(check.ProberConfig{
		WebBook:    s.WebBook,
		Store:      st,
		Processors: processors,
		Logger:     logger.With("component", "prober"),
	})

	observers := []check.Observer{metrics.NewRecorder(st.DB(), logger)}
	if telemetry.Enabled() {
		obs, err := telemetry.NewProbeObserver(nil)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		observers = append(observers, obs)
	}

	s.Scheduler = check.NewScheduler(check.SchedulerConfig{
		Store:     st,
		Prober:    s.Prober,
		Bus:       bus,
		Settings:  func() check.RunSettings { return current().RunSettings() },
		Observers: observers,
		Logger:    logger.With("component", "scheduler"),
	})

	return s, nil
}

// Close stops any active run and closes the store.
func (s *Services) Close() error {
	if s.Scheduler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.Scheduler.Stop(ctx); err != nil {
			s.Logger.Warn("check run did not stop in time", "error", err)
		}
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
