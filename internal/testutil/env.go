package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackzampolin/sourcecheck/internal/check"
	"github.com/jackzampolin/sourcecheck/internal/config"
	"github.com/jackzampolin/sourcecheck/internal/home"
	"github.com/jackzampolin/sourcecheck/internal/store"
	"github.com/jackzampolin/sourcecheck/internal/svcctx"
)

// Logger returns a logger for tests. SOURCECHECK_TEST_LOG=debug shows
// everything; by default only warnings and errors are printed.
func Logger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("SOURCECHECK_TEST_LOG") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Home returns a home directory under t.TempDir.
func Home(t *testing.T) *home.Dir {
	t.Helper()
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	return h
}

// ServicesConfig configures NewServices. Zero values give an in-memory
// store, a default MockWebBook and no config manager.
type ServicesConfig struct {
	WebBook *check.MockWebBook
	Config  *config.Manager
	Home    *home.Dir
}

// NewServices builds the full service graph over an in-memory database and
// closes it when the test ends.
func NewServices(t *testing.T, cfg ServicesConfig) *svcctx.Services {
	t.Helper()
	if cfg.WebBook == nil {
		cfg.WebBook = &check.MockWebBook{}
	}
	if cfg.Home == nil {
		cfg.Home = Home(t)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	services, err := svcctx.Build(ctx, svcctx.BuildConfig{
		DatabasePath: store.MemoryPath,
		Home:         cfg.Home,
		Config:       cfg.Config,
		WebBook:      cfg.WebBook,
		Logger:       Logger(),
	})
	if err != nil {
		t.Fatalf("svcctx.Build() error = %v", err)
	}
	t.Cleanup(func() {
		if err := services.Close(); err != nil {
			t.Errorf("services.Close() error = %v", err)
		}
	})
	return services
}

// ConfigManager writes the default config file into dir and loads it.
func ConfigManager(t *testing.T, dir string) *config.Manager {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := config.WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	mgr, err := config.NewManager(path, dir, Logger())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr
}

// WaitForServer polls /ready until the store answers or timeout.
func WaitForServer(ctx context.Context, url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/ready", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			var ready struct {
				Store string `json:"store"`
			}
			decodeErr := json.NewDecoder(resp.Body).Decode(&ready)
			resp.Body.Close()
			if decodeErr == nil && resp.StatusCode == http.StatusOK && ready.Store == "ok" {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	return fmt.Errorf("server not ready after %v", timeout)
}

// WaitForShutdown waits for a channel to receive a value or timeout.
func WaitForShutdown(done <-chan error, timeout time.Duration) error {
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for shutdown")
	}
}
