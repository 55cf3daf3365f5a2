// Package store persists book sources, replacement rules and probe metrics
// in sqlite and publishes change notifications for sources and rules.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/jackzampolin/sourcecheck/internal/schema"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config configures the store.
type Config struct {
	// Path is the sqlite database file. MemoryPath opens an in-memory database.
	Path string
	// BusyTimeoutMillis sets PRAGMA busy_timeout. Default: 10000.
	BusyTimeoutMillis int
	Logger            *slog.Logger
}

// Store is the sqlite-backed persistence layer.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[Topic]map[int]chan Change
	next int
}

// Open opens (and creates, if needed) the database and applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if cfg.BusyTimeoutMillis == 0 {
		cfg.BusyTimeoutMillis = 10_000
	}

	if cfg.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.Path == MemoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMillis),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := schema.Initialize(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	logger.Info("store opened", "path", cfg.Path)

	return &Store{
		db:     db,
		logger: logger,
		subs:   make(map[Topic]map[int]chan Change),
	}, nil
}

// DB returns the underlying database handle for packages that keep their own
// tables in the same file (probe metrics).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes all subscriptions and the database.
func (s *Store) Close() error {
	s.mu.Lock()
	for _, subs := range s.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
	}
	s.mu.Unlock()
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
