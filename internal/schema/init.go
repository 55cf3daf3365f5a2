package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Initialize creates all tables. It's safe to call multiple times since every
// statement is guarded by IF NOT EXISTS.
func Initialize(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	all, err := All()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	for _, t := range all {
		if _, err := db.ExecContext(ctx, t.DDL); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
		logger.Debug("table ready", "name", t.Name)
	}

	return nil
}
