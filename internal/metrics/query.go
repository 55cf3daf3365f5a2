package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Query provides queries for metrics.
type Query struct {
	db *sql.DB
}

// NewQuery creates a new metrics query helper.
func NewQuery(db *sql.DB) *Query {
	return &Query{db: db}
}

// Filter specifies query filters.
type Filter struct {
	RunID     string
	SourceURL string
	Kind      string
	After     time.Time
	Before    time.Time
	Success   *bool // nil = any, true = success only, false = failures only
}

// buildWhereClause builds a SQL WHERE clause and its arguments from a Filter.
func buildWhereClause(f Filter) (string, []any) {
	var parts []string
	var args []any

	if f.RunID != "" {
		parts = append(parts, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.SourceURL != "" {
		parts = append(parts, "source_url = ?")
		args = append(args, f.SourceURL)
	}
	if f.Kind != "" {
		parts = append(parts, "kind = ?")
		args = append(args, f.Kind)
	}
	if !f.After.IsZero() {
		parts = append(parts, "created_at > ?")
		args = append(args, f.After.UnixMilli())
	}
	if !f.Before.IsZero() {
		parts = append(parts, "created_at < ?")
		args = append(args, f.Before.UnixMilli())
	}
	if f.Success != nil {
		parts = append(parts, "success = ?")
		args = append(args, *f.Success)
	}

	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// List returns metrics matching the filter, oldest first. A limit of 0
// returns everything.
func (q *Query) List(ctx context.Context, f Filter, limit int) ([]Metric, error) {
	where, args := buildWhereClause(f)
	query := `SELECT id, run_id, source_url, source_name, success, kind, tag, message, respond_ms, created_at
		FROM probe_metrics` + where + ` ORDER BY id`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []Metric
	for rows.Next() {
		var m Metric
		var created int64
		if err := rows.Scan(&m.ID, &m.RunID, &m.SourceURL, &m.SourceName, &m.Success,
			&m.Kind, &m.Tag, &m.Message, &m.RespondMS, &created); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		m.CreatedAt = time.UnixMilli(created)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// LatestRunID returns the run id of the most recent metric, or "" when none
// are recorded.
func (q *Query) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx,
		`SELECT run_id FROM probe_metrics ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest run: %w", err)
	}
	return id, nil
}
