package metrics

import (
	"context"
	"fmt"
	"time"
)

// RunSummary returns the summary for one run.
func (q *Query) RunSummary(ctx context.Context, runID string) (*Summary, error) {
	return q.GetSummary(ctx, Filter{RunID: runID})
}

// SourceHistory returns the most recent metrics for a source, newest first.
func (q *Query) SourceHistory(ctx context.Context, sourceURL string, limit int) ([]Metric, error) {
	metrics, err := q.List(ctx, Filter{SourceURL: sourceURL}, 0)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(metrics)-1; i < j; i, j = i+1, j-1 {
		metrics[i], metrics[j] = metrics[j], metrics[i]
	}
	if limit > 0 && len(metrics) > limit {
		metrics = metrics[:limit]
	}
	return metrics, nil
}

// RunInfo describes one recorded run.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	Count     int       `json:"count"`
	Successes int       `json:"successes"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

// Runs lists recorded runs, most recent first.
func (q *Query) Runs(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `SELECT run_id, COUNT(*), SUM(success), MIN(created_at), MAX(created_at)
		FROM probe_metrics GROUP BY run_id ORDER BY MAX(id) DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		var started, finished int64
		if err := rows.Scan(&r.RunID, &r.Count, &r.Successes, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Started = time.UnixMilli(started)
		r.Finished = time.UnixMilli(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
