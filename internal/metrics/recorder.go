package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/sourcecheck/internal/check"
)

// Recorder writes metrics to the probe_metrics table.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ check.Observer = (*Recorder)(nil)

// NewRecorder creates a metrics recorder.
func NewRecorder(db *sql.DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger}
}

// Record stores a single metric and returns its id.
func (r *Recorder) Record(ctx context.Context, m Metric) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO probe_metrics
			(run_id, source_url, source_name, success, kind, tag, message, respond_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.SourceURL, m.SourceName, m.Success, m.Kind, m.Tag, m.Message,
		m.RespondMS, m.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record metric: %w", err)
	}
	return res.LastInsertId()
}

// RecordProbe records the outcome of one checked source.
func (r *Recorder) RecordProbe(ctx context.Context, runID string, res check.Result) (int64, error) {
	m := Metric{
		RunID:      runID,
		SourceURL:  res.URL,
		SourceName: res.Name,
		Success:    res.Success(),
		RespondMS:  res.RespondTime,
		CreatedAt:  time.Now(),
	}
	if res.Failure != nil {
		m.Kind = res.Failure.Kind.String()
		m.Tag = res.Failure.Kind.Tag()
		m.Message = res.Failure.Message
	}
	return r.Record(ctx, m)
}

// ObserveProbe implements check.Observer. Write failures are logged, never
// surfaced to the run.
func (r *Recorder) ObserveProbe(ctx context.Context, runID string, res check.Result) {
	if _, err := r.RecordProbe(context.WithoutCancel(ctx), runID, res); err != nil {
		r.logger.Warn("failed to record probe metric", "run_id", runID, "source", res.URL, "error", err)
	}
}
