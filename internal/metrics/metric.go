// Package metrics records probe outcomes and summarizes check runs.
package metrics

import "time"

// Metric is one recorded probe outcome. Metrics are append-only rows in the
// probe_metrics table.
type Metric struct {
	ID int64 `json:"id,omitempty"`

	// Attribution
	RunID      string `json:"run_id"`
	SourceURL  string `json:"source_url"`
	SourceName string `json:"source_name,omitempty"`

	// Outcome
	Success bool   `json:"success"`
	Kind    string `json:"kind,omitempty"` // failure kind, empty on success
	Tag     string `json:"tag,omitempty"`  // health tag the failure added
	Message string `json:"message,omitempty"`

	RespondMS int64     `json:"respond_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// RespondTime returns RespondMS as a duration.
func (m Metric) RespondTime() time.Duration {
	return time.Duration(m.RespondMS) * time.Millisecond
}
