package metrics

import (
	"context"
	"sort"
)

// Summary summarizes the metrics matching a filter.
type Summary struct {
	RunID          string         `json:"run_id,omitempty"`
	Count          int            `json:"count"`
	SuccessCount   int            `json:"success_count"`
	FailureCount   int            `json:"failure_count"`
	FailuresByTag  map[string]int `json:"failures_by_tag"`
	FailuresByKind map[string]int `json:"failures_by_kind"`

	// Respond time in milliseconds
	AvgRespondMS float64 `json:"avg_respond_ms"`
	MinRespondMS int64   `json:"min_respond_ms"`
	MaxRespondMS int64   `json:"max_respond_ms"`
	P50RespondMS float64 `json:"p50_respond_ms"`
	P95RespondMS float64 `json:"p95_respond_ms"`
}

// GetSummary returns a summary of metrics matching the filter.
func (q *Query) GetSummary(ctx context.Context, f Filter) (*Summary, error) {
	metrics, err := q.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}
	s := Summarize(metrics)
	s.RunID = f.RunID
	return s, nil
}

// Summarize folds metrics into a Summary.
func Summarize(metrics []Metric) *Summary {
	s := &Summary{
		Count:          len(metrics),
		FailuresByTag:  make(map[string]int),
		FailuresByKind: make(map[string]int),
	}
	if len(metrics) == 0 {
		return s
	}

	latencies := make([]float64, 0, len(metrics))
	var sum int64
	for _, m := range metrics {
		if m.Success {
			s.SuccessCount++
		} else {
			s.FailureCount++
			if m.Tag != "" {
				s.FailuresByTag[m.Tag]++
			}
			if m.Kind != "" {
				s.FailuresByKind[m.Kind]++
			}
		}
		sum += m.RespondMS
		latencies = append(latencies, float64(m.RespondMS))
	}

	sort.Float64s(latencies)
	s.AvgRespondMS = float64(sum) / float64(len(metrics))
	s.MinRespondMS = int64(latencies[0])
	s.MaxRespondMS = int64(latencies[len(latencies)-1])
	s.P50RespondMS = percentile(latencies, 50)
	s.P95RespondMS = percentile(latencies, 95)
	return s
}

// percentile calculates the p-th percentile from a sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := (p / 100.0) * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
