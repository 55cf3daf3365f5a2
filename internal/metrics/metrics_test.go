package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackzampolin/sourcecheck/internal/check"
	"github.com/jackzampolin/sourcecheck/internal/store"
	"github.com/jackzampolin/sourcecheck/internal/types"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.Config{Path: store.MemoryPath})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRecorder_ObserveProbe(t *testing.T) {
	st := openStore(t)
	rec := NewRecorder(st.DB(), nil)
	q := NewQuery(st.DB())
	ctx := context.Background()

	rec.ObserveProbe(ctx, "run-1", check.Result{URL: "https://a", Name: "A", RespondTime: 120})
	rec.ObserveProbe(ctx, "run-1", check.Result{
		URL:         "https://b",
		Name:        "B",
		RespondTime: 300,
		Failure:     &check.Failure{Kind: check.KindEmptyToc, Message: "toc empty"},
	})
	rec.ObserveProbe(ctx, "run-1", check.Result{
		URL:         "https://c",
		RespondTime: 600,
		Failure:     &check.Failure{Kind: check.KindTimeout, Message: "check timed out", Err: errors.New("deadline")},
	})
	rec.ObserveProbe(ctx, "run-2", check.Result{URL: "https://a", RespondTime: 90})

	metrics, err := q.List(ctx, Filter{RunID: "run-1"}, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metrics) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(metrics))
	}
	b := metrics[1]
	if b.Success || b.Kind != "empty_toc" || b.Tag != types.TagTocInvalid || b.Message != "toc empty" {
		t.Errorf("unexpected failure metric: %+v", b)
	}
	if b.RespondTime() != 300*time.Millisecond {
		t.Errorf("expected 300ms, got %v", b.RespondTime())
	}

	s, err := q.RunSummary(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunSummary() error = %v", err)
	}
	if s.Count != 3 || s.SuccessCount != 1 || s.FailureCount != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.FailuresByTag[types.TagTocInvalid] != 1 || s.FailuresByTag[types.TagTimedOut] != 1 {
		t.Errorf("unexpected tag breakdown: %v", s.FailuresByTag)
	}
	if s.AvgRespondMS != 340 {
		t.Errorf("expected avg 340, got %v", s.AvgRespondMS)
	}
	if s.MinRespondMS != 120 || s.MaxRespondMS != 600 || s.P50RespondMS != 300 {
		t.Errorf("unexpected latency stats: %+v", s)
	}

	latest, err := q.LatestRunID(ctx)
	if err != nil || latest != "run-2" {
		t.Errorf("expected run-2, got %q (%v)", latest, err)
	}

	runs, err := q.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-2" || runs[1].Count != 3 || runs[1].Successes != 1 {
		t.Errorf("unexpected runs: %+v", runs)
	}

	history, err := q.SourceHistory(ctx, "https://a", 1)
	if err != nil {
		t.Fatalf("SourceHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].RunID != "run-2" {
		t.Errorf("expected newest metric first, got %+v", history)
	}
}

func TestQuery_Filters(t *testing.T) {
	st := openStore(t)
	rec := NewRecorder(st.DB(), nil)
	q := NewQuery(st.DB())
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, ok := range []bool{true, false, true, false} {
		m := Metric{RunID: "r", SourceURL: "https://s", Success: ok, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if !ok {
			m.Kind = "rule"
		}
		if _, err := rec.Record(ctx, m); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	failed := false
	tests := []struct {
		name     string
		filter   Filter
		limit    int
		expected int
	}{
		{"all", Filter{}, 0, 4},
		{"limit", Filter{}, 2, 2},
		{"failures", Filter{Success: &failed}, 0, 2},
		{"kind", Filter{Kind: "rule"}, 0, 2},
		{"after", Filter{After: base.Add(90 * time.Minute)}, 0, 2},
		{"before", Filter{Before: base.Add(30 * time.Minute)}, 0, 1},
		{"unknown run", Filter{RunID: "nope"}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.List(ctx, tt.filter, tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, len(got))
			}
		})
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Count != 0 || s.AvgRespondMS != 0 || s.FailuresByTag == nil {
		t.Errorf("unexpected empty summary: %+v", s)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		p        float64
		expected float64
	}{
		{"empty", nil, 50, 0},
		{"single", []float64{7}, 95, 7},
		{"median", []float64{1, 2, 3, 4}, 50, 2.5},
		{"max", []float64{1, 2, 3}, 100, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.values, tt.p); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
