package check

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/sourcecheck/internal/types"
)

type recordingObserver struct {
	mu        sync.Mutex
	results   []Result
	cancelled int
}

func (o *recordingObserver) ObserveProbe(ctx context.Context, _ string, r Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, r)
	if ctx.Err() != nil {
		o.cancelled++
	}
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.results)
}

func newTestScheduler(web *MockWebBook, st *fakeStore, settings RunSettings, observers ...Observer) *Scheduler {
	prober := NewProber(ProberConfig{WebBook: web, Store: st})
	return NewScheduler(SchedulerConfig{
		Store:     st,
		Prober:    prober,
		Settings:  func() RunSettings { return settings },
		Observers: observers,
	})
}

func sources(n int) ([]string, *fakeStore) {
	ids := make([]string, n)
	srcs := make([]*types.BookSource, n)
	for i := range n {
		ids[i] = fmt.Sprintf("https://s%d", i)
		srcs[i] = source(ids[i])
	}
	return ids, newFakeStore(srcs...)
}

func waitTimeout(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("run did not finish: %v", err)
	}
}

func TestScheduler_EachSourceCheckedOnce(t *testing.T) {
	ids, st := sources(10)
	var mu sync.Mutex
	searched := make(map[string]int)
	web := &MockWebBook{
		Delay: func(*types.BookSource) time.Duration {
			return time.Duration(rand.IntN(5)) * time.Millisecond
		},
		SearchFunc: func(src *types.BookSource, _ string) ([]types.SearchBook, error) {
			mu.Lock()
			searched[src.URL]++
			mu.Unlock()
			return mockBooks(src), nil
		},
	}
	obs := &recordingObserver{}
	settings := DefaultRunSettings()
	settings.ThreadCount = 3
	s := newTestScheduler(web, st, settings, obs)

	run, err := s.Start(context.Background(), ids)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if run.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", run.Workers)
	}
	waitTimeout(t, s)

	for _, id := range ids {
		if searched[id] != 1 {
			t.Errorf("expected %s checked once, got %d", id, searched[id])
		}
	}
	if obs.count() != 10 {
		t.Errorf("expected 10 observed results, got %d", obs.count())
	}
	if st.updateCount() != 10 {
		t.Errorf("expected 10 updates, got %d", st.updateCount())
	}

	status := s.Status()
	if status.State != StateIdle {
		t.Errorf("expected idle, got %s", status.State)
	}
	if status.Run == nil || len(status.Run.Completed) != 10 {
		t.Fatalf("expected last run with 10 completed, got %+v", status.Run)
	}
	if len(status.Log) != 10 {
		t.Errorf("expected 10 log entries, got %d", len(status.Log))
	}
}

func TestScheduler_WorkerCount(t *testing.T) {
	tests := []struct {
		name     string
		thread   int
		max      int
		ids      int
		expected int
	}{
		{"thread count", 2, 9, 5, 2},
		{"source count", 16, 9, 3, 3},
		{"max threads", 16, 9, 40, 9},
		{"zero thread count", 0, 9, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, st := sources(tt.ids)
			settings := RunSettings{ThreadCount: tt.thread, MaxThreads: tt.max, Options: DefaultOptions()}
			s := newTestScheduler(&MockWebBook{}, st, settings)
			run, err := s.Start(context.Background(), ids)
			if err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if run.Workers != tt.expected {
				t.Errorf("expected %d workers, got %d", tt.expected, run.Workers)
			}
			waitTimeout(t, s)
		})
	}
}

func TestScheduler_StartErrors(t *testing.T) {
	ids, st := sources(2)
	block := make(chan struct{})
	web := &MockWebBook{SearchFunc: func(src *types.BookSource, _ string) ([]types.SearchBook, error) {
		<-block
		return mockBooks(src), nil
	}}
	s := newTestScheduler(web, st, DefaultRunSettings())

	if _, err := s.Start(context.Background(), nil); !errors.Is(err, ErrNoSources) {
		t.Errorf("expected ErrNoSources, got %v", err)
	}

	events, unsub := s.Bus().Subscribe(16)
	defer unsub()

	if _, err := s.Start(context.Background(), ids); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.Running() {
		t.Error("expected running")
	}
	if _, err := s.Start(context.Background(), ids); !errors.Is(err, ErrRunActive) {
		t.Errorf("expected ErrRunActive, got %v", err)
	}

	sawNotice := false
	for !sawNotice {
		select {
		case ev := <-events:
			sawNotice = ev.Type == EventNotice
		case <-time.After(5 * time.Second):
			t.Fatal("expected a notice event")
		}
	}

	close(block)
	waitTimeout(t, s)
}

func TestScheduler_MissingSource(t *testing.T) {
	st := newFakeStore()
	web := &MockWebBook{}
	s := newTestScheduler(web, st, DefaultRunSettings())

	if _, err := s.Start(context.Background(), []string{"https://gone"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitTimeout(t, s)

	run := s.Status().Run
	if run.Message != " 1/1" {
		t.Errorf("expected %q, got %q", " 1/1", run.Message)
	}
	if web.Calls("search") != 0 {
		t.Errorf("expected no probe for a missing source, got %d", web.Calls("search"))
	}
}

func TestScheduler_ProgressMessages(t *testing.T) {
	ids, st := sources(3)
	settings := DefaultRunSettings()
	settings.ThreadCount = 1
	s := newTestScheduler(&MockWebBook{}, st, settings)
	events, unsub := s.Bus().Subscribe(32)
	defer unsub()

	if _, err := s.Start(context.Background(), ids); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitTimeout(t, s)

	var got []string
	for ev := range events {
		got = append(got, string(ev.Type)+":"+ev.Message)
		if ev.Type == EventDone {
			break
		}
	}
	expected := []string{
		"progress: 0/3",
		"progress:src https://s0 1/3",
		"progress:src https://s1 2/3",
		"progress:src https://s2 3/3",
		"done:src https://s2 3/3",
	}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("event %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}

func TestScheduler_Stop(t *testing.T) {
	ids, st := sources(6)
	web := &MockWebBook{Delay: func(*types.BookSource) time.Duration { return time.Minute }}
	obs := &recordingObserver{}
	settings := DefaultRunSettings()
	settings.ThreadCount = 2
	s := newTestScheduler(web, st, settings, obs)
	events, unsub := s.Bus().Subscribe(32)
	defer unsub()

	if _, err := s.Start(context.Background(), ids); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopped, err := s.Stop(ctx)
	if err != nil || !stopped {
		t.Fatalf("Stop() = %v, %v", stopped, err)
	}
	if s.Running() {
		t.Error("expected idle after stop")
	}
	if st.updateCount() != 0 {
		t.Errorf("expected no persisted results, got %d", st.updateCount())
	}
	if obs.count() != 0 {
		t.Errorf("expected no observed results, got %d", obs.count())
	}

	done := false
	for ev := range events {
		if done {
			t.Errorf("unexpected event after done: %+v", ev)
		}
		if ev.Type == EventDone {
			done = true
			unsub()
		}
	}
	if !done {
		t.Error("expected a done event")
	}
	if !s.Status().Run.Stopped {
		t.Error("expected last run marked stopped")
	}

	again, err := s.Stop(ctx)
	if err != nil || again {
		t.Errorf("expected Stop on idle scheduler to report false, got %v, %v", again, err)
	}
}

func TestScheduler_StartDetachedFromCaller(t *testing.T) {
	ids, st := sources(2)
	s := newTestScheduler(&MockWebBook{Delay: func(*types.BookSource) time.Duration { return 10 * time.Millisecond }}, st, DefaultRunSettings())

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := s.Start(ctx, ids); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()
	waitTimeout(t, s)

	if st.updateCount() != 2 {
		t.Errorf("expected both sources checked after caller cancelled, got %d", st.updateCount())
	}
}

func TestScheduler_PeakInFlightEqualsWorkers(t *testing.T) {
	ids, st := sources(10)
	var mu sync.Mutex
	inFlight, peak := 0, 0
	web := &MockWebBook{
		SearchFunc: func(src *types.BookSource, _ string) ([]types.SearchBook, error) {
			mu.Lock()
			inFlight++
			peak = max(peak, inFlight)
			mu.Unlock()

			time.Sleep(30 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return mockBooks(src), nil
		},
	}
	settings := DefaultRunSettings()
	settings.ThreadCount = 3
	s := newTestScheduler(web, st, settings)

	if _, err := s.Start(context.Background(), ids); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitTimeout(t, s)

	mu.Lock()
	defer mu.Unlock()
	if peak != 3 {
		t.Errorf("expected peak of 3 probes in flight, got %d", peak)
	}
	if st.updateCount() != 10 {
		t.Errorf("expected 10 updates, got %d", st.updateCount())
	}
}

func TestScheduler_DuplicateIDsCheckedOnce(t *testing.T) {
	ids, st := sources(2)
	web := &MockWebBook{Delay: func(*types.BookSource) time.Duration { return 5 * time.Millisecond }}
	settings := DefaultRunSettings()
	settings.ThreadCount = 4
	s := newTestScheduler(web, st, settings)

	run, err := s.Start(context.Background(), []string{ids[0], ids[0], "", ids[1], ids[0]})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(run.IDs) != 2 || run.IDs[0] != ids[0] || run.IDs[1] != ids[1] {
		t.Fatalf("expected ids %v, got %v", ids, run.IDs)
	}
	if run.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", run.Workers)
	}
	waitTimeout(t, s)

	if n := web.Calls("search"); n != 2 {
		t.Errorf("expected 2 searches, got %d", n)
	}
	if st.updateCount() != 2 {
		t.Errorf("expected 2 updates, got %d", st.updateCount())
	}

	if _, err := s.Start(context.Background(), []string{"", ""}); !errors.Is(err, ErrNoSources) {
		t.Errorf("expected ErrNoSources for blank ids, got %v", err)
	}
}

func TestScheduler_FinishedProbeSurvivesStop(t *testing.T) {
	ids, st := sources(1)
	entered := make(chan struct{})
	release := make(chan struct{})
	web := &MockWebBook{
		SearchFunc: func(src *types.BookSource, _ string) ([]types.SearchBook, error) {
			close(entered)
			<-release
			return mockBooks(src), nil
		},
	}
	obs := &recordingObserver{}
	settings := DefaultRunSettings()
	settings.Options = searchOnly()
	s := newTestScheduler(web, st, settings, obs)

	if _, err := s.Start(context.Background(), ids); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopErr := make(chan error, 1)
	go func() {
		_, err := s.Stop(ctx)
		stopErr <- err
	}()
	for !s.Status().Run.Stopped {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	if err := <-stopErr; err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if st.updateCount() != 1 {
		t.Errorf("expected finished probe persisted, got %d updates", st.updateCount())
	}
	if obs.count() != 1 {
		t.Fatalf("expected finished probe observed, got %d", obs.count())
	}
	if obs.cancelled != 0 {
		t.Errorf("expected observer to get a live context, got %d cancelled", obs.cancelled)
	}
}
