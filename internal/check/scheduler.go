// Package check validates book sources against their live websites with a
// bounded, self-feeding worker pool and reports run progress on a Bus.
package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/sourcecheck/internal/store"
)

// Defaults for RunSettings.
const (
	DefaultThreadCount = 16
	DefaultMaxThreads  = 9
)

// State is the scheduler's run state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDraining State = "draining"
)

// RunSettings are read when a run starts.
type RunSettings struct {
	ThreadCount int
	MaxThreads  int
	Options     Options
}

// DefaultRunSettings returns the stock thread counts and stage options.
func DefaultRunSettings() RunSettings {
	return RunSettings{ThreadCount: DefaultThreadCount, MaxThreads: DefaultMaxThreads, Options: DefaultOptions()}
}

// Observer is told about every recorded probe outcome.
type Observer interface {
	ObserveProbe(ctx context.Context, runID string, r Result)
}

// Run is the bookkeeping of one validation run.
type Run struct {
	ID        string    `json:"id"`
	IDs       []string  `json:"ids"`
	Completed []string  `json:"completed"`
	Next      int       `json:"next"`
	Workers   int       `json:"workers"`
	Message   string    `json:"message"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished,omitzero"`
	Stopped   bool      `json:"stopped"`
}

func (r *Run) clone() *Run {
	c := *r
	c.IDs = append([]string(nil), r.IDs...)
	c.Completed = append([]string(nil), r.Completed...)
	return &c
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State State   `json:"state"`
	Run   *Run    `json:"run,omitempty"`
	Log   []Entry `json:"log"`
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Store  SourceStore
	Prober *Prober
	Bus    *Bus
	// Settings is read at the start of every run. Nil uses DefaultRunSettings.
	Settings  func() RunSettings
	Observers []Observer
	Logger    *slog.Logger
}

// Scheduler drives validation runs, one at a time.
type Scheduler struct {
	store     SourceStore
	prober    *Prober
	bus       *Bus
	settings  func() RunSettings
	observers []Observer
	logger    *slog.Logger

	// mu guards the run, its claim counter and completed list, and the state.
	mu     sync.Mutex
	state  State
	run    *Run
	last   *Run
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates an idle Scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		store:     cfg.Store,
		prober:    cfg.Prober,
		bus:       cfg.Bus,
		settings:  cfg.Settings,
		observers: cfg.Observers,
		logger:    cfg.Logger,
		state:     StateIdle,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.bus == nil {
		s.bus = NewBus(s.logger)
	}
	if s.settings == nil {
		s.settings = DefaultRunSettings
	}
	if s.prober == nil {
		s.prober = NewProber(ProberConfig{Store: cfg.Store, Logger: s.logger})
	}
	return s
}

// Bus returns the event bus.
func (s *Scheduler) Bus() *Bus { return s.bus }

// Start begins a run over ids and returns a snapshot of it. The run is
// detached from ctx's cancellation; use Stop to end it early.
func (s *Scheduler) Start(ctx context.Context, ids []string) (*Run, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, ErrNoSources
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		s.bus.Notice("a check is already running, try again when it finishes")
		return nil, ErrRunActive
	}

	settings := s.settings()
	workers := min(settings.ThreadCount, len(ids), settings.MaxThreads)
	if workers < 1 {
		workers = 1
	}
	run := &Run{
		ID:      uuid.NewString(),
		IDs:     ids,
		Workers: workers,
		Message: fmt.Sprintf(" 0/%d", len(ids)),
		Started: time.Now(),
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.state = StateRunning
	s.run = run
	s.cancel = cancel
	s.done = make(chan struct{})
	s.prober.Journal().Reset()

	starts := make([]int, workers)
	for i := range starts {
		starts[i] = s.claimLocked(run)
	}
	snapshot := run.clone()
	s.mu.Unlock()

	logger := s.logger.With("run_id", run.ID)
	logger.Info("check run started", "sources", len(ids), "workers", workers)
	s.bus.Publish(Event{Type: EventProgress, RunID: run.ID, Message: run.Message, Total: len(ids)})

	g, gctx := errgroup.WithContext(runCtx)
	for n, idx := range starts {
		workerLogger := logger.With("worker_num", n)
		g.Go(func() error {
			s.work(gctx, run, idx, settings.Options, workerLogger)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		s.finish(run, logger)
	}()

	return snapshot, nil
}

// dedupe returns ids without blanks or repeats, keeping first occurrences
// in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// claimLocked returns the next unclaimed index. s.mu must be held.
func (s *Scheduler) claimLocked(run *Run) int {
	idx := run.Next
	run.Next++
	return idx
}

// work checks ids starting at idx, claiming the next index after each one,
// until the claimed index is past the end or the run is stopped.
func (s *Scheduler) work(ctx context.Context, run *Run, idx int, opts Options, logger *slog.Logger) {
	for idx < len(run.IDs) {
		if ctx.Err() != nil {
			return
		}
		url := run.IDs[idx]
		name := ""

		src, err := s.store.GetSource(ctx, url)
		switch {
		case err == nil:
			name = src.Name
			res := s.prober.Check(ctx, src, opts)
			if res.Failure != nil && res.Failure.Kind == KindCancelled {
				return
			}
			octx := context.WithoutCancel(ctx)
			for _, o := range s.observers {
				o.ObserveProbe(octx, run.ID, res)
			}
		case ctx.Err() != nil:
			return
		case errors.Is(err, store.ErrNotFound):
			logger.Debug("source not found, skipping", "source", url)
		default:
			logger.Warn("failed to load source", "source", url, "error", err)
		}

		idx = s.complete(run, url, name)
	}
}

// complete claims the worker's next index, then records url as done and
// publishes progress.
func (s *Scheduler) complete(run *Run, url, name string) int {
	s.mu.Lock()
	next := s.claimLocked(run)
	run.Completed = append(run.Completed, url)
	run.Message = fmt.Sprintf("%s %d/%d", name, len(run.Completed), len(run.IDs))
	if run.Next > len(run.IDs)+run.Workers-1 {
		s.state = StateDraining
	}
	stopped := run.Stopped
	ev := Event{
		Type:      EventProgress,
		RunID:     run.ID,
		Message:   run.Message,
		Source:    url,
		Completed: len(run.Completed),
		Total:     len(run.IDs),
	}
	s.mu.Unlock()

	if !stopped {
		s.bus.Publish(ev)
	}
	return next
}

func (s *Scheduler) finish(run *Run, logger *slog.Logger) {
	s.mu.Lock()
	run.Finished = time.Now()
	s.state = StateIdle
	s.last = run.clone()
	s.run = nil
	s.cancel()
	done := s.done
	ev := Event{
		Type:      EventDone,
		RunID:     run.ID,
		Message:   run.Message,
		Completed: len(run.Completed),
		Total:     len(run.IDs),
	}
	s.mu.Unlock()

	close(done)
	logger.Info("check run finished", "completed", ev.Completed, "total", ev.Total, "stopped", run.Stopped)
	s.bus.Publish(ev)
}

// Stop cancels the active run and waits until its workers have exited or ctx
// is done. It returns false when no run is active.
func (s *Scheduler) Stop(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.run == nil {
		s.mu.Unlock()
		return false, nil
	}
	s.run.Stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		return true, nil
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

// Wait blocks until the active run, if any, finishes or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current state, the active (or last) run and the check log.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{State: s.state}
	switch {
	case s.run != nil:
		st.Run = s.run.clone()
	case s.last != nil:
		st.Run = s.last.clone()
	}
	s.mu.Unlock()
	st.Log = s.prober.Journal().Entries()
	return st
}

// Running reports whether a run is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateIdle
}
