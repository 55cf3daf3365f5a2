package check

import (
	"sort"
	"sync"
	"time"
)

// Entry is the check log record of one source.
type Entry struct {
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished,omitzero"`
	Success     bool      `json:"success"`
	Message     string    `json:"message,omitempty"`
	RespondTime int64     `json:"respond_time_ms"`
}

// Journal is the per-run check log: when each source started, how it ended,
// and how long it took.
type Journal struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewJournal creates an empty Journal. A nil clock uses time.Now.
func NewJournal(now func() time.Time) *Journal {
	if now == nil {
		now = time.Now
	}
	return &Journal{entries: make(map[string]*Entry), now: now}
}

// Start records the start of a check.
func (j *Journal) Start(url, name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[url] = &Entry{URL: url, Name: name, Started: j.now()}
}

// Finish records the final message and returns the respond time in
// milliseconds.
func (j *Journal) Finish(url string, success bool, msg string) int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[url]
	if !ok {
		return 0
	}
	e.Finished = j.now()
	e.Success = success
	e.Message = msg
	e.RespondTime = e.Finished.Sub(e.Started).Milliseconds()
	return e.RespondTime
}

// Entries returns a copy of the log ordered by start time.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Started.Equal(out[b].Started) {
			return out[a].URL < out[b].URL
		}
		return out[a].Started.Before(out[b].Started)
	})
	return out
}

// Reset clears the log.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = make(map[string]*Entry)
}
