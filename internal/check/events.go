package check

import (
	"log/slog"
	"sync"
	"time"
)

// EventType names a run event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventNotice   EventType = "notice"
)

// Event is one message on the progress boundary.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Time      time.Time `json:"time"`
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	logger *slog.Logger
}

// NewBus creates a Bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{subs: make(map[int]chan Event), logger: logger}
}

// Subscribe returns an event channel and a function that unsubscribes and
// closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Publish sends e to every subscriber.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Debug("event dropped for slow subscriber", "type", e.Type)
		}
	}
}

// Notice publishes a short user-facing message.
func (b *Bus) Notice(msg string) {
	b.Publish(Event{Type: EventNotice, Message: msg})
}
