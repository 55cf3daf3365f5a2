package store

// Topic names a change stream.
type Topic string

const (
	TopicSources Topic = "sources"
	TopicRules   Topic = "rules"
)

// Change describes a committed mutation. Keys holds source URLs or rule ids
// as strings; it is empty for bulk changes such as an import.
type Change struct {
	Topic Topic
	Keys  []string
}

const subscriberBuffer = 16

// Subscribe returns a channel of changes for topic and a cancel function.
// Slow subscribers miss notifications rather than block writers.
func (s *Store) Subscribe(topic Topic) (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[topic] == nil {
		s.subs[topic] = make(map[int]chan Change)
	}
	id := s.next
	s.next++
	ch := make(chan Change, subscriberBuffer)
	s.subs[topic][id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[topic][id]; ok {
			close(c)
			delete(s.subs[topic], id)
		}
	}
}

func (s *Store) publish(topic Topic, keys ...string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subs[topic] {
		select {
		case ch <- Change{Topic: topic, Keys: keys}:
		default:
			s.logger.Warn("dropping change notification", "topic", topic)
		}
	}
}
