package audit

import (
	"context"
	"sync"
)

// Sink persists audit events. Implementations: Kafka for production, the
// in-memory store for tests and unconfigured environments.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// InMemory is a bounded in-memory sink. Oldest events are dropped once the
// cap is reached; the trail is observational, not authoritative.
type InMemory struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

// NewInMemory creates an in-memory sink holding at most cap events.
func NewInMemory(cap int) *InMemory {
	if cap <= 0 {
		cap = 1024
	}
	return &InMemory{cap: cap}
}

// Append stores the event, evicting the oldest entry when full.
func (s *InMemory) Append(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) >= s.cap {
		s.events = s.events[1:]
	}
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the recorded trail. Test observation hook.
func (s *InMemory) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
