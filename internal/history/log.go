// Package history keeps the bounded, append-only backlog of feed events
// replayed to every newly connected client.
package history

import (
	"sync"

	"checkin-app/internal/models"
)

// DefaultLimit is the default backlog capacity. Enough for a client to see
// recent activity on connect without holding unbounded history in memory.
const DefaultLimit = 50

// Log is a fixed-capacity event backlog. Appends evict the oldest entries;
// stored events are never mutated. Safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	limit  int
	events []models.FeedEvent
}

func NewLog(limit int) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Log{
		limit:  limit,
		events: make([]models.FeedEvent, 0, limit),
	}
}

// Append adds events in order, evicting from the front once over capacity.
func (l *Log) Append(events ...models.FeedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, events...)
	if over := len(l.events) - l.limit; over > 0 {
		l.events = append(l.events[:0:0], l.events[over:]...)
	}
}

// Recent returns a copy of the backlog, oldest first.
func (l *Log) Recent() []models.FeedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.FeedEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
