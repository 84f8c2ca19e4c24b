package heat

import (
	"sync"
	"time"
)

const defaultRingCapacity = 256

// EngagementEvent records one batch of simulated views/likes on a post.
type EngagementEvent struct {
	PostID int64     `json:"post_id"`
	Views  int       `json:"views"`
	Likes  int       `json:"likes"`
	At     time.Time `json:"at"`
}

// EventRing is a fixed-capacity ring of recent engagement events. When
// full, the oldest event is overwritten.
type EventRing struct {
	mu     sync.Mutex
	events []EngagementEvent
	head   int
	filled bool
}

func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &EventRing{events: make([]EngagementEvent, capacity)}
}

func (r *EventRing) Add(event EngagementEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.head] = event
	r.head++
	if r.head == len(r.events) {
		r.head = 0
		r.filled = true
	}
}

// Recent returns the buffered events, oldest first.
func (r *EventRing) Recent() []EngagementEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.filled {
		out := make([]EngagementEvent, r.head)
		copy(out, r.events[:r.head])
		return out
	}

	out := make([]EngagementEvent, 0, len(r.events))
	out = append(out, r.events[r.head:]...)
	out = append(out, r.events[:r.head]...)
	return out
}
