// Package memory holds the per-user bounded log of recent exchange text that
// biases prompt construction. Entries are volatile by design; the redis
// backend is an opt-in for deployments that need memory to survive restarts.
package memory

import (
	"context"
	"sync"
	"time"
)

// Item is one remembered exchange fragment.
type Item struct {
	UserID    uint      `json:"userId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the conversational memory surface used by the chat service.
type Store interface {
	// Add appends a fragment with the current timestamp.
	Add(ctx context.Context, userID uint, text string) error
	// Recent returns at most k fragments, newest first.
	Recent(ctx context.Context, userID uint, k int) ([]Item, error)
}

// ring is a fixed-capacity buffer of one user's fragments. Once full, each
// append overwrites the oldest slot.
type ring struct {
	items []Item
	next  int
	size  int
}

func (r *ring) add(item Item) {
	if len(r.items) < cap(r.items) {
		r.items = append(r.items, item)
	} else {
		r.items[r.next] = item
	}
	r.next = (r.next + 1) % cap(r.items)
	if r.size < cap(r.items) {
		r.size++
	}
}

// recent returns up to k items, newest first.
func (r *ring) recent(k int) []Item {
	if k > r.size {
		k = r.size
	}
	out := make([]Item, 0, k)
	idx := r.next - 1
	for i := 0; i < k; i++ {
		if idx < 0 {
			idx += cap(r.items)
		}
		out = append(out, r.items[idx])
		idx--
	}
	return out
}

// InProcessStore keeps memory entirely in the process. Safe for concurrent
// use; contents are lost on restart.
type InProcessStore struct {
	mu       sync.Mutex
	capacity int
	users    map[uint]*ring
	now      func() time.Time
}

func NewInProcessStore(capacity int) *InProcessStore {
	if capacity <= 0 {
		capacity = 64
	}
	return &InProcessStore{
		capacity: capacity,
		users:    make(map[uint]*ring),
		now:      time.Now,
	}
}

func (s *InProcessStore) Add(_ context.Context, userID uint, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[userID]
	if !ok {
		r = &ring{items: make([]Item, 0, s.capacity)}
		s.users[userID] = r
	}
	r.add(Item{UserID: userID, Text: text, Timestamp: s.now()})
	return nil
}

func (s *InProcessStore) Recent(_ context.Context, userID uint, k int) ([]Item, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return r.recent(k), nil
}
