// Package inbox remembers which events a subscription has already handled
// so a redelivered message is acknowledged without running the saga again.
// Saga stages are idempotent on their own; the inbox only saves the work.
package inbox

import (
	"context"
	"sync"
	"time"
)

// Inbox records handled event ids per subscription.
type Inbox interface {
	Seen(ctx context.Context, subscription, eventID string) (bool, error)
	Mark(ctx context.Context, subscription, eventID string) error
}

// Memory is an Inbox held in process memory. Entries expire after ttl;
// a zero ttl keeps them forever.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

// NewMemory creates an empty in-process inbox.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

func (m *Memory) Seen(_ context.Context, subscription, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(subscription, eventID)
	at, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if m.ttl > 0 && m.now().Sub(at) > m.ttl {
		delete(m.entries, key)
		return false, nil
	}
	return true, nil
}

func (m *Memory) Mark(_ context.Context, subscription, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[Key(subscription, eventID)] = m.now()
	return nil
}

// Key is the storage key for an event handled by a subscription.
func Key(subscription, eventID string) string {
	return "inbox:" + subscription + ":" + eventID
}
