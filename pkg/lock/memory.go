package lock

import (
	"context"
	"sync"
	"time"
)

// Compile-time interface assertion.
var _ Locker = (*Memory)(nil)

// Memory is the single-node Locker: a keyed expiry map. Suitable when all
// workers share one process.
type Memory struct {
	mu   sync.Mutex
	held map[string]time.Time

	now func() time.Time // test hook
}

// NewMemory creates an in-process Locker.
func NewMemory() *Memory {
	return &Memory{held: make(map[string]time.Time), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, ok := m.held[key]; ok && expiry.After(now) {
		return false, nil
	}
	m.held[key] = now.Add(ttl)
	return true, nil
}

func (m *Memory) Held(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.held[key]
	return ok && expiry.After(m.now()), nil
}

func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}
