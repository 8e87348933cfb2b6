package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Denylist and TokenCache for single-instance
// deployments and tests. Expired entries are dropped lazily on read and by
// Sweep.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Put(ctx context.Context, key string, ttl time.Duration) error {
	return m.Set(ctx, key, "", ttl)
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Sweep drops every expired entry and returns how many were removed. Called
// by the housekeeping loop.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count, expired included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
