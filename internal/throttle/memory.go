package throttle

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count       int64
	windowStart time.Time
}

// Memory is an in-process [Throttle]. The zero value is not usable; call
// [NewMemory].
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemory returns an empty in-memory throttle.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

// Check reports whether clientID may attempt a login at now.
func (m *Memory) Check(_ context.Context, clientID string, now time.Time) (Decision, error) {
	m.mu.Lock()
	e, ok := m.entries[clientID]
	m.mu.Unlock()

	if !ok {
		return Decision{Allowed: true}, nil
	}
	return decide(e.count, e.windowStart, now), nil
}

// RecordFailure counts one failed attempt for clientID.
func (m *Memory) RecordFailure(_ context.Context, clientID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[clientID]
	if !ok || expired(e.windowStart, now) {
		m.entries[clientID] = entry{count: 1, windowStart: now}
		return nil
	}
	e.count++
	m.entries[clientID] = e
	return nil
}

// Len returns the number of tracked clients.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
