// Package cache provides the process-wide memoization layer for inference
// results. Entries are keyed by (subject, operation), expire after a TTL,
// and concurrent computations for the same key are collapsed into one
// in-flight call.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long cached inference results stay valid.
const DefaultTTL = time.Hour

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an in-memory TTL cache with single-flight semantics. Safe for
// concurrent use; shared across pipeline runs.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache with the given TTL; ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func key(subject, operation string) string {
	return subject + "|" + operation
}

// GetOrCompute returns the cached value for (subject, operation) or runs
// compute once, even under concurrent callers for the same key. Expired
// entries are invisible to readers and evicted on the next read.
func (m *Memory) GetOrCompute(subject, operation string, compute func() (any, error)) (any, error) {
	k := key(subject, operation)

	m.mu.Lock()
	if e, ok := m.entries[k]; ok {
		if m.now().Before(e.expiresAt) {
			m.mu.Unlock()
			return e.value, nil
		}
		delete(m.entries, k)
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(k, func() (any, error) {
		// Re-check under the flight: another caller may have stored the
		// value between our read and the group admitting us.
		m.mu.Lock()
		if e, ok := m.entries[k]; ok && m.now().Before(e.expiresAt) {
			m.mu.Unlock()
			return e.value, nil
		}
		m.mu.Unlock()

		value, err := compute()
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.entries[k] = entry{value: value, expiresAt: m.now().Add(m.ttl)}
		m.mu.Unlock()
		return value, nil
	})
	return v, err
}

// Invalidate drops the entry for (subject, operation) if present.
func (m *Memory) Invalidate(subject, operation string) {
	m.mu.Lock()
	delete(m.entries, key(subject, operation))
	m.mu.Unlock()
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// GetOrCompute is the typed wrapper around Memory.GetOrCompute used by the
// classifier and analyzers.
func GetOrCompute[T any](m *Memory, subject, operation string, compute func() (T, error)) (T, error) {
	v, err := m.GetOrCompute(subject, operation, func() (any, error) {
		return compute()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
