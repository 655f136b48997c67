package cache

import (
	"sync"
	"time"
)

type memoryEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// Memory is a thread-safe in-memory cache whose entries expire after a fixed TTL.
// Expired entries are dropped on lookup or by EvictExpired.
type Memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[V]
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache with the given TTL.
func NewMemory[V any](ttl time.Duration) *Memory[V] {
	return &Memory[V]{
		entries: make(map[string]memoryEntry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value stored under key if it has not expired.
func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		// re-check, a concurrent Set may have refreshed it
		if current, ok := m.entries[key]; ok && !m.now().Before(current.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key for the cache TTL.
func (m *Memory[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry[V]{value: value, expiresAt: m.now().Add(m.ttl)}
}

// Delete removes key from the cache.
func (m *Memory[V]) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Purge removes every entry.
func (m *Memory[V]) Purge() {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry[V])
	m.mu.Unlock()
}

// EvictExpired removes expired entries and returns how many were removed.
func (m *Memory[V]) EvictExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.now()
	removed := 0
	for key, entry := range m.entries {
		if !current.Before(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
