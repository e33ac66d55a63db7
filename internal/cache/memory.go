package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	entryType string
	storedAt  time.Time
}

// Memory is the in-process cache tier: a mutex-guarded map with lazy TTL
// expiry and oldest-first eviction per entry type.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	opts    Options
	writes  int
	closed  bool
}

// NewMemory creates the in-memory tier.
func NewMemory(opts Options) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		opts:    opts.withDefaults(),
	}
}

// Get returns the payload for key if present and younger than the TTL.
// Expired entries are removed on sight.
func (m *Memory) Get(_ context.Context, key Key) ([]byte, bool, error) {
	k := key.String()

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, false, ErrClosed
	}
	e, ok := m.entries[k]
	now := m.opts.Now()
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if now.Sub(e.storedAt) > m.opts.TTL {
		m.mu.Lock()
		// Re-check: the entry may have been refreshed since the read lock
		if cur, still := m.entries[k]; still && cur.storedAt.Equal(e.storedAt) {
			delete(m.entries, k)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Set stores payload under key, evicting the oldest entries of the same type
// when the per-type cap would be exceeded.
func (m *Memory) Set(_ context.Context, key Key, payload []byte) error {
	k := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	now := m.opts.Now()
	m.entries[k] = memoryEntry{payload: payload, entryType: key.Type, storedAt: now}

	m.evictOverCap(key.Type)

	m.writes++
	if m.writes%pruneEvery == 0 {
		m.pruneExpired(now)
	}
	return nil
}

// evictOverCap removes oldest-by-timestamp entries of entryType until the
// type is back under its cap. Caller holds the write lock.
func (m *Memory) evictOverCap(entryType string) {
	type aged struct {
		key      string
		storedAt time.Time
	}
	var typed []aged
	for k, e := range m.entries {
		if e.entryType == entryType {
			typed = append(typed, aged{k, e.storedAt})
		}
	}
	excess := len(typed) - m.opts.MaxPerType
	if excess <= 0 {
		return
	}
	sort.Slice(typed, func(i, j int) bool { return typed[i].storedAt.Before(typed[j].storedAt) })
	for _, candidate := range typed[:excess] {
		delete(m.entries, candidate.key)
	}
}

// pruneExpired removes up to PruneBatch expired entries. Caller holds the
// write lock.
func (m *Memory) pruneExpired(now time.Time) {
	removed := 0
	for k, e := range m.entries {
		if now.Sub(e.storedAt) > m.opts.TTL {
			delete(m.entries, k)
			removed++
			if removed >= m.opts.PruneBatch {
				return
			}
		}
	}
}

// Delete removes a single entry.
func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.entries, key.String())
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (m *Memory) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	removed := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return len(m.entries), nil
}

// Close empties the tier and rejects further use.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}
