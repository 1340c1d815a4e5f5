package cache

import (
	"strings"
	"sync"
	"time"
)

// Store is a minimal TTL key-value cache. Implementations must be safe for
// concurrent use. A nil Store is a valid "no cache" configuration; callers
// go through the typed facade which degrades to the authoritative source.
type Store interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	DeletePrefix(prefix string)
	Flush()
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process Store. Expired entries are dropped lazily on read
// and swept by a background purge loop.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemory creates a Memory store. defaultTTL applies when Set is called
// with ttl <= 0; purgeInterval <= 0 disables the background sweep.
func NewMemory(defaultTTL, purgeInterval time.Duration) *Memory {
	m := &Memory{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
	}

	if purgeInterval > 0 {
		go m.purgeLoop(purgeInterval)
	}
	return m
}

// Get returns the live value under key
func (m *Memory) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		m.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value. ttl <= 0 falls back to the store default; a zero
// default means the entry never expires.
func (m *Memory) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: expiresAt}
	m.mu.Unlock()
}

// Delete removes one key
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// DeletePrefix removes every key starting with prefix
func (m *Memory) DeletePrefix(prefix string) {
	m.mu.Lock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
}

// Flush removes everything
func (m *Memory) Flush() {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
}

// Len reports the number of entries including not-yet-swept expired ones
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the purge loop
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) purgeLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.purge()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) purge() {
	now := time.Now()
	m.mu.Lock()
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
}
