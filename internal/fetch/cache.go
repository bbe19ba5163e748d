package fetch

import (
	"context"
	"sync"
	"time"
)

// Cache stores fetched images keyed by URL.
type Cache interface {
	Get(ctx context.Context, url string) (*Image, bool, error)
	Set(ctx context.Context, url string, img *Image) error
}

// MemoryCache is a process-local cache. With maxEntries == 0 it never
// evicts; otherwise the least recently accessed entry is dropped when full.
type MemoryCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*memoryEntry
}

type memoryEntry struct {
	img        *Image
	lastAccess time.Time
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*memoryEntry),
	}
}

func (m *MemoryCache) Get(_ context.Context, url string) (*Image, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[url]
	if !ok {
		return nil, false, nil
	}
	e.lastAccess = time.Now()
	return e.img, true, nil
}

func (m *MemoryCache) Set(_ context.Context, url string, img *Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[url]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictOldest()
	}
	m.entries[url] = &memoryEntry{img: img, lastAccess: time.Now()}
	return nil
}

func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for k, v := range m.entries {
		if oldestKey == "" || v.lastAccess.Before(oldestTime) {
			oldestKey = k
			oldestTime = v.lastAccess
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
