package services

import (
	"context"
	"sync"
	"time"
)

// ProfileCache keeps scored profiles by session id. Get returns nil, nil on
// a miss.
type ProfileCache interface {
	Set(ctx context.Context, sessionID string, p *Profile, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*Profile, error)
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	profile *Profile
	expires time.Time
}

// MemoryCache is the in-process ProfileCache used when no Redis is
// configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Set(_ context.Context, sessionID string, p *Profile, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{profile: p}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[sessionID] = e
	return nil
}

func (c *MemoryCache) Get(_ context.Context, sessionID string) (*Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[sessionID]
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		delete(c.entries, sessionID)
		return nil, nil
	}
	return e.profile, nil
}

func (c *MemoryCache) Delete(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
	return nil
}
