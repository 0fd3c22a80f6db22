package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinic-authz/internal/principal"
)

// principalCacheEntry represents a cached principal lookup
type principalCacheEntry struct {
	Principal  principal.Principal
	ExpiryTime time.Time
}

// PrincipalCache provides thread-safe in-memory caching of resolved principals
type PrincipalCache struct {
	cache map[uuid.UUID]principalCacheEntry
	mutex sync.RWMutex
	now   func() time.Time
}

// NewPrincipalCache creates a new principal cache instance
func NewPrincipalCache() *PrincipalCache {
	return &PrincipalCache{
		cache: make(map[uuid.UUID]principalCacheEntry),
		now:   time.Now,
	}
}

// Get retrieves a principal from cache if not expired
func (c *PrincipalCache) Get(_ context.Context, userID uuid.UUID) (principal.Principal, bool) {
	c.mutex.RLock()
	entry, found := c.cache[userID]
	c.mutex.RUnlock()

	if found && c.now().Before(entry.ExpiryTime) {
		return entry.Principal, true
	}

	return principal.Principal{}, false
}

// Set stores a principal in cache for ttl
func (c *PrincipalCache) Set(_ context.Context, p principal.Principal, ttl time.Duration) error {
	c.mutex.Lock()
	c.cache[p.UserID] = principalCacheEntry{
		Principal:  p,
		ExpiryTime: c.now().Add(ttl),
	}
	c.mutex.Unlock()
	return nil
}

// Delete removes a principal from cache
func (c *PrincipalCache) Delete(_ context.Context, userID uuid.UUID) error {
	c.mutex.Lock()
	delete(c.cache, userID)
	c.mutex.Unlock()
	return nil
}

// Clear removes expired entries from cache
func (c *PrincipalCache) Clear() {
	now := c.now()
	c.mutex.Lock()
	for key, entry := range c.cache {
		if now.After(entry.ExpiryTime) {
			delete(c.cache, key)
		}
	}
	c.mutex.Unlock()
}

// Len returns the number of cached entries, expired ones included
func (c *PrincipalCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

// RunJanitor clears expired entries every interval until ctx is done
func (c *PrincipalCache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Clear()
		}
	}
}
