package vesync

import (
	"sync"
	"time"
)

// DefaultDeviceListTTL is how long a cached device list is served.
const DefaultDeviceListTTL = 5 * time.Minute

// Cache stores values with an optional time to live.
// Implementations must be safe for concurrent access.
type Cache interface {
	// Get returns the value and true if found and not expired.
	Get(key string) (any, bool)

	// Set stores a value. A TTL of 0 or less never expires.
	Set(key string, value any, ttl time.Duration)

	Delete(key string)
	Clear()
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
	noExpiry  bool
}

// MemoryCache is an in-memory Cache.
type MemoryCache struct {
	entries map[string]*cacheEntry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if !entry.noExpiry && c.now().After(entry.expiresAt) {
		c.Delete(key)
		return nil, false
	}
	return entry.value, true
}

// Set stores a value in the cache with the given TTL.
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	entry := &cacheEntry{value: value}
	if ttl <= 0 {
		entry.noExpiry = true
	} else {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Size returns the number of entries, expired ones included.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries and returns how many were removed.
func (c *MemoryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !entry.noExpiry && now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// WithDeviceListCache serves ListDevices from cache for ttl after a usable
// list was fetched. A nil cache uses a new MemoryCache; a ttl of 0 uses
// DefaultDeviceListTTL. Lists are cached per account and dropped on Logout.
//
// Example:
//
//	client, _ := vesync.NewClient(email, password,
//	    vesync.WithDeviceListCache(nil, time.Minute),
//	)
func WithDeviceListCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		if cache == nil {
			cache = NewMemoryCache()
		}
		if ttl == 0 {
			ttl = DefaultDeviceListTTL
		}
		c.cache = cache
		c.deviceListTTL = ttl
	}
}

// deviceListKey returns the cache key for the current account, or "" when
// caching does not apply.
func (c *Client) deviceListKey() string {
	if c.cache == nil {
		return ""
	}
	s := c.auth.current()
	if s == nil {
		return ""
	}
	return "devices:" + s.AccountID
}

func (c *Client) cachedDeviceList() (*DeviceList, bool) {
	key := c.deviceListKey()
	if key == "" {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	list, ok := v.(*DeviceList)
	return list, ok
}

func (c *Client) storeDeviceList(list *DeviceList) {
	if key := c.deviceListKey(); key != "" {
		c.cache.Set(key, list, c.deviceListTTL)
	}
}

// InvalidateDeviceCache drops any cached device list so the next ListDevices
// call reaches the backend.
func (c *Client) InvalidateDeviceCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}
