package credentials

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long a decrypted key stays in memory.
const DefaultTTL = 10 * time.Minute

type cacheKey struct {
	user     string
	provider string
}

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache maps (user, provider) to a plaintext credential for a bounded time.
// Expired entries are removed lazily on read; there is no background sweep.
// Everything is guarded by a single mutex.
//
// Every invalidation bumps a generation counter so a reader that loaded a
// value before the invalidation can be told its copy is stale.
type Cache struct {
	mu       sync.Mutex
	entries  map[cacheKey]entry
	gens     map[cacheKey]uint64
	userGens map[string]uint64
	epoch    uint64
	ttl      time.Duration
	now      func() time.Time
}

type CacheOption func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries:  make(map[cacheKey]entry),
		gens:     make(map[cacheKey]uint64),
		userGens: make(map[string]uint64),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Get(user, provider string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := cacheKey{user, provider}
	e, ok := c.entries[k]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, k)
		return "", false
	}
	return e.value, true
}

// Set stores value until now+ttl. A non-positive ttl uses the cache default.
func (c *Cache) Set(user, provider, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(cacheKey{user, provider}, value, ttl)
}

// Generation identifies the invalidation state of (user, provider). It
// changes whenever Invalidate or Clear could have removed that entry.
func (c *Cache) Generation(user, provider string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation(cacheKey{user, provider})
}

// SetIfGeneration stores value only if no invalidation touched (user,
// provider) since gen was read. It reports whether the value was stored.
func (c *Cache) SetIfGeneration(user, provider, value string, ttl time.Duration, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := cacheKey{user, provider}
	if c.generation(k) != gen {
		return false
	}
	c.store(k, value, ttl)
	return true
}

// Invalidate drops one entry, or every entry for user when provider is empty.
func (c *Cache) Invalidate(user, provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if provider != "" {
		k := cacheKey{user, provider}
		delete(c.entries, k)
		c.gens[k]++
		return
	}
	for k := range c.entries {
		if k.user == user {
			delete(c.entries, k)
		}
	}
	c.userGens[user]++
}

// Len counts stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]entry)
	c.epoch++
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// the three counters only grow, so their sum changes on any bump
func (c *Cache) generation(k cacheKey) uint64 {
	return c.epoch + c.userGens[k.user] + c.gens[k]
}

func (c *Cache) store(k cacheKey, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.entries[k] = entry{value: value, expiresAt: c.now().Add(ttl)}
}
