package cache

import (
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/ports"
)

type entry struct {
	response  string
	createdAt time.Time
}

// LRUCache keeps the most recent gadget responses in memory, bounded by size
// and age. It is safe for concurrent use; the last Put for a key wins.
type LRUCache struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// NewLRUCache builds a cache from settings. Zero values fall back to the defaults.
func NewLRUCache(settings domain.CacheSettings) *LRUCache {
	size := settings.MaxEntries
	if size <= 0 {
		size = domain.DefaultMaxCacheEntries
	}
	ttl := settings.TTL
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}
	return &LRUCache{
		lru: expirable.NewLRU[string, entry](size, nil, ttl),
		now: time.Now,
	}
}

// Get retrieves a cached response.
func (c *LRUCache) Get(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	e, ok := c.lru.Get(key)
	if !ok {
		return "", false
	}
	return e.response, true
}

// Put stores a response.
func (c *LRUCache) Put(key, value string) {
	if key == "" {
		return
	}
	c.lru.Add(key, entry{response: value, createdAt: c.now()})
}

// Len reports the number of live entries.
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *LRUCache) Purge() {
	c.lru.Purge()
}

// Entries lists cache entries, newest first.
func (c *LRUCache) Entries() []domain.CacheEntry {
	keys := c.lru.Keys()
	entries := make([]domain.CacheEntry, 0, len(keys))
	for _, k := range keys {
		e, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		entries = append(entries, domain.CacheEntry{Key: k, Response: e.response, CreatedAt: e.createdAt})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries
}

var _ ports.ResponseCache = (*LRUCache)(nil)
var _ ports.CacheRepository = (*LRUCache)(nil)
