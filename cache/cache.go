package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/gather/models"
)

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  *models.SearchResponse
	createdAt time.Time
}

// Cache is a simple in-memory cache for search responses.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// New creates a new Cache with the given maximum number of entries.
// A background goroutine runs every 5 minutes to evict expired entries
// (older than 1 hour).
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}

	go c.cleanupLoop()
	return c
}

// Key generates a cache key from every option that affects the result set.
func Key(opts models.SearchOptions) string {
	h := sha256.New()
	h.Write([]byte(opts.Query))
	h.Write([]byte("|"))
	h.Write([]byte(opts.Region))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatBool(opts.SafeSearch)))
	h.Write([]byte("|"))
	h.Write([]byte(opts.TimeRange))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(opts.MaxResults)))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(opts.Filters.Include, ",")))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(opts.Filters.Exclude, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached response if it exists and is younger than maxAge.
// maxAge is in milliseconds. If maxAge <= 0, no cache lookup is performed.
// Returns the response and whether it was a cache hit.
func (c *Cache) Get(key string, maxAgeMs int) (*models.SearchResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	maxAge := time.Duration(maxAgeMs) * time.Millisecond
	if time.Since(e.createdAt) > maxAge {
		return nil, false
	}

	return e.response, true
}

// Set stores a response in the cache. If the cache is at capacity,
// a random entry is evicted to make room (map iteration is random in Go).
func (c *Cache) Set(key string, resp *models.SearchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		response:  resp,
		createdAt: time.Now(),
	}
}

// cleanupLoop evicts entries older than 1 hour, every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
