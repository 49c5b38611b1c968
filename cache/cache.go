package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/cardgrab/models"
)

const (
	sweepInterval = 5 * time.Minute
	entryLifetime = time.Hour
)

type entry struct {
	record    *models.ProductRecord
	createdAt time.Time
}

// Cache keeps recently extracted product records in memory.
// It is safe for concurrent use. Records are copied on the way in and out,
// so callers may modify what they get.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time
	stop       chan struct{}
}

// New creates a Cache holding at most maxEntries records. A background
// sweep drops entries older than an hour.
func New(maxEntries int) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Key identifies a record by marketplace and product URL.
func Key(site models.Site, url string) string {
	h := sha256.New()
	h.Write([]byte(site))
	h.Write([]byte("|"))
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached record when it is younger than maxAgeMs
// milliseconds. maxAgeMs <= 0 never hits.
func (c *Cache) Get(key string, maxAgeMs int64) (*models.ProductRecord, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}
	return e.record.Clone(), true
}

// Set stores a copy of rec. At capacity an arbitrary entry is evicted.
func (c *Cache) Set(key string, rec *models.ProductRecord) {
	if rec == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{record: rec.Clone(), createdAt: c.now()}
}

// Len reports the number of stored records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the background sweep.
func (c *Cache) Close() {
	close(c.stop)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	cutoff := c.now().Add(-entryLifetime)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
