package cache

import (
	"sync"
	"time"
)

type Item[V any] struct {
	Value      V
	Expiration int64
}

// Cache is an in-process TTL map. Expired entries are invisible to Get and are
// swept periodically until Stop is called.
type Cache[V any] struct {
	items map[string]Item[V]
	mu    sync.RWMutex
	stop  chan struct{}
	once  sync.Once
}

func NewCache[V any](sweepInterval time.Duration) *Cache[V] {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	cache := &Cache[V]{
		items: make(map[string]Item[V]),
		stop:  make(chan struct{}),
	}
	go cache.startGC(sweepInterval)
	return cache
}

func (c *Cache[V]) Set(key string, value V, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = Item[V]{
		Value:      value,
		Expiration: time.Now().Add(duration).UnixNano(),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	item, found := c.items[key]
	if !found || time.Now().UnixNano() > item.Expiration {
		return zero, false
	}

	return item.Value, true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the sweeper goroutine. It is safe to call more than once.
func (c *Cache[V]) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[V]) startGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
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

func (c *Cache[V]) sweep() {
	now := time.Now().UnixNano()
	c.mu.Lock()
	for k, v := range c.items {
		if now > v.Expiration {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}
