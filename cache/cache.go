package cache

import "sync"

type Cache[K comparable, V any] struct {
	values map[K]V
	mutex  sync.RWMutex
}

func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		values: map[K]V{},
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	value, ok := c.values[key]
	return value, ok
}

// GetOrCreate returns the cached value for key, calling create under the
// write lock when it is missing.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	if value, ok := c.Get(key); ok {
		return value
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	// double check after acquiring write lock
	if value, ok := c.values[key]; ok {
		return value
	}
	value := create()
	c.values[key] = value
	return value
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.values[key] = value
}

func (c *Cache[K, V]) Remove(key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.values, key)
}
