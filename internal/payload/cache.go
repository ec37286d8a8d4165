package payload

import (
	"path/filepath"
	"sync"
)

// Cache keeps decoded payloads by file path so that several collaborators
// (lint, plan, render) share one read. It is passed explicitly to whoever
// performs retrieval.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]*Payload
	loader  func(path string) ([]*Payload, error)

	hits, misses int
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string][]*Payload),
		loader:  LoadFile,
	}
}

// Load returns the cached payloads for path, reading the file on a miss.
// Failed reads are not cached.
func (c *Cache) Load(path string) ([]*Payload, error) {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	c.mu.Lock()
	if ps, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return ps, nil
	}
	c.misses++
	c.mu.Unlock()

	ps, err := c.loader(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.entries[key]; ok {
		return cached, nil
	}
	c.entries[key] = ps
	return ps, nil
}

// Invalidate drops path from the cache.
func (c *Cache) Invalidate(path string) {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Stats reports cache hits and misses.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
