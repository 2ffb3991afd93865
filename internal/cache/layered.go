package cache

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats counts lookups by where they were answered
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
}

// Lookups is the total number of Get calls
func (s Stats) Lookups() int64 {
	return s.MemoryHits + s.DiskHits + s.Misses
}

// LayeredCache answers from memory, then disk; disk hits are promoted so a
// concentration page linked from several degrees is decoded from disk once per run
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache

	memoryHits atomic.Int64
	diskHits   atomic.Int64
	misses     atomic.Int64
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		c.memoryHits.Add(1)
		return val, true
	}

	if val, found := c.disk.Get(key); found {
		c.diskHits.Add(1)
		_ = c.memory.Set(key, val, 0)
		return val, true
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores a value in both layers. A disk failure is returned but the
// memory copy is kept, so the current run still benefits.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, 0); err != nil {
		return err
	}
	if err := c.disk.Set(key, value, ttl); err != nil {
		return fmt.Errorf("disk cache: %w", err)
	}
	return nil
}

func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}

// Stats returns lookup counters since creation
func (c *LayeredCache) Stats() Stats {
	return Stats{
		MemoryHits: c.memoryHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Misses:     c.misses.Load(),
	}
}
