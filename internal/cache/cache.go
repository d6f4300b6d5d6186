// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

// Package cache provides the key/value caches injected into API clients.
//
// Callers own their key construction: a key must change whenever the
// cached value may have changed, so that entries never need explicit
// invalidation. The TTL only bounds how long an unchanged key is trusted.
package cache

import (
	"sync"
	"time"
)

// Cacher stores serialized values with a per-entry expiry.
type Cacher interface {
	// Get returns the value of key if present and not expired.
	Get(key string) ([]byte, bool)

	// Set stores value under key for ttl.
	Set(key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(key string)

	// Close releases the resources held by the cache.
	Close() error
}

// Backend names a Cacher implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendBadger Backend = "badger"
)

// Config selects and configures a Cacher.
type Config struct {
	Backend Backend
	// Path is the Badger directory; ignored by the memory backend.
	Path string
}

// New creates the Cacher selected by cfg.
func New(cfg Config) (Cacher, error) {
	if cfg.Backend == BackendBadger {
		return OpenBadger(cfg.Path)
	}
	return NewMemory(5 * time.Minute), nil
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is a thread-safe in-memory Cacher. Expired entries are removed on
// read and by a periodic sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Cacher = (*Memory)(nil)

// NewMemory creates a memory cache sweeping expired entries every interval.
func NewMemory(sweepInterval time.Duration) *Memory {
	c := &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop(sweepInterval)
	return c
}

func (c *Memory) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

func (c *Memory) Set(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{data: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *Memory) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweep goroutine.
func (c *Memory) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *Memory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Memory) cleanup() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
