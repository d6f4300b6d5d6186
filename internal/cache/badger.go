// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/tracktarr/internal/logging"
)

// Badger is a Cacher persisted in a BadgerDB directory, so that cached
// show details survive restarts. Entry expiry uses Badger's native TTL.
type Badger struct {
	db *badger.DB

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Cacher = (*Badger)(nil)

const badgerGCInterval = 10 * time.Minute

// OpenBadger opens (or creates) the cache at path. An empty path keeps the
// data in memory.
func OpenBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB cache: %w", err)
	}

	c := &Badger{db: db, stop: make(chan struct{})}
	if path != "" {
		c.wg.Add(1)
		go c.gcLoop()
	}

	logging.Info().Str("path", path).Msg("Badger cache opened")
	return c, nil
}

func (c *Badger) Get(key string) ([]byte, bool) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Warn().Err(err).Str("key", key).Msg("Badger cache read failed")
		}
		return nil, false
	}
	return value, true
}

func (c *Badger) Set(key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
}

func (c *Badger) Delete(key string) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Badger cache delete failed")
	}
}

// Close stops value log GC and closes the database.
func (c *Badger) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
	return c.db.Close()
}

func (c *Badger) gcLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(badgerGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Rewrite until a pass finds nothing to reclaim.
			for {
				if err := c.db.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logging.Warn().Err(err).Msg("Badger cache value log GC failed")
					}
					break
				}
			}
		case <-c.stop:
			return
		}
	}
}
