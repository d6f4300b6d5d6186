// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/metrics"
)

// Remember returns the value cached under key, or calls fetch and caches
// its result for ttl. Errors from fetch are returned and never cached.
// name labels the hit and miss metrics.
func Remember[T any](ctx context.Context, c Cacher, name, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if raw, ok := c.Get(key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheHits.WithLabelValues(name).Inc()
			return v, nil
		}
		// Written by an older version with another shape.
		c.Delete(key)
	}
	metrics.CacheMisses.WithLabelValues(name).Inc()

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		logging.Warn().Err(err).Str("cache", name).Msg("Value not cacheable")
		return v, nil
	}
	if err := c.Set(key, raw, ttl); err != nil {
		logging.Warn().Err(err).Str("cache", name).Str("key", key).Msg("Cache write failed")
	}
	return v, nil
}
