// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package recommend

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/tomtom215/itemsim/internal/metrics"
	"github.com/tomtom215/itemsim/internal/models"
)

// resultCache holds ranked results for a short TTL. A nil *resultCache is a
// disabled cache and every method is a no-op on it.
type resultCache struct {
	cache *ristretto.Cache[string, []models.ScoredItem]
	ttl   time.Duration
}

func newResultCache(cfg Config) (*resultCache, error) {
	if !cfg.CacheEnabled() {
		return nil, nil
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []models.ScoredItem]{
		NumCounters: cfg.CacheMaxEntries * 10,
		MaxCost:     cfg.CacheMaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &resultCache{cache: c, ttl: cfg.CacheTTL}, nil
}

// get returns a copy so callers may reorder or trim it.
func (c *resultCache) get(key string) ([]models.ScoredItem, bool) {
	if c == nil {
		return nil, false
	}
	items, ok := c.cache.Get(key)
	metrics.RecordCacheLookup(ok)
	if !ok {
		return nil, false
	}
	out := make([]models.ScoredItem, len(items))
	copy(out, items)
	return out, true
}

func (c *resultCache) set(key string, items []models.ScoredItem) {
	if c == nil {
		return
	}
	stored := make([]models.ScoredItem, len(items))
	copy(stored, items)
	c.cache.SetWithTTL(key, stored, 1, c.ttl)
}

// wait blocks until buffered writes are visible.
func (c *resultCache) wait() {
	if c != nil {
		c.cache.Wait()
	}
}

func (c *resultCache) close() {
	if c != nil {
		c.cache.Close()
	}
}

func recommendationsKey(userID int64, limit int) string {
	return fmt.Sprintf("rec:%d:%d", userID, limit)
}

func similarKey(itemID, excludeUserID int64, limit int) string {
	return fmt.Sprintf("sim:%d:%d:%d", itemID, excludeUserID, limit)
}
