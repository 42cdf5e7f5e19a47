// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package recommend

import (
	"fmt"
	"time"
)

// Config contains the query limits and cache settings of the service.
type Config struct {
	// MaxResults caps every query's result size.
	MaxResults int `json:"max_results"`

	// MaxBatchIDs caps the id list of an interaction totals query.
	MaxBatchIDs int `json:"max_batch_ids"`

	// CacheTTL is how long a ranked result is reused. Zero disables the cache.
	CacheTTL time.Duration `json:"cache_ttl"`

	// CacheMaxEntries bounds the number of cached results.
	CacheMaxEntries int64 `json:"cache_max_entries"`
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		MaxResults:      100,
		MaxBatchIDs:     1000,
		CacheTTL:        30 * time.Second,
		CacheMaxEntries: 10000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxResults < 1 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if c.MaxBatchIDs < 1 {
		return fmt.Errorf("max_batch_ids must be positive, got %d", c.MaxBatchIDs)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must be non-negative, got %v", c.CacheTTL)
	}
	if c.CacheTTL > 0 && c.CacheMaxEntries < 1 {
		return fmt.Errorf("cache_max_entries must be positive when caching, got %d", c.CacheMaxEntries)
	}
	return nil
}

// CacheEnabled reports whether results are cached.
func (c Config) CacheEnabled() bool {
	return c.CacheTTL > 0
}
