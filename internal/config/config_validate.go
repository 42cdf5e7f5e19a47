// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/itemsim/internal/logging"
	"github.com/tomtom215/itemsim/internal/weights"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateLogging,
		c.validateServer,
		c.validateAPI,
		c.validateSecurity,
		c.validateNATS,
		c.validateDatabase,
		c.validateAggregator,
		c.validateJournal,
		c.validateWeights,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.MaxResults < 1 {
		return fmt.Errorf("API_MAX_RESULTS must be at least 1, got %d", c.API.MaxResults)
	}
	if c.API.DefaultMaxResults < 1 || c.API.DefaultMaxResults > c.API.MaxResults {
		return fmt.Errorf("API_DEFAULT_MAX_RESULTS must be between 1 and API_MAX_RESULTS (%d), got %d",
			c.API.MaxResults, c.API.DefaultMaxResults)
	}
	if c.API.MaxBatchIDs < 1 {
		return fmt.Errorf("API_MAX_BATCH_IDS must be at least 1, got %d", c.API.MaxBatchIDs)
	}
	if c.API.CacheTTL < 0 {
		return fmt.Errorf("API_CACHE_TTL must not be negative")
	}
	if c.API.CacheTTL > 0 && c.API.CacheMaxEntries < 1 {
		return fmt.Errorf("API_CACHE_MAX_ENTRIES must be at least 1 when the cache is enabled")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitRequests)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateNATS() error {
	n := c.NATS
	if n.URL == "" && !n.EmbeddedServer {
		return fmt.Errorf("NATS_URL is required when the embedded server is disabled")
	}
	if n.EmbeddedServer {
		if n.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
		}
		if n.MaxMemory < 1<<20 || n.MaxStore < 1<<20 {
			return fmt.Errorf("NATS_MAX_MEMORY and NATS_MAX_STORE must be at least 1MB")
		}
	}
	required := map[string]string{
		"NATS_INTERACTION_STREAM":   n.InteractionStream,
		"NATS_INTERACTION_SUBJECTS": n.InteractionSubjects,
		"NATS_SIMILARITY_STREAM":    n.SimilarityStream,
		"NATS_SIMILARITY_TOPIC":     n.SimilarityTopic,
		"NATS_POISON_TOPIC":         n.PoisonTopic,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if n.InteractionStream == n.SimilarityStream {
		return fmt.Errorf("interaction and similarity streams must differ")
	}
	if n.SubscribersCount < 1 {
		return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1, got %d", n.SubscribersCount)
	}
	if n.MaxDeliver < 1 {
		return fmt.Errorf("NATS_MAX_DELIVER must be at least 1, got %d", n.MaxDeliver)
	}
	if n.AckWait < time.Second {
		return fmt.Errorf("NATS_ACK_WAIT must be at least 1s, got %v", n.AckWait)
	}
	if n.RouterRetryCount < 0 {
		return fmt.Errorf("NATS_ROUTER_RETRY_COUNT must not be negative")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

func (c *Config) validateAggregator() error {
	a := c.Aggregator
	if a.Shards < 1 {
		return fmt.Errorf("AGGREGATOR_SHARDS must be at least 1, got %d", a.Shards)
	}
	if a.MaxUsersPerShard < 0 {
		return fmt.Errorf("AGGREGATOR_MAX_USERS_PER_SHARD must not be negative")
	}
	switch a.Restore {
	case RestoreJournal, RestoreStore, RestoreNone:
	default:
		return fmt.Errorf("AGGREGATOR_RESTORE must be journal, store or none, got %q", a.Restore)
	}
	if a.StatsInterval < time.Second {
		return fmt.Errorf("AGGREGATOR_STATS_INTERVAL must be at least 1s")
	}
	return nil
}

func (c *Config) validateJournal() error {
	if !c.JournalEnabled() {
		return nil
	}
	if c.Journal.Path == "" {
		return fmt.Errorf("JOURNAL_PATH is required when aggregator.restore is journal")
	}
	if c.Journal.GCDiscardRatio <= 0 || c.Journal.GCDiscardRatio >= 1 {
		return fmt.Errorf("JOURNAL_GC_DISCARD_RATIO must be in (0,1), got %v", c.Journal.GCDiscardRatio)
	}
	return nil
}

func (c *Config) validateWeights() error {
	if _, err := weights.NewTable(c.Weights.Table()); err != nil {
		return err
	}
	return nil
}

// ShouldWarnAboutCORS reports a wildcard origin.
func (c *Config) ShouldWarnAboutCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
