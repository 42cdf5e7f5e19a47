// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package config

import (
	"time"
)

// Config is the complete service configuration. It is loaded once at startup
// by Load and never modified afterwards.
type Config struct {
	Logging    LoggingConfig    `koanf:"logging"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	NATS       NATSConfig       `koanf:"nats"`
	Database   DatabaseConfig   `koanf:"database"`
	Aggregator AggregatorConfig `koanf:"aggregator"`
	Journal    JournalConfig    `koanf:"journal"`
	Weights    WeightsConfig    `koanf:"weights"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// APIConfig configures the query endpoints.
type APIConfig struct {
	DefaultMaxResults int           `koanf:"default_max_results"`
	MaxResults        int           `koanf:"max_results"`
	MaxBatchIDs       int           `koanf:"max_batch_ids"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	CacheTTL          time.Duration `koanf:"cache_ttl"` // 0 disables the query cache
	CacheMaxEntries   int64         `koanf:"cache_max_entries"`
}

// SecurityConfig configures CORS and rate limiting.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// NATSConfig configures JetStream transport, streams and consumers.
type NATSConfig struct {
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	ServerHost     string `koanf:"server_host"`
	ServerPort     int    `koanf:"server_port"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	InteractionStream   string        `koanf:"interaction_stream"`
	InteractionSubjects string        `koanf:"interaction_subjects"`
	SimilarityStream    string        `koanf:"similarity_stream"`
	SimilarityTopic     string        `koanf:"similarity_topic"`
	PoisonTopic         string        `koanf:"poison_topic"`
	StreamRetention     time.Duration `koanf:"stream_retention"`

	SubscribersCount int           `koanf:"subscribers_count"`
	AckWait          time.Duration `koanf:"ack_wait"`
	MaxDeliver       int           `koanf:"max_deliver"`
	MaxAckPending    int           `koanf:"max_ack_pending"`

	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterThrottlePerSecond    int64         `koanf:"router_throttle_per_second"` // 0 = unlimited
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`
}

// DatabaseConfig configures DuckDB.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`

	// IngestEnabled runs the interaction and similarity merge consumers.
	IngestEnabled bool `koanf:"ingest_enabled"`
}

// AggregatorConfig configures the similarity aggregator.
type AggregatorConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Shards           int           `koanf:"shards"`
	MaxUsersPerShard int           `koanf:"max_users_per_shard"` // 0 = unbounded
	Restore          string        `koanf:"restore"`             // journal, store or none
	StatsInterval    time.Duration `koanf:"stats_interval"`
}

// Restore strategies.
const (
	RestoreJournal = "journal"
	RestoreStore   = "store"
	RestoreNone    = "none"
)

// JournalConfig configures the badger weight journal.
type JournalConfig struct {
	Path             string        `koanf:"path"`
	SyncWrites       bool          `koanf:"sync_writes"`
	GCInterval       time.Duration `koanf:"gc_interval"`
	GCDiscardRatio   float64       `koanf:"gc_discard_ratio"`
	MemTableSize     int64         `koanf:"memtable_size"`
	ValueLogFileSize int64         `koanf:"vlog_size"`
	NumCompactors    int           `koanf:"num_compactors"`
}

// WeightsConfig maps each interaction kind to its similarity weight.
type WeightsConfig struct {
	View     float64 `koanf:"view"`
	Register float64 `koanf:"register"`
	Like     float64 `koanf:"like"`
}

// Table returns the weights keyed by kind name, as weights.NewTable expects.
func (w WeightsConfig) Table() map[string]float64 {
	return map[string]float64{
		"view":     w.View,
		"register": w.Register,
		"like":     w.Like,
	}
}

// JournalEnabled reports whether the aggregator needs the badger journal.
func (c *Config) JournalEnabled() bool {
	return c.Aggregator.Enabled && c.Aggregator.Restore == RestoreJournal
}
