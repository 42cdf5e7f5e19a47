// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/itemsim/config.yaml",
	"/etc/itemsim/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Defaults returns the built-in configuration without reading any file or
// environment variable.
func Defaults() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			DefaultMaxResults: 10,
			MaxResults:        100,
			MaxBatchIDs:       1000,
			RequestTimeout:    10 * time.Second,
			CacheTTL:          30 * time.Second,
			CacheMaxEntries:   10000,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		NATS: NATSConfig{
			URL:                        "nats://127.0.0.1:4222",
			EmbeddedServer:             true,
			ServerHost:                 "127.0.0.1",
			ServerPort:                 4222,
			StoreDir:                   "/data/nats/jetstream",
			MaxMemory:                  1 << 30,  // 1GB
			MaxStore:                   10 << 30, // 10GB
			InteractionStream:          "INTERACTIONS",
			InteractionSubjects:        "interactions.>",
			SimilarityStream:           "SIMILARITY",
			SimilarityTopic:            "similarity.updates",
			PoisonTopic:                "itemsim.poison",
			StreamRetention:            7 * 24 * time.Hour,
			SubscribersCount:           1,
			AckWait:                    30 * time.Second,
			MaxDeliver:                 10,
			MaxAckPending:              1000,
			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterCloseTimeout:         30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:          "/data/itemsim.duckdb",
			MaxMemory:     "1GB",
			Threads:       0, // 0 = runtime.NumCPU()
			IngestEnabled: true,
		},
		Aggregator: AggregatorConfig{
			Enabled:       true,
			Shards:        1,
			Restore:       RestoreJournal,
			StatsInterval: 30 * time.Second,
		},
		Journal: JournalConfig{
			Path:             "/data/journal",
			SyncWrites:       true,
			GCInterval:       10 * time.Minute,
			GCDiscardRatio:   0.5,
			MemTableSize:     16 * 1024 * 1024,
			ValueLogFileSize: 64 * 1024 * 1024,
			NumCompactors:    2,
		},
		Weights: WeightsConfig{
			View:     0.4,
			Register: 0.8,
			Like:     1.0,
		},
	}
}

// Load builds the configuration from, in increasing priority: built-in
// defaults, an optional YAML file, and mapped environment variables. The
// result is validated; any error is fatal for the caller.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set by env.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	"api_default_max_results": "api.default_max_results",
	"api_max_results":         "api.max_results",
	"api_max_batch_ids":       "api.max_batch_ids",
	"api_request_timeout":     "api.request_timeout",
	"api_cache_ttl":           "api.cache_ttl",
	"api_cache_max_entries":   "api.cache_max_entries",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"nats_url":                           "nats.url",
	"nats_embedded":                      "nats.embedded_server",
	"nats_server_host":                   "nats.server_host",
	"nats_server_port":                   "nats.server_port",
	"nats_store_dir":                     "nats.store_dir",
	"nats_max_memory":                    "nats.max_memory",
	"nats_max_store":                     "nats.max_store",
	"nats_interaction_stream":            "nats.interaction_stream",
	"nats_interaction_subjects":          "nats.interaction_subjects",
	"nats_similarity_stream":             "nats.similarity_stream",
	"nats_similarity_topic":              "nats.similarity_topic",
	"nats_poison_topic":                  "nats.poison_topic",
	"nats_stream_retention":              "nats.stream_retention",
	"nats_subscribers":                   "nats.subscribers_count",
	"nats_ack_wait":                      "nats.ack_wait",
	"nats_max_deliver":                   "nats.max_deliver",
	"nats_max_ack_pending":               "nats.max_ack_pending",
	"nats_router_retry_count":            "nats.router_retry_count",
	"nats_router_retry_initial_interval": "nats.router_retry_initial_interval",
	"nats_router_throttle_per_second":    "nats.router_throttle_per_second",
	"nats_router_close_timeout":          "nats.router_close_timeout",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"ingest_enabled":    "database.ingest_enabled",

	"aggregator_enabled":             "aggregator.enabled",
	"aggregator_shards":              "aggregator.shards",
	"aggregator_max_users_per_shard": "aggregator.max_users_per_shard",
	"aggregator_restore":             "aggregator.restore",
	"aggregator_stats_interval":      "aggregator.stats_interval",

	"journal_path":             "journal.path",
	"journal_sync_writes":      "journal.sync_writes",
	"journal_gc_interval":      "journal.gc_interval",
	"journal_gc_discard_ratio": "journal.gc_discard_ratio",
	"journal_memtable_size":    "journal.memtable_size",
	"journal_vlog_size":        "journal.vlog_size",
	"journal_num_compactors":   "journal.num_compactors",

	"weight_view":     "weights.view",
	"weight_register": "weights.register",
	"weight_like":     "weights.like",
}

// envTransformFunc maps, for example, DUCKDB_PATH to database.path and
// WEIGHT_LIKE to weights.like.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
