// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package wal

import (
	"fmt"
	"time"
)

// Config holds journal configuration.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the journal in memory only. Intended for tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// GCInterval is the time between value log GC runs.
	GCInterval time.Duration

	// GCDiscardRatio is passed to RunValueLogGC.
	GCDiscardRatio float64

	// BadgerDB tuning
	MemTableSize     int64
	ValueLogFileSize int64
	NumCompactors    int

	// CloseTimeout bounds Close.
	CloseTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:             "/data/journal",
		SyncWrites:       true,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		CloseTimeout:     30 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return &ConfigError{Field: "Path", Message: "required unless the journal is in memory"}
	}
	if c.GCInterval < time.Second {
		return &ConfigError{Field: "GCInterval", Message: "must be at least 1s"}
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return &ConfigError{Field: "GCDiscardRatio", Message: "must be in (0,1)"}
	}
	if c.MemTableSize < 1024*1024 {
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 1MB"}
	}
	if c.ValueLogFileSize < 1024*1024 {
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	}
	if c.NumCompactors < 2 {
		// badger refuses fewer than two compactors
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2"}
	}
	return nil
}

// ConfigError describes an invalid journal setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("journal config error: %s %s", e.Field, e.Message)
}
