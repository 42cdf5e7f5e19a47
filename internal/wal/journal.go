// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package wal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/itemsim/internal/logging"
	"github.com/tomtom215/itemsim/internal/metrics"
)

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal is closed")

const weightPrefix = "w/"

// Journal persists per-(item, user) weights.
//
// Each entry lives under the key w/<item>/<user> and holds the weight with
// the interaction timestamp that produced it. The aggregation handler writes
// an entry only after the pair updates for that weight were published, and
// before it acks the interaction. The journal is therefore never ahead of
// the similarity stream:
//
//  1. On startup ForEachWeight replays every entry into the shards
//  2. Interactions that were not journaled are redelivered and recompute
//     their updates
//  3. GCRunner reclaims value log space in the background
//
// Example usage:
//
//	cfg := wal.DefaultConfig()
//	j, err := wal.Open(&cfg)
//	if err != nil {
//	    return err
//	}
//	defer j.Close()
//	_, err = shards.Restore(ctx, agg, j)
type Journal struct {
	db     *badger.DB
	config Config

	mu     sync.RWMutex
	closed bool
}

type journalEntry struct {
	Weight    float64 `json:"weight"`
	UpdatedAt int64   `json:"updated_at"`
}

// Open opens or creates the journal.
func Open(cfg *Config) (*Journal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid journal config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Weight journal opened")

	return &Journal{db: db, config: *cfg}, nil
}

// Config returns the journal configuration.
func (j *Journal) Config() Config {
	return j.config
}

func weightKey(itemID, userID int64) []byte {
	return []byte(weightPrefix + strconv.FormatInt(itemID, 10) + "/" + strconv.FormatInt(userID, 10))
}

func parseWeightKey(key []byte) (itemID, userID int64, err error) {
	rest := bytes.TrimPrefix(key, []byte(weightPrefix))
	sep := bytes.IndexByte(rest, '/')
	if sep < 0 {
		return 0, 0, fmt.Errorf("malformed journal key %q", key)
	}
	if itemID, err = strconv.ParseInt(string(rest[:sep]), 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed item in journal key %q: %w", key, err)
	}
	if userID, err = strconv.ParseInt(string(rest[sep+1:]), 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed user in journal key %q: %w", key, err)
	}
	return itemID, userID, nil
}

func (j *Journal) checkOpen() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return nil
}

// Record stores weight for (item, user).
func (j *Journal) Record(ctx context.Context, itemID, userID int64, weight float64, ts int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := j.checkOpen(); err != nil {
		return err
	}

	value, err := json.Marshal(journalEntry{Weight: weight, UpdatedAt: ts})
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(weightKey(itemID, userID), value))
	})
	if err != nil {
		metrics.JournalWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("write journal entry: %w", err)
	}
	metrics.JournalWrites.WithLabelValues("success").Inc()
	return nil
}

// ForEachWeight calls fn for every journaled weight in key order. Entries that
// cannot be decoded are logged and skipped. An error from fn stops iteration.
func (j *Journal) ForEachWeight(ctx context.Context, fn func(itemID, userID int64, weight float64) error) error {
	if err := j.checkOpen(); err != nil {
		return err
	}

	return j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(weightPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			itemID, userID, err := parseWeightKey(item.Key())
			if err != nil {
				logging.Warn().Err(err).Msg("Skipping malformed journal key")
				continue
			}

			var entry journalEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				logging.Warn().Err(err).Int64("item_id", itemID).Int64("user_id", userID).Msg("Skipping unreadable journal entry")
				continue
			}

			if err := fn(itemID, userID, entry.Weight); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of journaled weights.
func (j *Journal) Count(ctx context.Context) (int, error) {
	if err := j.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(weightPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// RunGC runs value log GC until there is nothing left to rewrite.
func (j *Journal) RunGC() error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	if j.config.InMemory {
		return nil
	}

	start := time.Now()
	defer func() { metrics.JournalGCDuration.Observe(time.Since(start).Seconds()) }()

	for {
		err := j.db.RunValueLogGC(j.config.GCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

// Close closes the journal. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	timeout := j.config.CloseTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	done := make(chan error, 1)
	go func() {
		done <- j.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Weight journal closed")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("journal close timeout after %v", timeout)
	}
}
