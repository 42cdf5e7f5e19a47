// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/itemsim/internal/aggregator"
	"github.com/tomtom215/itemsim/internal/config"
	"github.com/tomtom215/itemsim/internal/database"
	"github.com/tomtom215/itemsim/internal/logging"
	"github.com/tomtom215/itemsim/internal/models"
	"github.com/tomtom215/itemsim/internal/wal"
)

// journalConfig maps the journal section onto wal.Config. Zero values keep
// the wal defaults.
func journalConfig(cfg *config.JournalConfig) wal.Config {
	jc := wal.DefaultConfig()
	if cfg.Path != "" {
		jc.Path = cfg.Path
	}
	jc.SyncWrites = cfg.SyncWrites
	if cfg.GCInterval > 0 {
		jc.GCInterval = cfg.GCInterval
	}
	if cfg.GCDiscardRatio > 0 {
		jc.GCDiscardRatio = cfg.GCDiscardRatio
	}
	if cfg.MemTableSize > 0 {
		jc.MemTableSize = cfg.MemTableSize
	}
	if cfg.ValueLogFileSize > 0 {
		jc.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.NumCompactors > 0 {
		jc.NumCompactors = cfg.NumCompactors
	}
	return jc
}

// InitJournal opens the badger weight journal when the aggregator restores
// from it. It returns nil, nil otherwise.
func InitJournal(cfg *config.Config) (*wal.Journal, error) {
	if !cfg.JournalEnabled() {
		logging.Info().Str("restore", cfg.Aggregator.Restore).Msg("Weight journal disabled")
		return nil, nil
	}

	jc := journalConfig(&cfg.Journal)
	if err := jc.Validate(); err != nil {
		return nil, err
	}
	logging.Info().Str("path", jc.Path).Bool("sync_writes", jc.SyncWrites).Msg("Opening weight journal...")

	j, err := wal.Open(&jc)
	if err != nil {
		return nil, fmt.Errorf("open weight journal: %w", err)
	}
	return j, nil
}

// restoreSource picks the replay source for the configured strategy. A nil
// source means the aggregator starts empty.
func restoreSource(cfg *config.Config, db *database.DB, journal *wal.Journal) (aggregator.WeightSource, error) {
	switch cfg.Aggregator.Restore {
	case config.RestoreJournal:
		if journal == nil {
			return nil, fmt.Errorf("restore=%s but the journal is not open", config.RestoreJournal)
		}
		return journal, nil
	case config.RestoreStore:
		return db, nil
	case config.RestoreNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown restore strategy %q", cfg.Aggregator.Restore)
	}
}

// reconcileBatchSize bounds one MergeItemSimilarities transaction.
const reconcileBatchSize = 500

// scoreMerger is the batch write side of item_similarities.
type scoreMerger interface {
	MergeItemSimilarities(ctx context.Context, updates []models.SimilarityUpdate) (int, error)
}

// reconcileScores merges the current score of every restored pair into the
// store. The interaction persister acks independently of the aggregator, so
// interaction_weights can hold weights whose similarity updates were never
// published; replaying them makes the redelivery a no-op. Keep-the-maximum
// merges make re-emitting scores that already reached the store harmless.
func reconcileScores(ctx context.Context, shards *aggregator.ShardSet, store scoreMerger, ts int64) (emitted, applied int, err error) {
	batch := make([]models.SimilarityUpdate, 0, reconcileBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.MergeItemSimilarities(ctx, batch)
		if err != nil {
			return fmt.Errorf("merge reconciled scores: %w", err)
		}
		applied += n
		batch = batch[:0]
		return nil
	}

	err = shards.ForEachScore(ctx, func(pair models.ItemPair, score float64) error {
		emitted++
		batch = append(batch, models.SimilarityUpdate{ItemA: pair.A, ItemB: pair.B, Score: score, Timestamp: ts})
		if len(batch) < reconcileBatchSize {
			return nil
		}
		return flush()
	})
	if err == nil {
		err = flush()
	}
	return emitted, applied, err
}

// RestoreState replays persisted weights into shards before they run. After
// a store replay the restored scores are merged back into item_similarities.
func RestoreState(ctx context.Context, cfg *config.Config, shards *aggregator.ShardSet, agg *aggregator.Aggregator, db *database.DB, journal *wal.Journal) error {
	src, err := restoreSource(cfg, db, journal)
	if err != nil || src == nil {
		return err
	}

	logging.Info().Str("source", cfg.Aggregator.Restore).Msg("Restoring aggregator state...")
	result, err := shards.Restore(ctx, agg, src)
	if err != nil {
		return fmt.Errorf("restore aggregator state: %w", err)
	}
	logging.Info().
		Int("entries", result.Entries).
		Int("applied", result.Applied).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Aggregator state restored")

	if cfg.Aggregator.Restore != config.RestoreStore {
		return nil
	}
	emitted, applied, err := reconcileScores(ctx, shards, db, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	logging.Info().
		Int("pairs", emitted).
		Int("raised", applied).
		Msg("Similarity scores reconciled with restored weights")
	return nil
}
