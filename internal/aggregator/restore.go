// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/itemsim/internal/logging"
	"github.com/tomtom215/itemsim/internal/models"
)

// WeightSource yields previously recorded (item, user, weight) entries.
// Both the badger journal and the DuckDB store implement it.
type WeightSource interface {
	ForEachWeight(ctx context.Context, fn func(itemID, userID int64, weight float64) error) error
}

// RestoreResult summarizes a startup replay.
type RestoreResult struct {
	Entries  int
	Applied  int
	Skipped  int
	Duration time.Duration
}

// Restore replays every entry of src into the owning shards. Entries are
// applied with the same incremental rules as live traffic, so replaying
// in any order reconstructs the same sums. Invalid entries are skipped and
// counted. Restore must run before Run.
func (s *ShardSet) Restore(ctx context.Context, agg *Aggregator, src WeightSource) (RestoreResult, error) {
	if s.running.Load() {
		return RestoreResult{}, ErrShardSetRunning
	}

	start := time.Now()
	var result RestoreResult

	err := src.ForEachWeight(ctx, func(itemID, userID int64, weight float64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.Entries++

		st := s.shards[s.ShardFor(userID)].state
		change, err := agg.Restore(st, itemID, userID, weight)
		if err != nil {
			result.Skipped++
			logging.Warn().Err(err).Int64("item_id", itemID).Int64("user_id", userID).Msg("Skipping invalid weight during restore")
			return nil
		}
		if change.Applied() {
			result.Applied++
		}
		return nil
	})
	result.Duration = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("restore aggregator state: %w", err)
	}

	logging.Info().
		Int("entries", result.Entries).
		Int("applied", result.Applied).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Aggregator state restored")
	return result, nil
}

// ForEachScore calls fn with the current score of every pair held by any
// shard. Like Restore it must run before Run. With several shards a pair may
// be reported once per shard, each with that shard's partial score. An error
// from fn stops iteration.
func (s *ShardSet) ForEachScore(ctx context.Context, fn func(pair models.ItemPair, score float64) error) error {
	if s.running.Load() {
		return ErrShardSetRunning
	}
	for _, sh := range s.shards {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sh.state.forEachScore(fn); err != nil {
			return err
		}
	}
	return nil
}
