// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/itemsim/internal/metrics"
	"github.com/tomtom215/itemsim/internal/models"
)

// The WHERE on DO UPDATE makes each merge keep-the-maximum in one statement,
// so concurrent writers to the same key cannot lose an update.
const (
	mergeInteractionWeightSQL = `
		INSERT INTO interaction_weights (item_id, user_id, weight, ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (item_id, user_id) DO UPDATE
		SET weight = EXCLUDED.weight, ts = EXCLUDED.ts
		WHERE EXCLUDED.weight > interaction_weights.weight`

	mergeItemSimilaritySQL = `
		INSERT INTO item_similarities (item_a, item_b, score, ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (item_a, item_b) DO UPDATE
		SET score = EXCLUDED.score, ts = EXCLUDED.ts
		WHERE EXCLUDED.score > item_similarities.score`
)

// MergeInteractionWeight inserts the (item, user) weight if absent, or
// replaces weight and timestamp when weight is strictly greater than the
// stored value. applied is false when the stored row was kept.
func (db *DB) MergeInteractionWeight(ctx context.Context, itemID, userID int64, weight float64, ts int64) (applied bool, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordMerge(TableInteractionWeights, applied, err)
		metrics.RecordDBQuery("merge", TableInteractionWeights, time.Since(start), err)
	}()

	if itemID <= 0 || userID <= 0 {
		return false, fmt.Errorf("%w: item %d user %d", ErrInvalidArgument, itemID, userID)
	}
	if err := checkValue("weight", weight); err != nil {
		return false, err
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, mergeInteractionWeightSQL, itemID, userID, weight, ts)
	if err != nil {
		return false, fmt.Errorf("merge interaction weight (%d,%d): %w", itemID, userID, err)
	}
	return rowsChanged(res), nil
}

// MergeItemSimilarity canonicalizes the pair and keeps the greater score.
// A self pair is rejected with models.ErrSelfPair.
func (db *DB) MergeItemSimilarity(ctx context.Context, itemA, itemB int64, score float64, ts int64) (applied bool, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordMerge(TableItemSimilarities, applied, err)
		metrics.RecordDBQuery("merge", TableItemSimilarities, time.Since(start), err)
	}()

	pair, err := similarityPair(itemA, itemB, score)
	if err != nil {
		return false, err
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, mergeItemSimilaritySQL, pair.A, pair.B, score, ts)
	if err != nil {
		return false, fmt.Errorf("merge item similarity %s: %w", pair, err)
	}
	return rowsChanged(res), nil
}

// MergeItemSimilarities merges a batch in one transaction and returns how many
// rows changed. Updates for the same pair are collapsed to the highest score
// first. Any invalid update fails the whole batch before the transaction opens.
func (db *DB) MergeItemSimilarities(ctx context.Context, updates []models.SimilarityUpdate) (applied int, err error) {
	if len(updates) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("merge_batch", TableItemSimilarities, time.Since(start), err)
	}()

	best := make(map[models.ItemPair]models.SimilarityUpdate, len(updates))
	order := make([]models.ItemPair, 0, len(updates))
	for _, u := range updates {
		pair, err := similarityPair(u.ItemA, u.ItemB, u.Score)
		if err != nil {
			return 0, err
		}
		cur, seen := best[pair]
		if !seen {
			order = append(order, pair)
		}
		if !seen || u.Score > cur.Score {
			best[pair] = models.SimilarityUpdate{ItemA: pair.A, ItemB: pair.B, Score: u.Score, Timestamp: u.Timestamp}
		}
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin similarity batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, mergeItemSimilaritySQL)
	if err != nil {
		return 0, fmt.Errorf("prepare similarity merge: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for _, pair := range order {
		u := best[pair]
		res, execErr := stmt.ExecContext(ctx, u.ItemA, u.ItemB, u.Score, u.Timestamp)
		if execErr != nil {
			err = fmt.Errorf("merge item similarity %s: %w", pair, execErr)
			return 0, err
		}
		changed := rowsChanged(res)
		metrics.RecordMerge(TableItemSimilarities, changed, nil)
		if changed {
			applied++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit similarity batch: %w", err)
	}
	return applied, nil
}

func similarityPair(itemA, itemB int64, score float64) (models.ItemPair, error) {
	if itemA <= 0 || itemB <= 0 {
		return models.ItemPair{}, fmt.Errorf("%w: pair (%d,%d)", ErrInvalidArgument, itemA, itemB)
	}
	if itemA == itemB {
		return models.ItemPair{}, fmt.Errorf("%w: item %d", models.ErrSelfPair, itemA)
	}
	if err := checkValue("score", score); err != nil {
		return models.ItemPair{}, err
	}
	return models.NewItemPair(itemA, itemB), nil
}

func checkValue(name string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s %v", ErrInvalidArgument, name, v)
	}
	return nil
}

func rowsChanged(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}
