// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/itemsim/internal/database/query"
	"github.com/tomtom215/itemsim/internal/metrics"
	"github.com/tomtom215/itemsim/internal/models"
)

// InteractionTotals sums persisted weights per item. Ids with no rows are
// absent from the map; callers treat a missing id as 0.
func (db *DB) InteractionTotals(ctx context.Context, itemIDs []int64) (totals map[int64]float64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("interaction_totals", TableInteractionWeights, time.Since(start), err) }()

	totals = make(map[int64]float64, len(itemIDs))
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	for _, chunk := range query.Chunk(itemIDs, inClauseChunk) {
		where, args := query.NewWhereBuilder().AddInt64In("item_id", chunk).Build()
		rows, err := db.conn.QueryContext(ctx,
			"SELECT item_id, SUM(weight) FROM interaction_weights "+where+" GROUP BY item_id", args...)
		if err != nil {
			return nil, fmt.Errorf("query interaction totals: %w", err)
		}
		for rows.Next() {
			var (
				id  int64
				sum float64
			)
			if err := rows.Scan(&id, &sum); err != nil {
				closeQuietly(rows)
				return nil, fmt.Errorf("scan interaction total: %w", err)
			}
			totals[id] = sum
		}
		err = rows.Err()
		closeQuietly(rows)
		if err != nil {
			return nil, fmt.Errorf("iterate interaction totals: %w", err)
		}
	}
	return totals, nil
}

// UserItemWeights returns every persisted weight of userID.
func (db *DB) UserItemWeights(ctx context.Context, userID int64) (out []models.InteractionWeight, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("user_item_weights", TableInteractionWeights, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT item_id, user_id, weight, ts
		FROM interaction_weights
		WHERE user_id = ? AND weight > 0
		ORDER BY item_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user item weights: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var w models.InteractionWeight
		if err := rows.Scan(&w.ItemID, &w.UserID, &w.Weight, &w.Timestamp); err != nil {
			return nil, fmt.Errorf("scan user item weight: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user item weights: %w", err)
	}
	return out, nil
}

// SimilarItems returns the similarity rows touching itemID ordered by score
// descending, then more recent timestamp, then lower other-item id. A limit
// <= 0 returns every row.
func (db *DB) SimilarItems(ctx context.Context, itemID int64, limit int) (out []models.ItemSimilarity, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("similar_items", TableItemSimilarities, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	q := `
		SELECT item_a, item_b, score, ts
		FROM item_similarities
		WHERE item_a = ? OR item_b = ?
		ORDER BY score DESC, ts DESC, CASE WHEN item_a = ? THEN item_b ELSE item_a END ASC`
	args := []interface{}{itemID, itemID, itemID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query similar items: %w", err)
	}
	defer closeQuietly(rows)
	return scanSimilarities(rows)
}

// SimilaritiesForItems returns every similarity row with either side in itemIDs.
func (db *DB) SimilaritiesForItems(ctx context.Context, itemIDs []int64) (out []models.ItemSimilarity, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("similarities_for_items", TableItemSimilarities, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	seen := make(map[models.ItemPair]struct{})
	for _, chunk := range query.Chunk(itemIDs, inClauseChunk) {
		where, args := query.NewOrBuilder().
			AddInt64In("item_a", chunk).
			AddInt64In("item_b", chunk).
			Build()
		rows, err := db.conn.QueryContext(ctx,
			"SELECT item_a, item_b, score, ts FROM item_similarities "+where, args...)
		if err != nil {
			return nil, fmt.Errorf("query similarities for items: %w", err)
		}
		batch, err := scanSimilarities(rows)
		closeQuietly(rows)
		if err != nil {
			return nil, err
		}
		// A pair with both sides in different chunks is returned twice.
		for _, s := range batch {
			key := models.ItemPair{A: s.ItemA, B: s.ItemB}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out, nil
}

// ForEachWeight streams every interaction weight row to fn, stopping at the
// first error. It lets the aggregator rebuild state from the store.
func (db *DB) ForEachWeight(ctx context.Context, fn func(itemID, userID int64, weight float64) error) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("for_each_weight", TableInteractionWeights, time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT item_id, user_id, weight FROM interaction_weights WHERE weight > 0")
	if err != nil {
		return fmt.Errorf("query interaction weights: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var (
			itemID, userID int64
			weight         float64
		)
		if err := rows.Scan(&itemID, &userID, &weight); err != nil {
			return fmt.Errorf("scan interaction weight: %w", err)
		}
		if err := fn(itemID, userID, weight); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetInteractionWeight returns one persisted weight row.
func (db *DB) GetInteractionWeight(ctx context.Context, itemID, userID int64) (w models.InteractionWeight, found bool, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		"SELECT item_id, user_id, weight, ts FROM interaction_weights WHERE item_id = ? AND user_id = ?",
		itemID, userID).Scan(&w.ItemID, &w.UserID, &w.Weight, &w.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InteractionWeight{}, false, nil
	}
	if err != nil {
		return models.InteractionWeight{}, false, fmt.Errorf("get interaction weight: %w", err)
	}
	return w, true, nil
}

// GetItemSimilarity returns one persisted similarity row in canonical order.
func (db *DB) GetItemSimilarity(ctx context.Context, itemA, itemB int64) (s models.ItemSimilarity, found bool, err error) {
	pair := models.NewItemPair(itemA, itemB)
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		"SELECT item_a, item_b, score, ts FROM item_similarities WHERE item_a = ? AND item_b = ?",
		pair.A, pair.B).Scan(&s.ItemA, &s.ItemB, &s.Score, &s.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ItemSimilarity{}, false, nil
	}
	if err != nil {
		return models.ItemSimilarity{}, false, fmt.Errorf("get item similarity: %w", err)
	}
	return s, true, nil
}

// TableCounts reports the row count of both tables.
type TableCounts struct {
	InteractionWeights int64 `json:"interaction_weights"`
	ItemSimilarities   int64 `json:"item_similarities"`
}

// Counts returns the current row counts.
func (db *DB) Counts(ctx context.Context) (TableCounts, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var c TableCounts
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM interaction_weights),
			(SELECT COUNT(*) FROM item_similarities)`).Scan(&c.InteractionWeights, &c.ItemSimilarities)
	if err != nil {
		return TableCounts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}

func scanSimilarities(rows *sql.Rows) ([]models.ItemSimilarity, error) {
	var out []models.ItemSimilarity
	for rows.Next() {
		var s models.ItemSimilarity
		if err := rows.Scan(&s.ItemA, &s.ItemB, &s.Score, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan item similarity: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item similarities: %w", err)
	}
	return out, nil
}
