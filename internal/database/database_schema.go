// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package database

import (
	"context"
	"fmt"
)

// Table names, also used as metric labels.
const (
	TableInteractionWeights = "interaction_weights"
	TableItemSimilarities   = "item_similarities"
)

var schemaStatements = []struct {
	name string
	sql  string
}{
	{
		name: TableInteractionWeights,
		sql: `CREATE TABLE IF NOT EXISTS interaction_weights (
			item_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			weight DOUBLE NOT NULL,
			ts BIGINT NOT NULL,
			PRIMARY KEY (item_id, user_id)
		)`,
	},
	{
		name: TableItemSimilarities,
		sql: `CREATE TABLE IF NOT EXISTS item_similarities (
			item_a BIGINT NOT NULL,
			item_b BIGINT NOT NULL,
			score DOUBLE NOT NULL,
			ts BIGINT NOT NULL,
			PRIMARY KEY (item_a, item_b),
			CHECK (item_a < item_b)
		)`,
	},
}

// Secondary lookups: a user's history and the right-hand side of a pair.
// Neither indexes an updated column, so upserts stay cheap.
var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_interaction_weights_user ON interaction_weights(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_item_similarities_item_b ON item_similarities(item_b)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to create table %s: %w", stmt.name, err)
		}
	}
	return nil
}

func (db *DB) createIndexes(ctx context.Context) error {
	for _, stmt := range indexStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
