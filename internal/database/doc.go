// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

// Package database is the DuckDB store for persisted interaction weights and
// item similarities.
//
// # Tables
//
//	interaction_weights (item_id, user_id) -> weight, ts
//	item_similarities   (item_a, item_b)   -> score, ts    with item_a < item_b
//
// # Merges
//
// MergeInteractionWeight and MergeItemSimilarity are keep-the-maximum upserts:
// a single INSERT ... ON CONFLICT DO UPDATE ... WHERE EXCLUDED.x > x statement
// per key. Replaying a message is therefore harmless and two writers racing on
// one key always leave the larger value behind. Rows are never deleted.
//
// # Queries
//
// The read methods return raw rows. Ranking, exclusion and the
// recommendation formula live in the recommend package.
//
// # Files
//
//   - database.go: connection lifecycle and pool settings
//   - database_schema.go: table and index DDL
//   - merge.go: keep-the-maximum merges
//   - queries.go: read paths used by the recommend service and state restore
//   - errors.go: error classification and close helpers
package database
