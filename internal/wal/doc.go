// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

/*
Package wal provides the aggregator's durable weight journal on BadgerDB.

Every effective (item, user) weight increase is written to the journal before
the interaction that caused it is acknowledged. On startup the journal is
replayed into the aggregator shards, which rebuilds the item and pair sums
exactly: the sums depend only on the final weights, not on the order they
arrived in.

Key layout:

	w/<item_id>/<user_id>  ->  {"weight": 0.8, "updated_at": 1700000000000}

A rejected downstream publish rolls the entry back to its previous weight
(or deletes it when the pair was new), keeping the journal and the in-memory
state in step.

The GC runner periodically reclaims value log space:

	journal, err := wal.Open(cfg)
	gc := wal.NewGCRunner(journal)
	gc.Start(ctx)
	defer gc.Stop()
*/
package wal
