// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

/*
Package aggregator maintains incremental item-to-item similarity state.

For every (item, user) pair the aggregator keeps the largest interaction
weight ever observed. From those weights it derives, incrementally:

  - S(i): the sum of item i's weights across users
  - M(i,j): the sum over users who touched both items of min(w_i, w_j)

and scores a pair as M(i,j) / (sqrt(S(i)) * sqrt(S(j))).

When a user's weight on an item grows from w_old to w, only the pairs formed
with the other items that user touched change, so an update costs O(k) in the
size of the user's history. Weights never decrease, which makes replaying an
interaction a no-op and makes the final state independent of arrival order.

State is single-writer. A ShardSet runs one goroutine per shard, each owning
one State, and routes work by user id:

	shards, _ := aggregator.NewShardSet(aggregator.ShardConfig{Shards: 1})
	go shards.Run(ctx)

	err := shards.Do(ctx, userID, func(st *aggregator.State) error {
	    change, updates, err := agg.Apply(st, interaction)
	    ...
	})

With one shard the scores are exact. With several shards each shard sees a
disjoint set of users and emits partial scores; the persistence layer keeps
the maximum per pair.
*/
package aggregator
