// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

/*
Package models defines the data structures shared across Itemsim.

Key Components:

  - Interaction: a single user action on a catalog item (view, register, like)
  - InteractionKind: the closed set of action kinds, encoded as upper-case strings
  - ItemPair: an unordered item pair stored in canonical order (lower id first)
  - SimilarityUpdate: an incremental similarity score emitted by the aggregator
  - ItemSimilarity: a persisted similarity row with its timestamp
  - ScoredItem: an item returned by the recommendation queries
  - APIResponse: the standard HTTP response envelope

Timestamps are epoch milliseconds throughout. Item and user identifiers are
positive int64 values; zero and negative ids are rejected by Validate.
*/
package models
