// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

// Package recommend answers read-only queries over persisted similarities.
//
// # Queries
//
//   - InteractionTotals: summed persisted weight per item, 0 for unknown ids
//   - SimilarItems: neighbours of one item, best first, optionally excluding
//     what a given user already touched
//   - RecommendationsForUser: candidates scored by the user's history
//
// For a user with history E (item -> weight) the recommendation score of a
// candidate c outside E is
//
//	score(c) = sum over e in E of weight(e) * sim(e, c)
//
// Results are ordered by score descending with ties broken by lower item id.
// SimilarItems breaks score ties by the more recent similarity first.
//
// Unknown ids, empty histories and non-positive limits give empty results,
// never errors. Limits above Config.MaxResults are clamped.
//
// # Caching
//
// Ranked results are held in a ristretto cache for Config.CacheTTL. The store
// is eventually consistent with the stream anyway, so a short TTL only widens
// a window that already exists. Entries are never dropped early: a merged
// score reaches readers within one TTL.
//
// # Usage
//
//	svc, err := recommend.NewService(recommend.DefaultConfig(), db, logging.Logger())
//	items, err := svc.RecommendationsForUser(ctx, userID, 10)
package recommend
