// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package recommend

import (
	"sort"

	"github.com/tomtom215/itemsim/internal/models"
)

type similarCandidate struct {
	itemID int64
	score  float64
	ts     int64
}

// rankSimilar orders by score desc, timestamp desc, then item id asc. A
// self row or an excluded item never appears.
func rankSimilar(itemID int64, rows []models.ItemSimilarity, exclude map[int64]struct{}, limit int) []models.ScoredItem {
	candidates := make([]similarCandidate, 0, len(rows))
	for _, r := range rows {
		var other int64
		switch itemID {
		case r.ItemA:
			other = r.ItemB
		case r.ItemB:
			other = r.ItemA
		default:
			continue
		}
		if other == itemID {
			continue
		}
		if _, skip := exclude[other]; skip {
			continue
		}
		candidates = append(candidates, similarCandidate{itemID: other, score: r.Score, ts: r.Timestamp})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.ts != b.ts {
			return a.ts > b.ts
		}
		return a.itemID < b.itemID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]models.ScoredItem, len(candidates))
	for i, c := range candidates {
		out[i] = models.ScoredItem{ItemID: c.itemID, Score: c.score}
	}
	return out
}

// scoreCandidates accumulates weight(e) * sim(e, c) for every row joining a
// history item e to a non-history item c, then ranks by score desc and item
// id asc.
func scoreCandidates(history map[int64]float64, rows []models.ItemSimilarity, limit int) []models.ScoredItem {
	scores := make(map[int64]float64)
	for _, r := range rows {
		wa, aSeen := history[r.ItemA]
		wb, bSeen := history[r.ItemB]
		switch {
		case aSeen && !bSeen:
			scores[r.ItemB] += wa * r.Score
		case bSeen && !aSeen:
			scores[r.ItemA] += wb * r.Score
		}
	}

	out := make([]models.ScoredItem, 0, len(scores))
	for id, score := range scores {
		out = append(out, models.ScoredItem{ItemID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemID < out[j].ItemID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
