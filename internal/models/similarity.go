// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package models

import (
	"errors"
	"fmt"
)

// ErrSelfPair is returned when both sides of a pair are the same item.
var ErrSelfPair = errors.New("item pair must reference two distinct items")

// ItemPair is an unordered pair of items. Construct it with NewItemPair so that
// A < B always holds; map keys and table rows rely on that ordering.
type ItemPair struct {
	A int64
	B int64
}

// NewItemPair returns the canonical pair for x and y.
func NewItemPair(x, y int64) ItemPair {
	if x > y {
		x, y = y, x
	}
	return ItemPair{A: x, B: y}
}

// Other returns the member of the pair that is not id.
func (p ItemPair) Other(id int64) int64 {
	if p.A == id {
		return p.B
	}
	return p.A
}

func (p ItemPair) String() string {
	return fmt.Sprintf("(%d,%d)", p.A, p.B)
}

// SimilarityUpdate is an incremental score for a canonical pair, stamped with
// the timestamp of the interaction that produced it.
type SimilarityUpdate struct {
	ItemA     int64   `json:"item_a"`
	ItemB     int64   `json:"item_b"`
	Score     float64 `json:"score"`
	Timestamp int64   `json:"timestamp"`
}

// Pair returns the canonical pair of the update.
func (u SimilarityUpdate) Pair() ItemPair {
	return NewItemPair(u.ItemA, u.ItemB)
}

// Validate checks ids and the score range.
func (u SimilarityUpdate) Validate() error {
	if u.ItemA <= 0 || u.ItemB <= 0 {
		return fmt.Errorf("%w: pair (%d,%d)", ErrInvalidID, u.ItemA, u.ItemB)
	}
	if u.ItemA == u.ItemB {
		return ErrSelfPair
	}
	if u.Score < 0 {
		return fmt.Errorf("negative similarity score %v", u.Score)
	}
	return nil
}

// ItemSimilarity is a persisted similarity row.
type ItemSimilarity struct {
	ItemA     int64   `json:"item_a"`
	ItemB     int64   `json:"item_b"`
	Score     float64 `json:"score"`
	Timestamp int64   `json:"timestamp"`
}

// InteractionWeight is a persisted (item, user) weight row.
type InteractionWeight struct {
	ItemID    int64   `json:"item_id"`
	UserID    int64   `json:"user_id"`
	Weight    float64 `json:"weight"`
	Timestamp int64   `json:"timestamp"`
}

// ScoredItem is an item ranked by a recommendation query.
type ScoredItem struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}
