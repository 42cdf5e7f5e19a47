// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package aggregator

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tomtom215/itemsim/internal/metrics"
	"github.com/tomtom215/itemsim/internal/models"
)

// State is the similarity state of one shard. It is not safe for concurrent
// use; a ShardSet hands it to exactly one goroutine.
type State struct {
	shard int

	// matrix holds item -> user -> weight.
	matrix map[int64]map[int64]float64
	// userItems indexes the items each user touched with nonzero weight.
	userItems map[int64]map[int64]struct{}

	itemSums map[int64]float64
	pairSums map[models.ItemPair]float64

	// recency is nil when the shard is unbounded.
	recency   *lru.Cache[int64, struct{}]
	evictions uint64
}

// StateStats is a point-in-time summary of a State.
type StateStats struct {
	Shard         int    `json:"shard"`
	Users         int    `json:"users"`
	Items         int    `json:"items"`
	Pairs         int    `json:"pairs"`
	MatrixEntries int    `json:"matrix_entries"`
	Evictions     uint64 `json:"evictions"`
}

// NewState creates an empty State. When maxUsers is positive the state keeps
// at most that many users' rows, evicting the least recently active user.
func NewState(shard, maxUsers int) (*State, error) {
	s := &State{
		shard:     shard,
		matrix:    make(map[int64]map[int64]float64),
		userItems: make(map[int64]map[int64]struct{}),
		itemSums:  make(map[int64]float64),
		pairSums:  make(map[models.ItemPair]float64),
	}

	if maxUsers > 0 {
		cache, err := lru.NewWithEvict[int64, struct{}](maxUsers, func(userID int64, _ struct{}) {
			s.evictUser(userID)
		})
		if err != nil {
			return nil, fmt.Errorf("create user recency cache: %w", err)
		}
		s.recency = cache
	}

	return s, nil
}

// Shard returns the shard index this state belongs to.
func (s *State) Shard() int {
	return s.shard
}

// Weight returns the stored weight for (item, user), or 0.
func (s *State) Weight(itemID, userID int64) float64 {
	return s.matrix[itemID][userID]
}

// ItemWeightSum returns S(item), or 0 for an unseen item.
func (s *State) ItemWeightSum(itemID int64) float64 {
	return s.itemSums[itemID]
}

// PairMinWeightSum returns M(a,b) in either argument order.
func (s *State) PairMinWeightSum(a, b int64) float64 {
	return s.pairSums[models.NewItemPair(a, b)]
}

// UserItems returns the number of items the user has nonzero weight on.
func (s *State) UserItems(userID int64) int {
	return len(s.userItems[userID])
}

// Stats summarizes the state.
func (s *State) Stats() StateStats {
	entries := 0
	for _, users := range s.matrix {
		entries += len(users)
	}
	return StateStats{
		Shard:         s.shard,
		Users:         len(s.userItems),
		Items:         len(s.itemSums),
		Pairs:         len(s.pairSums),
		MatrixEntries: entries,
		Evictions:     s.evictions,
	}
}

// touch records activity for userID, which may evict another user.
func (s *State) touch(userID int64) {
	if s.recency != nil {
		s.recency.Add(userID, struct{}{})
	}
}

// evictUser drops the user's rows. Item and pair sums keep the user's
// contributions, so scores involving those items stay as they were.
func (s *State) evictUser(userID int64) {
	for itemID := range s.userItems[userID] {
		users := s.matrix[itemID]
		delete(users, userID)
		if len(users) == 0 {
			delete(s.matrix, itemID)
		}
	}
	delete(s.userItems, userID)
	s.evictions++
	metrics.AggregatorEvictions.Inc()
}

func (s *State) setWeight(itemID, userID int64, w float64) {
	users, ok := s.matrix[itemID]
	if !ok {
		users = make(map[int64]float64)
		s.matrix[itemID] = users
	}
	users[userID] = w

	items, ok := s.userItems[userID]
	if !ok {
		items = make(map[int64]struct{})
		s.userItems[userID] = items
	}
	items[itemID] = struct{}{}
}

func (s *State) clearWeight(itemID, userID int64) {
	if users, ok := s.matrix[itemID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(s.matrix, itemID)
		}
	}
	if items, ok := s.userItems[userID]; ok {
		delete(items, itemID)
		if len(items) == 0 {
			delete(s.userItems, userID)
		}
	}
}
