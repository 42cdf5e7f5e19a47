// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package aggregator

import (
	"fmt"
	"math"

	"github.com/tomtom215/itemsim/internal/models"
	"github.com/tomtom215/itemsim/internal/weights"
)

// Aggregator applies interactions to a State.
type Aggregator struct {
	weights weights.Resolver
}

// New creates an Aggregator that resolves kinds through resolver.
func New(resolver weights.Resolver) *Aggregator {
	return &Aggregator{weights: resolver}
}

// Change records a single weight increase so it can be reverted.
// The zero Change means nothing was modified.
type Change struct {
	ItemID    int64
	UserID    int64
	OldWeight float64
	NewWeight float64

	newItem bool
	pairs   []pairChange
}

type pairChange struct {
	pair    models.ItemPair
	delta   float64
	created bool
}

// Applied reports whether the change modified state.
func (c Change) Applied() bool {
	return c.NewWeight > c.OldWeight
}

// Apply processes one interaction against st and returns the resulting
// similarity updates. A weight that does not exceed the stored one leaves the
// state untouched and returns no updates, as does a user's first item.
// Invalid interactions and unknown kinds return an error without mutating st.
func (a *Aggregator) Apply(st *State, in models.Interaction) (Change, []models.SimilarityUpdate, error) {
	if err := in.Validate(); err != nil {
		return Change{}, nil, err
	}
	w, err := a.weights.WeightOf(in.Kind)
	if err != nil {
		return Change{}, nil, err
	}

	var updates []models.SimilarityUpdate
	change := st.apply(in.ItemID, in.UserID, w, func(pair models.ItemPair, score float64) {
		updates = append(updates, models.SimilarityUpdate{
			ItemA:     pair.A,
			ItemB:     pair.B,
			Score:     score,
			Timestamp: in.Timestamp,
		})
	})
	return change, updates, nil
}

// Restore replays a known weight into st without producing updates. It is
// used to rebuild state at startup from the journal or the durable store.
func (a *Aggregator) Restore(st *State, itemID, userID int64, weight float64) (Change, error) {
	if itemID <= 0 || userID <= 0 {
		return Change{}, fmt.Errorf("%w: item %d user %d", models.ErrInvalidID, itemID, userID)
	}
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return Change{}, fmt.Errorf("%w: %v", weights.ErrInvalidWeight, weight)
	}
	return st.apply(itemID, userID, weight, nil), nil
}

// Revert undoes a change returned by Apply or Restore. It must be called on
// the same State before any later change for the same user.
func (a *Aggregator) Revert(st *State, c Change) {
	st.revert(c)
}

// apply is the incremental update. emit, when non-nil, receives each pair
// whose score changed.
func (s *State) apply(itemID, userID int64, w float64, emit func(models.ItemPair, float64)) Change {
	s.touch(userID)

	old := s.matrix[itemID][userID]
	if w <= old {
		return Change{}
	}

	change := Change{ItemID: itemID, UserID: userID, OldWeight: old, NewWeight: w}

	s.setWeight(itemID, userID, w)
	if sum, ok := s.itemSums[itemID]; ok {
		s.itemSums[itemID] = sum + (w - old)
	} else {
		s.itemSums[itemID] = w
		change.newItem = true
	}
	sumItem := s.itemSums[itemID]

	for otherID := range s.userItems[userID] {
		if otherID == itemID {
			continue
		}
		other := s.matrix[otherID][userID]
		if other == 0 {
			continue
		}

		pair := models.NewItemPair(itemID, otherID)
		delta := math.Min(w, other) - math.Min(old, other)
		pc := pairChange{pair: pair, delta: delta}
		if sum, ok := s.pairSums[pair]; ok {
			s.pairSums[pair] = sum + delta
		} else {
			s.pairSums[pair] = math.Min(w, other)
			pc.delta = math.Min(w, other)
			pc.created = true
		}
		change.pairs = append(change.pairs, pc)

		if emit != nil {
			emit(pair, score(s.pairSums[pair], sumItem, s.itemSums[otherID]))
		}
	}

	return change
}

func (s *State) revert(c Change) {
	if !c.Applied() {
		return
	}

	if c.OldWeight == 0 {
		s.clearWeight(c.ItemID, c.UserID)
	} else {
		s.setWeight(c.ItemID, c.UserID, c.OldWeight)
	}

	if c.newItem {
		delete(s.itemSums, c.ItemID)
	} else {
		s.itemSums[c.ItemID] -= c.NewWeight - c.OldWeight
	}

	for _, pc := range c.pairs {
		if pc.created {
			delete(s.pairSums, pc.pair)
			continue
		}
		s.pairSums[pc.pair] -= pc.delta
	}
}

func (s *State) forEachScore(fn func(models.ItemPair, float64) error) error {
	for pair, minSum := range s.pairSums {
		if err := fn(pair, score(minSum, s.itemSums[pair.A], s.itemSums[pair.B])); err != nil {
			return err
		}
	}
	return nil
}

func score(minSum, sumA, sumB float64) float64 {
	return minSum / (math.Sqrt(sumA) * math.Sqrt(sumB))
}
