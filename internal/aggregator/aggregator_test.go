// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package aggregator

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/tomtom215/itemsim/internal/models"
	"github.com/tomtom215/itemsim/internal/weights"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	table, err := weights.NewTable(weights.Defaults())
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return New(table)
}

func newTestState(t *testing.T, maxUsers int) *State {
	t.Helper()
	st, err := NewState(0, maxUsers)
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	return st
}

func interaction(user, item int64, kind models.InteractionKind, ts int64) models.Interaction {
	return models.Interaction{UserID: user, ItemID: item, Kind: kind, Timestamp: ts}
}

func mustApply(t *testing.T, agg *Aggregator, st *State, in models.Interaction) (Change, []models.SimilarityUpdate) {
	t.Helper()
	change, updates, err := agg.Apply(st, in)
	if err != nil {
		t.Fatalf("Apply(%+v) failed: %v", in, err)
	}
	return change, updates
}

// assertStatesEqual compares the derived sums and matrix of two states.
func assertStatesEqual(t *testing.T, got, want *State) {
	t.Helper()
	if len(got.itemSums) != len(want.itemSums) {
		t.Fatalf("item sums len = %d, want %d", len(got.itemSums), len(want.itemSums))
	}
	for item, w := range want.itemSums {
		if !approxEqual(got.itemSums[item], w) {
			t.Errorf("ItemWeightSum(%d) = %v, want %v", item, got.itemSums[item], w)
		}
	}
	if len(got.pairSums) != len(want.pairSums) {
		t.Fatalf("pair sums len = %d, want %d", len(got.pairSums), len(want.pairSums))
	}
	for pair, m := range want.pairSums {
		if !approxEqual(got.pairSums[pair], m) {
			t.Errorf("PairMinWeightSum%v = %v, want %v", pair, got.pairSums[pair], m)
		}
	}
	if got.Stats().MatrixEntries != want.Stats().MatrixEntries {
		t.Errorf("matrix entries = %d, want %d", got.Stats().MatrixEntries, want.Stats().MatrixEntries)
	}
	for item, users := range want.matrix {
		for user, w := range users {
			if got.Weight(item, user) != w {
				t.Errorf("Weight(%d,%d) = %v, want %v", item, user, got.Weight(item, user), w)
			}
		}
	}
}

func TestApply_ViewsYieldPerfectSimilarity(t *testing.T) {
	agg := newTestAggregator(t)
	st := newTestState(t, 0)

	_, updates := mustApply(t, agg, st, interaction(1, 1, models.KindView, 100))
	if len(updates) != 0 {
		t.Fatalf("first interaction emitted %d updates, want 0", len(updates))
	}

	_, updates = mustApply(t, agg, st, interaction(1, 2, models.KindView, 200))
	if len(updates) != 1 {
		t.Fatalf("second view emitted %d updates, want 1", len(updates))
	}
	u := updates[0]
	if u.ItemA != 1 || u.ItemB != 2 {
		t.Errorf("pair = (%d,%d), want (1,2)", u.ItemA, u.ItemB)
	}
	if !approxEqual(u.Score, 1.0) {
		t.Errorf("score = %v, want 1.0", u.Score)
	}
	if u.Timestamp != 200 {
		t.Errorf("timestamp = %d, want 200", u.Timestamp)
	}
}

func TestApply_LikeAfterViewLowersScore(t *testing.T) {
	agg := newTestAggregator(t)
	st := newTestState(t, 0)

	mustApply(t, agg, st, interaction(1, 1, models.KindView, 1))
	mustApply(t, agg, st, interaction(1, 2, models.KindView, 2))
	minBefore := st.PairMinWeightSum(1, 2)

	change, updates := mustApply(t, agg, st, interaction(1, 1, models.KindLike, 3))
	if !change.Applied() {
		t.Fatal("like after view should apply")
	}
	if got := st.PairMinWeightSum(1, 2); !approxEqual(got, minBefore) {
		t.Errorf("PairMinWeightSum changed from %v to %v, want delta 0", minBefore, got)
	}
	if got := st.ItemWeightSum(1); !approxEqual(got, 1.0) {
		t.Errorf("ItemWeightSum(1) = %v, want 1.0", got)
	}
	if len(updates) != 1 {
		t.Fatalf("emitted %d updates, want 1", len(updates))
	}
	want := 0.4 / (1.0 * math.Sqrt(0.4))
	if !approxEqual(updates[0].Score, want) {
		t.Errorf("score = %v, want %v", updates[0].Score, want)
	}
	if updates[0].Score >= 1.0 {
		t.Errorf("score %v should decrease below 1.0", updates[0].Score)
	}
}

func TestApply_NoOpWhenNotGreater(t *testing.T) {
	agg := newTestAggregator(t)
	st := newTestState(t, 0)

	mustApply(t, agg, st, interaction(1, 1, models.KindLike, 1))
	mustApply(t, agg, st, interaction(1, 2, models.KindLike, 2))

	tests := []struct {
		name string
		kind models.InteractionKind
	}{
		{"same weight", models.KindLike},
		{"lower weight", models.KindView},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, updates := mustApply(t, agg, st, interaction(1, 1, tt.kind, 10))
			if change.Applied() {
				t.Error("change should not apply")
			}
			if len(updates) != 0 {
				t.Errorf("emitted %d updates, want 0", len(updates))
			}
			if got := st.ItemWeightSum(1); got != 1.0 {
				t.Errorf("ItemWeightSum(1) = %v, want 1.0", got)
			}
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	agg := newTestAggregator(t)
	once := newTestState(t, 0)
	twice := newTestState(t, 0)

	events := []models.Interaction{
		interaction(1, 1, models.KindView, 1),
		interaction(1, 2, models.KindRegister, 2),
		interaction(2, 1, models.KindLike, 3),
		interaction(2, 3, models.KindView, 4),
		interaction(1, 3, models.KindLike, 5),
	}
	for _, ev := range events {
		mustApply(t, agg, once, ev)
		mustApply(t, agg, twice, ev)
		mustApply(t, agg, twice, ev)
	}

	assertStatesEqual(t, twice, once)
}

func TestApply_OrderIndependent(t *testing.T) {
	agg := newTestAggregator(t)
	forward := newTestState(t, 0)
	reverse := newTestState(t, 0)

	events := []models.Interaction{
		interaction(1, 1, models.KindView, 1),
		interaction(1, 1, models.KindLike, 2),
		interaction(1, 2, models.KindRegister, 3),
		interaction(2, 2, models.KindView, 4),
		interaction(2, 1, models.KindRegister, 5),
		interaction(2, 2, models.KindLike, 6),
	}
	for _, ev := range events {
		mustApply(t, agg, forward, ev)
	}
	for i := len(events) - 1; i >= 0; i-- {
		mustApply(t, agg, reverse, events[i])
	}

	assertStatesEqual(t, reverse, forward)
}

func TestApply_ItemWeightSumMonotonic(t *testing.T) {
	agg := newTestAggregator(t)
	st := newTestState(t, 0)
	rng := rand.New(rand.NewPCG(7, 11))

	last := make(map[int64]float64)
	for i := 0; i < 500; i++ {
		in := interaction(rng.Int64N(20)+1, rng.Int64N(15)+1, models.AllKinds[rng.IntN(len(models.AllKinds))], int64(i))
		mustApply(t, agg, st, in)
		for item, prev := range last {
			if got := st.ItemWeightSum(item); got < prev {
				t.Fatalf("ItemWeightSum(%d) decreased from %v to %v", item, prev, got)
			}
		}
		last[in.ItemID] = st.ItemWeightSum(in.ItemID)
	}
}

func TestApply_ScoresBounded(t *testing.T) {
	// min(a,b) <= sqrt(ab) per user, so by Cauchy-Schwarz a score never
	// exceeds 1 whatever the weight scale.
	tables := []struct {
		name string
		raw  map[string]float64
	}{
		{"defaults", weights.Defaults()},
		{"weights above one", map[string]float64{"view": 3, "register": 7, "like": 20}},
	}
	for _, tt := range tables {
		t.Run(tt.name, func(t *testing.T) {
			table, err := weights.NewTable(tt.raw)
			if err != nil {
				t.Fatalf("NewTable failed: %v", err)
			}
			agg := New(table)
			st := newTestState(t, 0)
			rng := rand.New(rand.NewPCG(3, 5))

			for i := 0; i < 1000; i++ {
				in := interaction(rng.Int64N(30)+1, rng.Int64N(25)+1, models.AllKinds[rng.IntN(len(models.AllKinds))], int64(i))
				_, updates := mustApply(t, agg, st, in)
				for _, u := range updates {
					if u.Score < 0 || u.Score > 1+epsilon {
						t.Fatalf("score %v for (%d,%d) outside [0,1]", u.Score, u.ItemA, u.ItemB)
					}
					if u.ItemA >= u.ItemB {
						t.Fatalf("pair (%d,%d) not canonical", u.ItemA, u.ItemB)
					}
				}
			}
		})
	}
}

func TestApply_SymmetricPairs(t *testing.T) {
	agg := newTestAggregator(t)
	a := newTestState(t, 0)
	b := newTestState(t, 0)

	mustApply(t, agg, a, interaction(1, 5, models.KindView, 1))
	_, ua := mustApply(t, agg, a, interaction(1, 2, models.KindLike, 2))

	mustApply(t, agg, b, interaction(1, 2, models.KindLike, 1))
	_, ub := mustApply(t, agg, b, interaction(1, 5, models.KindView, 2))

	if ua[0].Pair() != ub[0].Pair() {
		t.Errorf("pairs differ: %v vs %v", ua[0].Pair(), ub[0].Pair())
	}
	if !approxEqual(ua[0].Score, ub[0].Score) {
		t.Errorf("scores differ: %v vs %v", ua[0].Score, ub[0].Score)
	}
	if a.PairMinWeightSum(5, 2) != a.PairMinWeightSum(2, 5) {
		t.Error("PairMinWeightSum should not depend on argument order")
	}
}

func TestApply_ManyItemsEmitsOnePerOtherItem(t *testing.T) {
	agg := newTestAggregator(t)
	st := newTestState(t, 0)

	for item := int64(1); item <= 5; item++ {
		mustApply(t, agg, st, interaction(9, item, models.KindView, item))
	}
	_, updates := mustApply(t, agg, st, interaction(9, 6, models.KindView, 6))
	if len(updates) != 5 {
		t.Fatalf("emitted %d updates, want 5", len(updates))
	}

	sort.Slice(updates, func(i, j int) bool { return updates[i].ItemA < updates[j].ItemA })
	for i, u := range updates {
		if u.ItemA != int64(i+1) || u.ItemB != 6 {
			t.Errorf("update %d = (%d,%d), want (%d,6)", i, u.ItemA, u.ItemB, i+1)
		}
	}
}

func TestApply_Errors(t *testing.T) {
	agg := newTestAggregator(t)
	st := newTestState(t, 0)

	tests := []struct {
		name    string
		in      models.Interaction
		wantErr error
	}{
		{"unknown kind", interaction(1, 1, models.InteractionKind(99), 1), models.ErrUnknownKind},
		{"zero user", interaction(0, 1, models.KindView, 1), models.ErrInvalidID},
		{"negative item", interaction(1, -1, models.KindView, 1), models.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := agg.Apply(st, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Apply() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if stats := st.Stats(); stats.MatrixEntries != 0 || stats.Items != 0 {
		t.Errorf("state mutated by rejected interactions: %+v", stats)
	}
}

func TestRevert_RestoresPreviousState(t *testing.T) {
	agg := newTestAggregator(t)
	st := newTestState(t, 0)
	reference := newTestState(t, 0)

	base := []models.Interaction{
		interaction(1, 1, models.KindView, 1),
		interaction(1, 2, models.KindView, 2),
		interaction(2, 2, models.KindRegister, 3),
	}
	for _, ev := range base {
		mustApply(t, agg, st, ev)
		mustApply(t, agg, reference, ev)
	}

	tests := []struct {
		name string
		in   models.Interaction
	}{
		{"weight increase", interaction(1, 1, models.KindLike, 4)},
		{"new item for user", interaction(1, 3, models.KindLike, 5)},
		{"new user", interaction(3, 9, models.KindView, 6)},
		{"no-op", interaction(1, 2, models.KindView, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, _ := mustApply(t, agg, st, tt.in)
			agg.Revert(st, change)
			assertStatesEqual(t, st, reference)
		})
	}
}

func TestRestore_MatchesLiveProcessing(t *testing.T) {
	agg := newTestAggregator(t)
	live := newTestState(t, 0)
	restored := newTestState(t, 0)

	events := []models.Interaction{
		interaction(1, 1, models.KindView, 1),
		interaction(1, 2, models.KindLike, 2),
		interaction(2, 1, models.KindRegister, 3),
		interaction(2, 2, models.KindView, 4),
		interaction(2, 3, models.KindLike, 5),
	}
	for _, ev := range events {
		mustApply(t, agg, live, ev)
	}

	// Replay the final weights in an arbitrary order.
	type entry struct {
		item, user int64
		w          float64
	}
	var entries []entry
	for item, users := range live.matrix {
		for user, w := range users {
			entries = append(entries, entry{item, user, w})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].user > entries[j].user })
	for _, e := range entries {
		if _, err := agg.Restore(restored, e.item, e.user, e.w); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
	}

	assertStatesEqual(t, restored, live)

	if _, err := agg.Restore(restored, 1, 1, 0); !errors.Is(err, weights.ErrInvalidWeight) {
		t.Errorf("Restore(weight 0) error = %v, want ErrInvalidWeight", err)
	}
	if _, err := agg.Restore(restored, 0, 1, 1); !errors.Is(err, models.ErrInvalidID) {
		t.Errorf("Restore(item 0) error = %v, want ErrInvalidID", err)
	}
}

func TestState_BoundedEviction(t *testing.T) {
	agg := newTestAggregator(t)
	st := newTestState(t, 2)

	mustApply(t, agg, st, interaction(1, 1, models.KindView, 1))
	mustApply(t, agg, st, interaction(1, 2, models.KindView, 2))
	mustApply(t, agg, st, interaction(2, 1, models.KindLike, 3))
	sum1 := st.ItemWeightSum(1)
	pair := st.PairMinWeightSum(1, 2)

	// A third user evicts user 1, the least recently active.
	mustApply(t, agg, st, interaction(3, 5, models.KindView, 4))

	stats := st.Stats()
	if stats.Users != 2 {
		t.Errorf("Users = %d, want 2", stats.Users)
	}
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
	if st.Weight(1, 1) != 0 || st.UserItems(1) != 0 {
		t.Error("evicted user's rows should be removed")
	}
	if st.ItemWeightSum(1) != sum1 {
		t.Errorf("ItemWeightSum(1) = %v, want %v after eviction", st.ItemWeightSum(1), sum1)
	}
	if st.PairMinWeightSum(1, 2) != pair {
		t.Errorf("PairMinWeightSum(1,2) = %v, want %v after eviction", st.PairMinWeightSum(1, 2), pair)
	}

	// User 2 stays resident because it was touched more recently.
	if st.Weight(1, 2) != 1.0 {
		t.Errorf("Weight(1,2) = %v, want 1.0", st.Weight(1, 2))
	}
}
