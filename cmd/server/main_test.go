// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/itemsim/internal/aggregator"
	"github.com/tomtom215/itemsim/internal/config"
	"github.com/tomtom215/itemsim/internal/database"
	"github.com/tomtom215/itemsim/internal/models"
	"github.com/tomtom215/itemsim/internal/wal"
	"github.com/tomtom215/itemsim/internal/weights"
)

func TestMessagingEnabled(t *testing.T) {
	tests := []struct {
		name       string
		aggregator bool
		ingest     bool
		want       bool
	}{
		{"query only", false, false, false},
		{"aggregator", true, false, true},
		{"ingest", false, true, true},
		{"both", true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Aggregator.Enabled = tt.aggregator
			cfg.Database.IngestEnabled = tt.ingest
			if got := messagingEnabled(cfg); got != tt.want {
				t.Errorf("messagingEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInitMessaging_QueryOnly(t *testing.T) {
	cfg := config.Defaults()
	cfg.Aggregator.Enabled = false
	cfg.Database.IngestEnabled = false

	comps, err := InitMessaging(context.Background(), cfg, MessagingDeps{})
	if err != nil || comps != nil {
		t.Errorf("InitMessaging() = %v, %v, want nil, nil", comps, err)
	}
}

func TestJournalConfig(t *testing.T) {
	defaults := wal.DefaultConfig()

	got := journalConfig(&config.JournalConfig{})
	if got.Path != defaults.Path || got.GCInterval != defaults.GCInterval || got.NumCompactors != defaults.NumCompactors {
		t.Errorf("journalConfig(zero) = %+v, want wal defaults", got)
	}
	if got.SyncWrites {
		t.Error("SyncWrites = true for a zero section, want false")
	}

	got = journalConfig(&config.JournalConfig{
		Path:           "/tmp/j",
		SyncWrites:     true,
		GCInterval:     time.Minute,
		GCDiscardRatio: 0.7,
		NumCompactors:  4,
	})
	if got.Path != "/tmp/j" || !got.SyncWrites || got.GCInterval != time.Minute || got.GCDiscardRatio != 0.7 || got.NumCompactors != 4 {
		t.Errorf("journalConfig(set) = %+v", got)
	}
}

func TestRecommendConfig(t *testing.T) {
	got := recommendConfig(&config.APIConfig{MaxResults: 20, MaxBatchIDs: 50, CacheTTL: 0})
	if got.MaxResults != 20 || got.MaxBatchIDs != 50 {
		t.Errorf("limits = %d/%d, want 20/50", got.MaxResults, got.MaxBatchIDs)
	}
	if got.CacheEnabled() {
		t.Error("cache enabled with cache_ttl 0")
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestRestoreSource(t *testing.T) {
	tests := []struct {
		strategy string
		wantErr  bool
		wantNil  bool
	}{
		{config.RestoreNone, false, true},
		{"", false, true},
		{config.RestoreStore, false, false},
		{config.RestoreJournal, true, true},
		{"snapshot", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Aggregator.Restore = tt.strategy
			src, err := restoreSource(cfg, &database.DB{}, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("restoreSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (src == nil) != tt.wantNil {
				t.Errorf("restoreSource() = %v, want nil %v", src, tt.wantNil)
			}
		})
	}
}

func TestRestoreState_FromStore(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	defer db.Close()

	for _, w := range []struct{ item, user int64 }{{1, 1}, {2, 1}} {
		if _, err := db.MergeInteractionWeight(ctx, w.item, w.user, 1.0, 1); err != nil {
			t.Fatalf("MergeInteractionWeight: %v", err)
		}
	}

	table, err := weights.NewTable(weights.Defaults())
	if err != nil {
		t.Fatalf("weights.NewTable: %v", err)
	}
	shards, err := aggregator.NewShardSet(aggregator.ShardConfig{Shards: 1})
	if err != nil {
		t.Fatalf("NewShardSet: %v", err)
	}
	defer shards.Close()

	cfg := config.Defaults()
	cfg.Aggregator.Restore = config.RestoreStore
	if err := RestoreState(ctx, cfg, shards, aggregator.New(table), db, nil); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = shards.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	var pairSum float64
	if err := shards.Do(ctx, 1, func(st *aggregator.State) error {
		pairSum = st.PairMinWeightSum(1, 2)
		return nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if pairSum != 1.0 {
		t.Errorf("PairMinWeightSum(1, 2) = %v, want 1", pairSum)
	}

	// Both weights reached the store without an aggregated update, so the
	// score exists only because the restore reconciled it.
	row, found, err := db.GetItemSimilarity(ctx, 1, 2)
	if err != nil {
		t.Fatalf("GetItemSimilarity: %v", err)
	}
	if !found || row.Score != 1.0 {
		t.Errorf("similarity(1, 2) = %+v, found %v; want score 1", row, found)
	}
}

type fakeScoreMerger struct {
	fail    error
	batches []int
	scores  map[models.ItemPair]float64
}

func (m *fakeScoreMerger) MergeItemSimilarities(_ context.Context, updates []models.SimilarityUpdate) (int, error) {
	if m.fail != nil {
		return 0, m.fail
	}
	m.batches = append(m.batches, len(updates))
	for _, u := range updates {
		m.scores[models.NewItemPair(u.ItemA, u.ItemB)] = u.Score
	}
	return len(updates), nil
}

type sliceWeightSource [][3]float64

func (s sliceWeightSource) ForEachWeight(_ context.Context, fn func(itemID, userID int64, weight float64) error) error {
	for _, e := range s {
		if err := fn(int64(e[0]), int64(e[1]), e[2]); err != nil {
			return err
		}
	}
	return nil
}

func TestReconcileScores(t *testing.T) {
	table, err := weights.NewTable(weights.Defaults())
	if err != nil {
		t.Fatalf("weights.NewTable: %v", err)
	}

	// One user with 33 items forms 528 pairs, which takes two batches.
	var src sliceWeightSource
	for item := 1; item <= 33; item++ {
		src = append(src, [3]float64{float64(item), 1, 1.0})
	}

	tests := []struct {
		name        string
		fail        error
		wantBatches []int
		wantErr     bool
	}{
		{"batched", nil, []int{500, 28}, false},
		{"store failure", errors.New("database is locked"), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shards, err := aggregator.NewShardSet(aggregator.ShardConfig{Shards: 1})
			if err != nil {
				t.Fatalf("NewShardSet: %v", err)
			}
			defer shards.Close()
			if _, err := shards.Restore(context.Background(), aggregator.New(table), src); err != nil {
				t.Fatalf("Restore: %v", err)
			}

			m := &fakeScoreMerger{fail: tt.fail, scores: make(map[models.ItemPair]float64)}
			emitted, applied, err := reconcileScores(context.Background(), shards, m, 1)
			if (err != nil) != tt.wantErr {
				t.Fatalf("reconcileScores() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if emitted != 528 || applied != 528 {
				t.Errorf("reconcileScores() = %d emitted, %d applied; want 528, 528", emitted, applied)
			}
			if len(m.batches) != len(tt.wantBatches) {
				t.Fatalf("batches = %v, want %v", m.batches, tt.wantBatches)
			}
			for i, n := range tt.wantBatches {
				if m.batches[i] != n {
					t.Errorf("batch %d size = %d, want %d", i, m.batches[i], n)
				}
			}
			// Every item has S = 1 and every pair M = 1.
			if got := m.scores[models.NewItemPair(4, 17)]; got != 1.0 {
				t.Errorf("score(4, 17) = %v, want 1", got)
			}
		})
	}
}
