// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package wal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(path string) *Config {
	cfg := DefaultConfig()
	cfg.Path = path
	cfg.SyncWrites = false
	cfg.GCInterval = time.Second
	cfg.CloseTimeout = 5 * time.Second
	return &cfg
}

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(testConfig(filepath.Join(t.TempDir(), "journal")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := j.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return j
}

type weightKeyed struct {
	item, user int64
}

func collect(t *testing.T, j *Journal) map[weightKeyed]float64 {
	t.Helper()
	out := make(map[weightKeyed]float64)
	err := j.ForEachWeight(context.Background(), func(itemID, userID int64, weight float64) error {
		out[weightKeyed{itemID, userID}] = weight
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachWeight failed: %v", err)
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"in memory without path", func(c *Config) { c.Path = ""; c.InMemory = true }, false},
		{"missing path", func(c *Config) { c.Path = "" }, true},
		{"short gc interval", func(c *Config) { c.GCInterval = time.Millisecond }, true},
		{"bad discard ratio", func(c *Config) { c.GCDiscardRatio = 1.5 }, true},
		{"tiny memtable", func(c *Config) { c.MemTableSize = 10 }, true},
		{"one compactor", func(c *Config) { c.NumCompactors = 1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var cfgErr *ConfigError
			if err != nil && !errors.As(err, &cfgErr) {
				t.Errorf("error %v should be a *ConfigError", err)
			}
		})
	}
}

func TestJournal_RecordKeepsLatest(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	if got := collect(t, j); len(got) != 0 {
		t.Fatalf("empty journal yielded %v", got)
	}

	if err := j.Record(ctx, 1, 2, 0.4, 100); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := j.Record(ctx, 1, 2, 1.0, 200); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got := collect(t, j)
	if len(got) != 1 || got[weightKeyed{1, 2}] != 1.0 {
		t.Errorf("journal = %v, want only (1,2)=1.0", got)
	}
}

func TestJournal_ForEachWeight(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	want := map[weightKeyed]float64{
		{1, 10}:  0.4,
		{1, 11}:  0.8,
		{25, 10}: 1.0,
	}
	for k, w := range want {
		if err := j.Record(ctx, k.item, k.user, w, 1); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got := collect(t, j)
	if len(got) != len(want) {
		t.Fatalf("ForEachWeight yielded %d entries, want %d", len(got), len(want))
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("weight%v = %v, want %v", k, got[k], w)
		}
	}

	n, err := j.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	stop := errors.New("stop")
	calls := 0
	err = j.ForEachWeight(ctx, func(int64, int64, float64) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("ForEachWeight with failing callback = (%v, %d calls), want stop after 1", err, calls)
	}
}

func TestJournal_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	ctx := context.Background()

	j, err := Open(testConfig(path))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := j.Record(ctx, 7, 8, 0.8, 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	j, err = Open(testConfig(path))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()

	if got := collect(t, j); got[weightKeyed{7, 8}] != 0.8 {
		t.Errorf("journal after reopen = %v, want (7,8)=0.8", got)
	}
}

func TestJournal_ClosedErrors(t *testing.T) {
	j, err := Open(testConfig(filepath.Join(t.TempDir(), "journal")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	if err := j.Record(context.Background(), 1, 1, 1, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Record after Close = %v, want ErrClosed", err)
	}
	if err := j.RunGC(); !errors.Is(err, ErrClosed) {
		t.Errorf("RunGC after Close = %v, want ErrClosed", err)
	}
}

func TestJournal_InMemory(t *testing.T) {
	cfg := testConfig("")
	cfg.InMemory = true
	j, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open in memory failed: %v", err)
	}
	defer j.Close()

	if err := j.Record(context.Background(), 1, 1, 0.4, 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := j.RunGC(); err != nil {
		t.Errorf("RunGC in memory = %v, want nil", err)
	}
}

func TestParseWeightKey(t *testing.T) {
	item, user, err := parseWeightKey(weightKey(123, 456))
	if err != nil {
		t.Fatalf("parseWeightKey failed: %v", err)
	}
	if item != 123 || user != 456 {
		t.Errorf("parseWeightKey = (%d,%d), want (123,456)", item, user)
	}

	for _, bad := range []string{"w/abc/1", "w/1", "w/1/x"} {
		if _, _, err := parseWeightKey([]byte(bad)); err == nil {
			t.Errorf("parseWeightKey(%q) should fail", bad)
		}
	}
}

func TestGCRunner_StartStop(t *testing.T) {
	j := openTestJournal(t)
	gc := NewGCRunner(j)

	if err := gc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := gc.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if !gc.IsRunning() {
		t.Error("IsRunning = false after Start")
	}

	if err := gc.RunNow(); err != nil {
		t.Errorf("RunNow failed: %v", err)
	}
	if gc.Stats().Runs != 1 {
		t.Errorf("Runs = %d, want 1", gc.Stats().Runs)
	}

	gc.Stop()
	gc.Stop()
	if gc.IsRunning() {
		t.Error("IsRunning = true after Stop")
	}
}
