// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package wal

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/itemsim/internal/logging"
)

// GCRunner periodically runs value log GC on a journal.
//
// Every interval it asks badger to rewrite value log files whose discardable
// share exceeds Config.GCDiscardRatio, repeating until nothing is left to
// rewrite. Runs and errors are counted in Stats.
//
// Example usage:
//
//	gc := wal.NewGCRunner(journal)
//	tree.AddDataService(services.NewStartStopService("journal-gc", gc))
type GCRunner struct {
	journal  *Journal
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	stats   GCStats
}

// GCStats reports GC activity.
type GCStats struct {
	Runs    int64
	Errors  int64
	LastRun time.Time
}

// NewGCRunner creates a runner using the journal's GC interval.
func NewGCRunner(journal *Journal) *GCRunner {
	return &GCRunner{journal: journal, interval: journal.Config().GCInterval}
}

// Start begins the GC loop. Starting a running loop is a no-op.
func (g *GCRunner) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return nil
	}
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.running = true
	g.mu.Unlock()

	g.wg.Add(1)
	go g.run()

	logging.Info().Dur("interval", g.interval).Msg("Journal GC started")
	return nil
}

// Stop ends the loop and waits for an in-flight run.
func (g *GCRunner) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.cancel()
	g.running = false
	g.mu.Unlock()

	g.wg.Wait()
	logging.Info().Msg("Journal GC stopped")
}

// IsRunning reports whether the loop is active.
func (g *GCRunner) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// RunNow performs one GC pass synchronously.
func (g *GCRunner) RunNow() error {
	err := g.journal.RunGC()

	g.mu.Lock()
	g.stats.Runs++
	g.stats.LastRun = time.Now()
	if err != nil {
		g.stats.Errors++
	}
	g.mu.Unlock()

	return err
}

// Stats returns a snapshot of GC activity.
func (g *GCRunner) Stats() GCStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

func (g *GCRunner) run() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			if err := g.RunNow(); err != nil {
				logging.Error().Err(err).Msg("Journal GC failed")
			}
		}
	}
}
