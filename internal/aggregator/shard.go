// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/itemsim/internal/logging"
)

var (
	// ErrShardSetClosed is returned by Do after Close.
	ErrShardSetClosed = errors.New("aggregator shard set closed")

	// ErrShardSetRunning is returned by Restore and ForEachScore while shard
	// loops are active.
	ErrShardSetRunning = errors.New("aggregator shard set is running")

	// ErrShardPanic wraps a panic raised inside a shard function.
	ErrShardPanic = errors.New("panic in shard function")
)

// ShardConfig sizes a ShardSet.
type ShardConfig struct {
	// Shards is the number of independent states. 1 gives exact similarity.
	Shards int
	// MaxUsersPerShard bounds each state; 0 is unbounded.
	MaxUsersPerShard int
}

// ShardSet owns one State per shard and serializes all access to each State
// through a dedicated goroutine.
//
// Work is routed by user id, so all of a user's interactions land on the same
// State. The lifecycle is:
//
//  1. NewShardSet allocates the states
//  2. Restore and ForEachScore rebuild and inspect them before any loop runs
//  3. Run starts one goroutine per shard and blocks until ctx is canceled;
//     it may be called again after it returns
//  4. Close fails every later Do with ErrShardSetClosed
//
// A panic inside a Do function is recovered on the shard goroutine and
// returned as ErrShardPanic; the shard keeps serving.
type ShardSet struct {
	shards []*shard

	running   atomic.Bool
	closed    chan struct{}
	closeOnce sync.Once
}

type shard struct {
	state *State
	reqs  chan request
}

type request struct {
	fn   func(*State) error
	done chan error
}

// NewShardSet creates the shards. Call Run to start processing.
func NewShardSet(cfg ShardConfig) (*ShardSet, error) {
	if cfg.Shards < 1 {
		return nil, fmt.Errorf("shard count must be at least 1, got %d", cfg.Shards)
	}
	if cfg.MaxUsersPerShard < 0 {
		return nil, fmt.Errorf("max users per shard must not be negative, got %d", cfg.MaxUsersPerShard)
	}

	set := &ShardSet{
		shards: make([]*shard, cfg.Shards),
		closed: make(chan struct{}),
	}
	for i := range set.shards {
		st, err := NewState(i, cfg.MaxUsersPerShard)
		if err != nil {
			return nil, err
		}
		set.shards[i] = &shard{state: st, reqs: make(chan request)}
	}
	return set, nil
}

// Len returns the number of shards.
func (s *ShardSet) Len() int {
	return len(s.shards)
}

// ShardFor returns the shard index that owns userID.
func (s *ShardSet) ShardFor(userID int64) int {
	return int(uint64(userID) % uint64(len(s.shards)))
}

// Run processes requests until ctx is canceled. It may be called again after
// it returns; state survives restarts.
func (s *ShardSet) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrShardSetRunning
	}
	defer s.running.Store(false)

	g, gctx := errgroup.WithContext(ctx)
	for _, sh := range s.shards {
		g.Go(func() error {
			sh.loop(gctx, s.closed)
			return nil
		})
	}

	logging.Info().Int("shards", len(s.shards)).Msg("Aggregator shards started")
	err := g.Wait()
	logging.Info().Msg("Aggregator shards stopped")
	return err
}

// Do runs fn on the goroutine that owns userID's shard and returns its error.
// Once the shard has accepted fn, Do waits for it to finish even if ctx is
// canceled, so a caller never observes a half-applied change.
func (s *ShardSet) Do(ctx context.Context, userID int64, fn func(*State) error) error {
	return s.DoShard(ctx, s.ShardFor(userID), fn)
}

// DoShard runs fn on shard idx.
func (s *ShardSet) DoShard(ctx context.Context, idx int, fn func(*State) error) error {
	if idx < 0 || idx >= len(s.shards) {
		return fmt.Errorf("shard %d out of range [0,%d)", idx, len(s.shards))
	}
	req := request{fn: fn, done: make(chan error, 1)}

	select {
	case <-s.closed:
		return ErrShardSetClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.shards[idx].reqs <- req:
	}

	return <-req.done
}

// Stats collects StateStats from every shard on its owning goroutine.
func (s *ShardSet) Stats(ctx context.Context) ([]StateStats, error) {
	stats := make([]StateStats, len(s.shards))
	for i := range s.shards {
		err := s.DoShard(ctx, i, func(st *State) error {
			stats[i] = st.Stats()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// Close makes further Do calls fail. Running loops exit.
func (s *ShardSet) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

func (sh *shard) loop(ctx context.Context, closed <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case req := <-sh.reqs:
			req.done <- sh.exec(req.fn)
		}
	}
}

func (sh *shard) exec(fn func(*State) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Int("shard", sh.state.shard).Interface("panic", r).Msg("Recovered panic in aggregator shard")
			err = fmt.Errorf("%w: %v", ErrShardPanic, r)
		}
	}()
	return fn(sh.state)
}
