// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestRunnerService_Serve(t *testing.T) {
	boom := errors.New("subscribe failed")
	tests := []struct {
		name    string
		run     runnerFunc
		cancel  bool
		wantIs  error
		wantErr bool
	}{
		{
			name:   "canceled",
			run:    func(ctx context.Context) error { <-ctx.Done(); return nil },
			cancel: true,
			wantIs: context.Canceled,
		},
		{name: "run error", run: func(context.Context) error { return boom }, wantIs: boom},
		{name: "early return", run: func(context.Context) error { return nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRunnerService("event-router", tt.run)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			err := svc.Serve(ctx)
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("Serve = %v, want %v", err, tt.wantIs)
			}
			if tt.wantErr && err == nil {
				t.Error("Serve = nil, want an error")
			}
		})
	}
	if got := NewRunnerService("aggregator-shards", nil).String(); got != "aggregator-shards" {
		t.Errorf("String() = %q", got)
	}
}

type fakeStartStopper struct {
	startErr error
	running  atomic.Bool
	stops    atomic.Int32
}

func (f *fakeStartStopper) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.running.Store(true)
	return nil
}

func (f *fakeStartStopper) Stop() {
	f.stops.Add(1)
	f.running.Store(false)
}

func (f *fakeStartStopper) IsRunning() bool { return f.running.Load() }

func TestStartStopService_Serve(t *testing.T) {
	t.Run("stops on cancel", func(t *testing.T) {
		comp := &fakeStartStopper{}
		svc := NewStartStopService("journal-gc", comp)
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		deadline := time.Now().Add(time.Second)
		for !comp.IsRunning() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		cancel()

		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
		if comp.stops.Load() != 1 || comp.IsRunning() {
			t.Errorf("stops = %d running = %v, want stopped once", comp.stops.Load(), comp.IsRunning())
		}
	})

	t.Run("start failure", func(t *testing.T) {
		boom := errors.New("journal closed")
		svc := NewStartStopService("journal-gc", &fakeStartStopper{startErr: boom})
		if err := svc.Serve(context.Background()); !errors.Is(err, boom) {
			t.Errorf("Serve = %v, want %v", err, boom)
		}
	})
}

func TestTickerService_Serve(t *testing.T) {
	var calls atomic.Int32
	svc := NewTickerService("state-metrics", 5*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("first tick fails")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	if calls.Load() < 3 {
		t.Errorf("calls = %d, want the service to keep ticking after an error", calls.Load())
	}
	if NewTickerService("x", 0, nil).interval != 15*time.Second {
		t.Error("non-positive interval not defaulted")
	}
}
