// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// mockService fails maxFails times, then runs until canceled. With
// ignoreCancel it keeps running past cancellation for hang seconds.
type mockService struct {
	name         string
	maxFails     int32
	ignoreCancel bool
	hang         time.Duration

	starts   atomic.Int32
	stops    atomic.Int32
	failures atomic.Int32
	started  chan struct{}
}

func newMockService(name string) *mockService {
	return &mockService{name: name, started: make(chan struct{}, 16)}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	defer m.stops.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}

	if m.failures.Load() < m.maxFails {
		m.failures.Add(1)
		return errors.New("simulated failure")
	}

	<-ctx.Done()
	if m.ignoreCancel {
		time.Sleep(m.hang)
	}
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func (m *mockService) waitStarted(d time.Duration) bool {
	select {
	case <-m.started:
		return true
	case <-time.After(d):
		return false
	}
}
