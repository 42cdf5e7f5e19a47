// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package services

import (
	"context"
	"fmt"
)

// StartStopper starts a background loop and stops it, waiting for the loop
// to exit. Satisfied by *wal.GCRunner.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// StartStopService adapts a StartStopper to suture.
//
// Components with their own background loop expose Start and Stop rather
// than a blocking Serve. The service:
//
//  1. Calls Start and fails if it errors
//  2. Blocks until the context is canceled
//  3. Calls Stop, which waits for the loop to exit
//
// Example usage:
//
//	gc := wal.NewGCRunner(journal)
//	tree.AddDataService(services.NewStartStopService("journal-gc", gc))
type StartStopService struct {
	component StartStopper
	name      string
}

// NewStartStopService wraps component under name.
func NewStartStopService(name string, component StartStopper) *StartStopService {
	return &StartStopService{component: component, name: name}
}

// Serve implements suture.Service.
func (s *StartStopService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}
	<-ctx.Done()
	s.component.Stop()
	return ctx.Err()
}

func (s *StartStopService) String() string {
	return s.name
}
