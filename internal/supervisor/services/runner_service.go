// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package services

import (
	"context"
	"fmt"
)

// Runner blocks in Run until ctx is canceled. Satisfied by
// *eventprocessor.Router and *aggregator.ShardSet.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerService supervises a Runner under suture.
//
// Run is expected to block for the life of the context. The service:
//
//  1. Calls Run with the supervisor's context
//  2. Returns ctx.Err() when Run exits after cancellation
//  3. Returns an error when Run exits early, which suture counts as a
//     failure and restarts with backoff
//
// Example usage:
//
//	tree.AddDataService(services.NewRunnerService("aggregator-shards", shards))
//	tree.AddMessagingService(services.NewRunnerService("event-router", router))
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService wraps runner under name.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service. A Run that returns before cancellation
// is a failure, so suture restarts it.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", s.name, err)
	}
	return fmt.Errorf("%s stopped unexpectedly", s.name)
}

func (s *RunnerService) String() string {
	return s.name
}
