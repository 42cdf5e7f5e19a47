// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package services

import (
	"context"
	"time"

	"github.com/tomtom215/itemsim/internal/logging"
)

// TickerService calls fn once at start and then every interval until the
// context is canceled.
//
// Errors from fn are logged at warn level and the next tick proceeds. They
// never stop the service.
//
// Example usage:
//
//	svc := services.NewTickerService("state-metrics", 15*time.Second, collect)
//	tree.AddDataService(svc)
type TickerService struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
}

// NewTickerService creates the service. A non-positive interval becomes 15s.
func NewTickerService(name string, interval time.Duration, fn func(ctx context.Context) error) *TickerService {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &TickerService{name: name, interval: interval, fn: fn}
}

// Serve implements suture.Service.
func (s *TickerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *TickerService) tick(ctx context.Context) {
	if err := s.fn(ctx); err != nil && ctx.Err() == nil {
		logging.Warn().Err(err).Str("service", s.name).Msg("Periodic task failed")
	}
}

func (s *TickerService) String() string {
	return s.name
}
