// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package main

import (
	"context"

	"github.com/tomtom215/itemsim/internal/aggregator"
	"github.com/tomtom215/itemsim/internal/config"
	"github.com/tomtom215/itemsim/internal/database"
	"github.com/tomtom215/itemsim/internal/eventprocessor"
	"github.com/tomtom215/itemsim/internal/logging"
	"github.com/tomtom215/itemsim/internal/wal"
	"github.com/tomtom215/itemsim/internal/weights"
)

// messagingEnabled reports whether any JetStream consumer is configured.
func messagingEnabled(cfg *config.Config) bool {
	return cfg.Aggregator.Enabled || cfg.Database.IngestEnabled
}

// MessagingDeps are the already-initialized components the consumers drive.
type MessagingDeps struct {
	DB         *database.DB
	Shards     *aggregator.ShardSet
	Aggregator *aggregator.Aggregator
	Table      *weights.Table
	Journal    *wal.Journal
	Health     *eventprocessor.HealthChecker
}

// InitMessaging assembles the JetStream layer. It returns nil, nil when no
// consumer is enabled, in which case the service only answers queries.
func InitMessaging(ctx context.Context, cfg *config.Config, deps MessagingDeps) (*eventprocessor.Components, error) {
	if !messagingEnabled(cfg) {
		logging.Info().Msg("Aggregator and ingest disabled, running query-only")
		return nil, nil
	}

	d := eventprocessor.Dependencies{
		Store:      deps.DB,
		Shards:     deps.Shards,
		Aggregator: deps.Aggregator,
		Weights:    deps.Table,
		Health:     deps.Health,
	}
	// Keep the interface nil rather than holding a nil *wal.Journal.
	if deps.Journal != nil {
		d.Journal = deps.Journal
	}

	return eventprocessor.NewComponents(ctx, cfg, d)
}
