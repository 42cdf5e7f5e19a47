// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/itemsim/internal/aggregator"
	"github.com/tomtom215/itemsim/internal/eventprocessor"
	"github.com/tomtom215/itemsim/internal/logging"
	"github.com/tomtom215/itemsim/internal/metrics"
	"github.com/tomtom215/itemsim/internal/supervisor"
	"github.com/tomtom215/itemsim/internal/supervisor/services"
	"github.com/tomtom215/itemsim/internal/wal"
)

// stateMetrics publishes per-shard aggregator sizes.
func stateMetrics(shards *aggregator.ShardSet) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		stats, err := shards.Stats(ctx)
		if err != nil {
			return err
		}
		for _, st := range stats {
			metrics.UpdateStateEntries(st.Shard, st.Users, st.Items, st.Pairs, st.MatrixEntries)
		}
		return nil
	}
}

// supervised lists what the tree runs. Nil members are skipped.
type supervised struct {
	shards        *aggregator.ShardSet
	statsInterval time.Duration
	journal       *wal.Journal
	messaging     *eventprocessor.Components
	server        *http.Server
	shutdown      time.Duration
}

// addServices places each component on its layer: aggregator state and the
// journal on the data layer, the router on the messaging layer and the HTTP
// server on the api layer.
func addServices(tree *supervisor.SupervisorTree, s supervised) {
	if s.shards != nil {
		tree.AddDataService(services.NewRunnerService("aggregator-shards", s.shards))
		tree.AddDataService(services.NewTickerService("state-metrics", s.statsInterval, stateMetrics(s.shards)))
		logging.Info().Int("shards", s.shards.Len()).Msg("Aggregator shards added to supervisor tree")
	}
	if s.journal != nil {
		tree.AddDataService(services.NewStartStopService("journal-gc", wal.NewGCRunner(s.journal)))
		logging.Info().Msg("Journal GC added to supervisor tree")
	}
	if s.messaging != nil {
		tree.AddMessagingService(services.NewRunnerService("event-router", s.messaging.Router))
		logging.Info().Strs("handlers", s.messaging.Router.Handlers()).Msg("Event router added to supervisor tree")
	}
	if s.server != nil {
		tree.AddAPIService(services.NewHTTPServerService(s.server, s.shutdown))
		logging.Info().Str("addr", s.server.Addr).Msg("HTTP server service added")
	}
}
