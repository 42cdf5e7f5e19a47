// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

// Package main is the entry point for the itemsim server.
//
// The server consumes user-item interactions from NATS JetStream, keeps an
// incremental item-to-item similarity matrix in sharded memory, persists
// weights and similarities to DuckDB with upsert-if-greater merges, and
// answers recommendation queries over HTTP.
//
// # Startup Order
//
//  1. Configuration: defaults, optional config.yaml, environment (Koanf v2)
//  2. Database: DuckDB schema for interaction weights and item similarities
//  3. Journal (restore=journal): BadgerDB log of every applied weight
//  4. Aggregator: shard set restored from the journal or the store
//  5. Recommendation service: query limits and result cache
//  6. Messaging (optional): embedded or external JetStream, streams,
//     consumers and the Watermill router
//  7. HTTP server: query API, health probes and /metrics
//
// Components run under a suture supervisor tree with data, messaging and
// api layers, so a failing router restarts without touching the shards.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the tree. The HTTP server drains within
// server.shutdown_timeout, the router stops, then subscribers, the
// publisher, the embedded NATS server, the journal and DuckDB are closed in
// that order.
//
// # Example Usage
//
// Single node with embedded JetStream:
//
//	export NATS_EMBEDDED=true
//	export AGGREGATOR_ENABLED=true
//	export INGEST_ENABLED=true
//	./itemsim
//
// Query-only replica against a shared DuckDB file:
//
//	export AGGREGATOR_ENABLED=false
//	export INGEST_ENABLED=false
//	./itemsim
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/itemsim/internal/aggregator"
	"github.com/tomtom215/itemsim/internal/api"
	"github.com/tomtom215/itemsim/internal/config"
	"github.com/tomtom215/itemsim/internal/database"
	"github.com/tomtom215/itemsim/internal/eventprocessor"
	"github.com/tomtom215/itemsim/internal/logging"
	"github.com/tomtom215/itemsim/internal/supervisor"
	"github.com/tomtom215/itemsim/internal/weights"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("aggregator", cfg.Aggregator.Enabled).
		Bool("ingest", cfg.Database.IngestEnabled).
		Bool("embedded_nats", cfg.NATS.EmbeddedServer).
		Msg("Starting itemsim with supervisor tree")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); set explicit origins in production")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}

	table, err := weights.NewTable(cfg.Weights.Table())
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid interaction weights")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	journal, err := InitJournal(cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize weight journal")
		return
	}
	if journal != nil {
		defer func() {
			if err := journal.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing weight journal")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var shards *aggregator.ShardSet
	agg := aggregator.New(table)
	if cfg.Aggregator.Enabled {
		shards, err = aggregator.NewShardSet(aggregator.ShardConfig{
			Shards:           cfg.Aggregator.Shards,
			MaxUsersPerShard: cfg.Aggregator.MaxUsersPerShard,
		})
		if err != nil {
			logging.Error().Err(err).Msg("Failed to create aggregator shards")
			return
		}
		defer shards.Close()
		if err := RestoreState(ctx, cfg, shards, agg, db, journal); err != nil {
			logging.Error().Err(err).Msg("Failed to restore aggregator state")
			return
		}
	}

	recSvc, err := InitRecommend(cfg, db)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize recommendation service")
		return
	}
	defer recSvc.Close()

	health := eventprocessor.NewHealthChecker(eventprocessor.DefaultHealthConfig())
	health.RegisterComponent("database", eventprocessor.HealthCheckFunc(func(ctx context.Context) eventprocessor.ComponentHealth {
		h := eventprocessor.ComponentHealth{Name: "database"}
		if err := db.Ping(ctx); err != nil {
			h.Error = err.Error()
			return h
		}
		h.Healthy = true
		return h
	}))
	if shards != nil {
		health.RegisterComponent("aggregator", eventprocessor.HealthCheckFunc(func(ctx context.Context) eventprocessor.ComponentHealth {
			h := eventprocessor.ComponentHealth{Name: "aggregator"}
			stats, err := shards.Stats(ctx)
			if err != nil {
				h.Error = err.Error()
				return h
			}
			h.Healthy = true
			h.Details = map[string]interface{}{"shards": len(stats)}
			return h
		}))
	}

	comps, err := InitMessaging(ctx, cfg, MessagingDeps{
		DB:         db,
		Shards:     shards,
		Aggregator: agg,
		Table:      table,
		Journal:    journal,
		Health:     health,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize messaging")
		return
	}
	if comps != nil {
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer closeCancel()
			if err := comps.Close(closeCtx); err != nil {
				logging.Error().Err(err).Msg("Error closing messaging components")
			}
		}()
	}

	handler, err := api.NewHandler(recSvc, health, cfg.API)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create API handler")
		return
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return
	}
	addServices(tree, supervised{
		shards:        shards,
		statsInterval: cfg.Aggregator.StatsInterval,
		journal:       journal,
		messaging:     comps,
		server:        server,
		shutdown:      cfg.Server.ShutdownTimeout,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// suture sends exactly one value and never closes errCh.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
		cancel()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	if n := tree.LogUnstopped(); n > 0 {
		logging.Warn().Int("count", n).Msg("Services failed to stop within timeout")
	}
	logging.Info().Msg("Application stopped gracefully")
}
