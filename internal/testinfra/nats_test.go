// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

//go:build integration

package testinfra

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/itemsim/internal/aggregator"
	"github.com/tomtom215/itemsim/internal/config"
	"github.com/tomtom215/itemsim/internal/database"
	"github.com/tomtom215/itemsim/internal/eventprocessor"
	"github.com/tomtom215/itemsim/internal/models"
	"github.com/tomtom215/itemsim/internal/weights"
)

func startNATS(t *testing.T) *NATSContainer {
	t.Helper()
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	nc, err := NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("NewNATSContainer: %v", err)
	}
	t.Cleanup(func() { CleanupContainer(t, nc) })
	return nc
}

func externalConfig(url string) *config.Config {
	cfg := config.Defaults()
	cfg.NATS.EmbeddedServer = false
	cfg.NATS.URL = url
	cfg.NATS.RouterRetryInitialInterval = 10 * time.Millisecond
	return cfg
}

func TestEnsureStreams_ExternalServer(t *testing.T) {
	nc := startNATS(t)
	cfg := externalConfig(nc.URL)
	ctx := context.Background()

	// A second call must find the streams from the first and leave them alone.
	for i := 0; i < 2; i++ {
		set, err := eventprocessor.EnsureStreams(ctx, nc.URL,
			eventprocessor.InteractionStreamConfig(&cfg.NATS),
			eventprocessor.SimilarityStreamConfig(&cfg.NATS),
		)
		if err != nil {
			t.Fatalf("EnsureStreams attempt %d: %v", i, err)
		}
		if h := set.HealthCheck(ctx); !h.Healthy {
			t.Errorf("attempt %d: HealthCheck = %+v, want healthy", i, h)
		}
		for _, si := range set.Initializers() {
			if !si.IsHealthy(ctx) {
				t.Errorf("attempt %d: stream %s not healthy", i, si.Config().Name)
			}
		}
		set.Close()
	}
}

func TestComponents_ExternalServer(t *testing.T) {
	nc := startNATS(t)
	cfg := externalConfig(nc.URL)
	cfg.Aggregator.Enabled = true
	cfg.Database.IngestEnabled = true

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	defer db.Close()

	table, err := weights.NewTable(cfg.Weights.Table())
	if err != nil {
		t.Fatalf("weights.NewTable: %v", err)
	}
	shards, err := aggregator.NewShardSet(aggregator.ShardConfig{Shards: 2})
	if err != nil {
		t.Fatalf("NewShardSet: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := eventprocessor.NewComponents(ctx, cfg, eventprocessor.Dependencies{
		Store:      db,
		Shards:     shards,
		Aggregator: aggregator.New(table),
		Weights:    table,
	})
	if err != nil {
		t.Fatalf("NewComponents: %v", err)
	}
	if comps.Server != nil {
		t.Error("embedded server started with embedded_server=false")
	}

	shardsDone := make(chan struct{})
	go func() {
		defer close(shardsDone)
		_ = shards.Run(ctx)
	}()
	routerDone := make(chan struct{})
	go func() {
		defer close(routerDone)
		_ = comps.Router.Run(ctx)
	}()
	defer func() {
		cancel()
		<-routerDone
		<-shardsDone
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := comps.Close(closeCtx); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	select {
	case <-comps.Router.Running():
	case <-time.After(30 * time.Second):
		t.Fatal("router did not start")
	}

	for _, in := range []models.Interaction{
		{UserID: 7, ItemID: 10, Kind: models.KindRegister, Timestamp: 1},
		{UserID: 7, ItemID: 11, Kind: models.KindRegister, Timestamp: 2},
	} {
		if err := comps.Publisher.PublishInteraction(ctx, cfg.NATS.InteractionSubjects, in); err != nil {
			t.Fatalf("PublishInteraction: %v", err)
		}
	}

	deadline := time.Now().Add(30 * time.Second)
	for {
		s, found, err := db.GetItemSimilarity(ctx, 10, 11)
		if err == nil && found && math.Abs(s.Score-1.0) < 1e-9 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("similarity (10,11) never reached 1.0: %+v found=%v err=%v", s, found, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
