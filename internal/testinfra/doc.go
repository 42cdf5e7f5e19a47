// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

//go:build integration

// Package testinfra starts Docker containers for integration tests.
//
// Everything here is behind the integration build tag and needs a reachable
// Docker daemon:
//
//	go test -tags integration ./internal/testinfra/...
//
// # NATS Container
//
// NATSContainer runs a standalone JetStream server, the deployment shape
// used when nats.embedded_server is false:
//
//	func TestExternalNATS(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    nc, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    t.Cleanup(func() { testinfra.CleanupContainer(t, nc) })
//
//	    cfg := config.Defaults()
//	    cfg.NATS.EmbeddedServer = false
//	    cfg.NATS.URL = nc.URL
//	}
package testinfra
