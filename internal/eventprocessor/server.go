// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

const serverReadyTimeout = 30 * time.Second

// EmbeddedServer wraps an in-process NATS JetStream server.
//
// It gives single-node deployments a broker without an external NATS
// cluster. JetStream state lives under ServerConfig.StoreDir, so streams and
// durable consumer positions survive a restart of the process.
//
// Example usage:
//
//	cfg := eventprocessor.ServerConfigFrom(&natsCfg)
//	srv, err := eventprocessor.NewEmbeddedServer(&cfg)
//	if err != nil {
//	    return err
//	}
//	defer srv.Shutdown(ctx)
//	natsCfg.URL = srv.ClientURL()
type EmbeddedServer struct {
	server    *server.Server
	config    ServerConfig
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server.
//
// JetStream is enabled with the configured memory and file limits. It returns
// an error if the server is not ready for connections within 30 seconds.
func NewEmbeddedServer(cfg *ServerConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName:         "itemsim",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.JetStreamMaxMem,
		JetStreamMaxStore:  cfg.JetStreamMaxStore,
		NoLog:              false,
		MaxPayload:         1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(serverReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", serverReadyTimeout)
	}

	return &EmbeddedServer{
		server:    ns,
		config:    *cfg,
		clientURL: ns.ClientURL(),
	}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server and waits for it, or for ctx.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// IsRunning returns server health status.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// JetStreamEnabled returns whether JetStream is enabled.
func (s *EmbeddedServer) JetStreamEnabled() bool {
	return s.server.JetStreamEnabled()
}

// HealthCheck reports whether the server is up with JetStream.
func (s *EmbeddedServer) HealthCheck(_ context.Context) ComponentHealth {
	h := ComponentHealth{
		Name:    "nats_server",
		Details: map[string]interface{}{"url": s.clientURL},
	}
	switch {
	case !s.IsRunning():
		h.Error = "embedded server is not running"
	case !s.JetStreamEnabled():
		h.Error = "JetStream is disabled"
	default:
		h.Healthy = true
		h.Message = "embedded server running"
	}
	return h
}
