// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/itemsim/internal/logging"
)

// JetStreamContext is the subset of jetstream.JetStream used by
// StreamInitializer.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	DeleteStream(ctx context.Context, name string) error
}

// StreamInitializer creates or updates one stream before any publisher or
// subscriber binds to it.
type StreamInitializer struct {
	js     JetStreamContext
	config StreamConfig
}

// NewStreamInitializer creates a new stream initializer.
func NewStreamInitializer(js JetStreamContext, cfg *StreamConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("stream config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &StreamInitializer{
		js:     js,
		config: *cfg,
	}, nil
}

func (s *StreamInitializer) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        s.config.Name,
		Subjects:    s.config.Subjects,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      s.config.MaxAge,
		MaxBytes:    s.config.MaxBytes,
		MaxMsgs:     s.config.MaxMsgs,
		Duplicates:  s.config.DuplicateWindow,
		Replicas:    s.config.Replicas,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}
}

// EnsureStream creates the stream, or updates it when it already exists.
// It is idempotent.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := s.streamConfig()

	_, err := s.js.Stream(ctx, s.config.Name)
	if err == nil {
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := s.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", s.config.Name, err)
		}
		logging.Info().
			Str("stream", s.config.Name).
			Strs("subjects", s.config.Subjects).
			Msg("JetStream stream created")
		return stream, nil
	}

	return nil, fmt.Errorf("check stream %s: %w", s.config.Name, err)
}

// IsHealthy reports whether the stream can be looked up.
func (s *StreamInitializer) IsHealthy(ctx context.Context) bool {
	_, err := s.js.Stream(ctx, s.config.Name)
	return err == nil
}

// Config returns the stream configuration.
func (s *StreamInitializer) Config() StreamConfig {
	return s.config
}

// HealthCheck implements HealthCheckable.
func (s *StreamInitializer) HealthCheck(ctx context.Context) ComponentHealth {
	h := ComponentHealth{Name: "stream_" + s.config.Name}
	stream, err := s.js.Stream(ctx, s.config.Name)
	if err != nil {
		h.Error = err.Error()
		return h
	}
	h.Healthy = true
	if info := stream.CachedInfo(); info != nil {
		h.Details = map[string]interface{}{
			"messages": info.State.Msgs,
			"bytes":    info.State.Bytes,
		}
	}
	return h
}

// StreamSet holds the connection used for stream management and the
// initializers for every stream the service uses.
type StreamSet struct {
	conn         *natsgo.Conn
	initializers []*StreamInitializer
}

// EnsureStreams connects to url and ensures each stream exists.
func EnsureStreams(ctx context.Context, url string, streams ...StreamConfig) (*StreamSet, error) {
	nc, err := natsgo.Connect(url,
		natsgo.Name("itemsim-stream-init"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	set := &StreamSet{conn: nc}
	for i := range streams {
		si, err := NewStreamInitializer(js, &streams[i])
		if err != nil {
			nc.Close()
			return nil, err
		}
		if _, err := si.EnsureStream(ctx); err != nil {
			nc.Close()
			return nil, err
		}
		set.initializers = append(set.initializers, si)
	}
	return set, nil
}

// Initializers returns one initializer per ensured stream.
func (s *StreamSet) Initializers() []*StreamInitializer {
	return s.initializers
}

// Connected reports the state of the management connection.
func (s *StreamSet) Connected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// HealthCheck implements HealthCheckable for the NATS connection.
func (s *StreamSet) HealthCheck(_ context.Context) ComponentHealth {
	h := ComponentHealth{Name: "nats"}
	if !s.Connected() {
		h.Error = "NATS connection is down"
		return h
	}
	h.Healthy = true
	h.Details = map[string]interface{}{"url": s.conn.ConnectedUrl()}
	return h
}

// Close closes the management connection.
func (s *StreamSet) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
