// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/tomtom215/itemsim/internal/config"
)

// Durable consumer names. Each one tracks its own position in its stream.
const (
	ConsumerAggregator   = "aggregator"
	ConsumerInteractions = "interaction-weights"
	ConsumerSimilarity   = "similarity-merge"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// StreamConfig holds JetStream stream configuration.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// PublisherConfig holds Watermill NATS publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool
}

// SubscriberConfig holds Watermill NATS subscriber configuration.
type SubscriberConfig struct {
	URL              string
	StreamName       string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
	MaxDeliver       int
	MaxAckPending    int
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultServerConfig returns defaults for an embedded server on localhost.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,
		JetStreamMaxStore: 10 << 30,
	}
}

// DefaultPublisherConfig returns production publisher defaults.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// DefaultSubscriberConfig returns production defaults for a durable consumer.
func DefaultSubscriberConfig(url, stream, durable string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		StreamName:       stream,
		DurableName:      durable,
		QueueGroup:       durable,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		MaxDeliver:       10,
		MaxAckPending:    1000,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// DefaultCircuitBreakerConfig returns production circuit breaker defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// ServerConfigFrom maps application settings onto the embedded server.
func ServerConfigFrom(cfg *config.NATSConfig) ServerConfig {
	return ServerConfig{
		Host:              cfg.ServerHost,
		Port:              cfg.ServerPort,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   cfg.MaxMemory,
		JetStreamMaxStore: cfg.MaxStore,
	}
}

// InteractionStreamConfig describes the INTERACTIONS stream.
func InteractionStreamConfig(cfg *config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            cfg.InteractionStream,
		Subjects:        []string{cfg.InteractionSubjects},
		MaxAge:          cfg.StreamRetention,
		MaxBytes:        -1,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// SimilarityStreamConfig describes the SIMILARITY stream. The poison topic is
// stored here too so rejected messages stay inspectable.
func SimilarityStreamConfig(cfg *config.NATSConfig) StreamConfig {
	subjects := []string{cfg.SimilarityTopic}
	if cfg.PoisonTopic != "" {
		subjects = append(subjects, cfg.PoisonTopic)
	}
	return StreamConfig{
		Name:            cfg.SimilarityStream,
		Subjects:        subjects,
		MaxAge:          cfg.StreamRetention,
		MaxBytes:        -1,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// SubscriberConfigFor builds the subscriber for one durable consumer.
func SubscriberConfigFor(cfg *config.NATSConfig, stream, durable string) SubscriberConfig {
	sc := DefaultSubscriberConfig(cfg.URL, stream, durable)
	if cfg.SubscribersCount > 0 {
		sc.SubscribersCount = cfg.SubscribersCount
	}
	if cfg.AckWait > 0 {
		sc.AckWaitTimeout = cfg.AckWait
	}
	if cfg.MaxDeliver != 0 {
		sc.MaxDeliver = cfg.MaxDeliver
	}
	if cfg.MaxAckPending > 0 {
		sc.MaxAckPending = cfg.MaxAckPending
	}
	if cfg.RouterCloseTimeout > 0 {
		sc.CloseTimeout = cfg.RouterCloseTimeout
	}
	return sc
}

// RouterConfigFrom maps application settings onto the router.
func RouterConfigFrom(cfg *config.NATSConfig) RouterConfig {
	rc := DefaultRouterConfig()
	rc.PoisonQueueTopic = cfg.PoisonTopic
	rc.RetryMaxRetries = cfg.RouterRetryCount
	if cfg.RouterRetryInitialInterval > 0 {
		rc.RetryInitialInterval = cfg.RouterRetryInitialInterval
	}
	rc.ThrottlePerSecond = cfg.RouterThrottlePerSecond
	if cfg.RouterCloseTimeout > 0 {
		rc.CloseTimeout = cfg.RouterCloseTimeout
	}
	return rc
}

// Validate checks a subscriber configuration.
func (c *SubscriberConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: subscriber url is required", ErrInvalidConfig)
	}
	if c.DurableName == "" {
		return fmt.Errorf("%w: durable name is required", ErrInvalidConfig)
	}
	if c.SubscribersCount < 1 {
		return fmt.Errorf("%w: subscribers count must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Validate checks a stream configuration.
func (c *StreamConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: stream name is required", ErrInvalidConfig)
	}
	if len(c.Subjects) == 0 {
		return fmt.Errorf("%w: stream %s has no subjects", ErrInvalidConfig, c.Name)
	}
	return nil
}
