// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/itemsim/internal/metrics"
)

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handled messages per second; 0 disables.
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that failed permanently.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     "itemsim.poison",
	}
}

// RouterMetrics holds runtime counters for the Router.
type RouterMetrics struct {
	MessagesReceived  int64 `json:"messages_received"`
	MessagesProcessed int64 `json:"messages_processed"`
	MessagesFailed    int64 `json:"messages_failed"`
	MessagesPoisoned  int64 `json:"messages_poisoned"`
}

// Router wraps the Watermill Router with the delivery middleware stack.
//
// For each message the stack, outermost first:
//
//  1. Recovers handler panics into errors
//  2. Retries retryable errors with exponential backoff
//  3. Throttles when a rate is configured
//  4. Publishes permanent errors to the poison topic and acks them
//  5. Counts received, processed, failed and poisoned messages
//
// A message whose retries are exhausted is nacked for JetStream redelivery.
// A Router runs once; after Close a new one must be built.
type Router struct {
	router    *message.Router
	config    RouterConfig
	logger    watermill.LoggerAdapter
	poisonPub message.Publisher

	running  atomic.Bool
	mu       sync.RWMutex
	handlers map[string]*message.Handler

	received  atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	poisoned  atomic.Int64
}

// NewRouter creates a Router. Middleware runs outer to inner as
// Recoverer, Retry, optional Throttle, the poison queue (permanent errors
// only) and the counters.
func NewRouter(cfg *RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg == nil {
		defaultCfg := DefaultRouterConfig()
		cfg = &defaultCfg
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{
		router:    wmRouter,
		config:    *cfg,
		logger:    logger,
		poisonPub: poisonPublisher,
		handlers:  make(map[string]*message.Handler),
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	if cfg.RetryMaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      cfg.RetryMaxRetries,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
			Multiplier:      cfg.RetryMultiplier,
			Logger:          logger,
		}
		wmRouter.AddMiddleware(retry.Middleware)
	}

	if cfg.ThrottlePerSecond > 0 {
		throttle := middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second)
		wmRouter.AddMiddleware(throttle.Middleware)
	}

	if poisonPublisher != nil && cfg.PoisonQueueTopic != "" {
		poisonQueue, err := middleware.PoisonQueueWithFilter(poisonPublisher, cfg.PoisonQueueTopic, IsPermanentError)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	wmRouter.AddMiddleware(r.countMiddleware)

	return r, nil
}

// countMiddleware is the innermost middleware, so it sees each attempt and
// the raw handler error before the poison queue swallows it.
func (r *Router) countMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		r.received.Add(1)
		topic := message.SubscribeTopicFromCtx(msg.Context())

		out, err := h(msg)
		switch {
		case err == nil:
			r.processed.Add(1)
			metrics.RecordNATSConsume(topic, "ack")
		case IsPermanentError(err):
			r.poisoned.Add(1)
			metrics.RecordNATSConsume(topic, "poison")
			r.logger.Error("Message rejected permanently", err, watermill.LogFields{
				"message_uuid": msg.UUID,
				"topic":        topic,
				"category":     CategoryOf(err).String(),
			})
		default:
			r.failed.Add(1)
			metrics.RecordNATSConsume(topic, "retry")
		}
		return out, err
	}
}

// AddConsumerHandler registers a handler that produces no output messages.
func (r *Router) AddConsumerHandler(name, subscribeTopic string, subscriber message.Subscriber, handler message.NoPublishHandlerFunc) *message.Handler {
	h := r.router.AddConsumerHandler(name, subscribeTopic, subscriber, handler)
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
	return h
}

// Handlers returns the registered handler names.
func (r *Router) Handlers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Run starts the router and blocks until ctx is done or Close is called.
func (r *Router) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)
	return r.router.Run(ctx)
}

// Running returns a channel that closes when the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close stops the router, waiting up to CloseTimeout for in-flight messages.
func (r *Router) Close() error {
	return r.router.Close()
}

// IsRunning returns whether the router is currently processing messages.
func (r *Router) IsRunning() bool {
	return r.running.Load()
}

// Metrics returns a snapshot of the router counters.
func (r *Router) Metrics() RouterMetrics {
	return RouterMetrics{
		MessagesReceived:  r.received.Load(),
		MessagesProcessed: r.processed.Load(),
		MessagesFailed:    r.failed.Load(),
		MessagesPoisoned:  r.poisoned.Load(),
	}
}

// HealthCheck implements HealthCheckable.
func (r *Router) HealthCheck(_ context.Context) ComponentHealth {
	h := ComponentHealth{
		Name:    "router",
		Details: make(map[string]interface{}),
	}
	if !r.IsRunning() {
		h.Error = "router is not running"
		return h
	}
	m := r.Metrics()
	h.Healthy = true
	h.Message = "router is running"
	h.Details["handlers"] = len(r.Handlers())
	h.Details["messages_received"] = m.MessagesReceived
	h.Details["messages_processed"] = m.MessagesProcessed
	h.Details["messages_failed"] = m.MessagesFailed
	h.Details["messages_poisoned"] = m.MessagesPoisoned
	return h
}
