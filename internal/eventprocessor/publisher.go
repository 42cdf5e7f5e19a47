// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/itemsim/internal/metrics"
	"github.com/tomtom215/itemsim/internal/models"
)

// updateNamespace seeds content-derived similarity message ids.
var updateNamespace = uuid.MustParse("6f1d8c1e-2b7a-5d3e-9c4f-8a0b1e2d3c4f")

// UpdatePublisher publishes similarity updates. *Publisher implements it.
type UpdatePublisher interface {
	PublishUpdates(ctx context.Context, topic string, updates []models.SimilarityUpdate) error
}

// Publisher wraps the Watermill NATS publisher with a circuit breaker and
// JetStream message id tracking.
//
// Every message carries its watermill UUID as the Nats-Msg-Id header. For
// similarity updates that UUID is derived from the update content, so a
// republish inside the stream's duplicate window is stored once.
//
// Example usage:
//
//	pub, err := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(url), logger)
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//	pub.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(eventprocessor.DefaultCircuitBreakerConfig("nats-publisher")))
//	err = pub.PublishUpdates(ctx, "similarity.updates", updates)
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	serializer     *Serializer
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher creates a Watermill NATS JetStream publisher. Streams must
// already exist.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("itemsim-publisher"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
		natsgo.ErrorHandler(func(nc *natsgo.Conn, sub *natsgo.Subscription, err error) {
			fields := watermill.LogFields{}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			logger.Error("NATS error", err, fields)
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher:  pub,
		serializer: NewSerializer(),
		logger:     logger,
	}, nil
}

// newPublisherWith wraps an existing Watermill publisher.
func newPublisherWith(pub message.Publisher, logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Publisher{publisher: pub, serializer: NewSerializer(), logger: logger}
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Publish sends msgs to topic. Each message UUID becomes its Nats-Msg-Id
// unless one is already set.
func (p *Publisher) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	for _, msg := range msgs {
		if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
			msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
		}
	}

	_, err := ExecuteWithBreaker(p.circuitBreaker, func() (interface{}, error) {
		return nil, p.publisher.Publish(topic, msgs...)
	})
	metrics.RecordNATSPublish(topic, len(msgs), err)
	if err != nil {
		return fmt.Errorf("publish %d messages to %s: %w", len(msgs), topic, err)
	}
	return nil
}

// PublishUpdates publishes one message per similarity update. Identical
// updates get identical message ids.
func (p *Publisher) PublishUpdates(ctx context.Context, topic string, updates []models.SimilarityUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	msgs := make([]*message.Message, 0, len(updates))
	for _, u := range updates {
		data, err := p.serializer.MarshalUpdate(u)
		if err != nil {
			return err
		}
		msgs = append(msgs, message.NewMessage(UpdateMessageID(u), data))
	}
	return p.Publish(ctx, topic, msgs...)
}

// PublishInteraction publishes one interaction on its kind subject below
// subjects.
func (p *Publisher) PublishInteraction(ctx context.Context, subjects string, in models.Interaction) error {
	data, err := p.serializer.MarshalInteraction(in)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("user_id", strconv.FormatInt(in.UserID, 10))
	msg.Metadata.Set("kind", in.Kind.String())
	return p.Publish(ctx, InteractionTopic(subjects, in.Kind), msg)
}

// UpdateMessageID derives a stable id from the content of u.
func UpdateMessageID(u models.SimilarityUpdate) string {
	key := fmt.Sprintf("%d:%d:%x:%d", u.ItemA, u.ItemB, math.Float64bits(u.Score), u.Timestamp)
	return uuid.NewSHA1(updateNamespace, []byte(key)).String()
}

// Close shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// WatermillPublisher returns the underlying publisher, for the poison queue
// middleware.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}

// HealthCheck reports the publisher and its breaker.
func (p *Publisher) HealthCheck(_ context.Context) ComponentHealth {
	h := ComponentHealth{Name: "publisher", Details: map[string]interface{}{}}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		h.Error = "publisher is closed"
		return h
	}

	h.Healthy = true
	if p.circuitBreaker != nil {
		state := CircuitBreakerState(p.circuitBreaker)
		h.Details["circuit_breaker"] = state
		if p.circuitBreaker.State() != gobreaker.StateClosed {
			h.Degraded = true
			h.Message = "circuit breaker " + state
		}
	}
	return h
}
