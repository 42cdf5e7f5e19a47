// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/itemsim/internal/aggregator"
	"github.com/tomtom215/itemsim/internal/config"
	"github.com/tomtom215/itemsim/internal/logging"
	"github.com/tomtom215/itemsim/internal/weights"
)

// Store is the write side of the durable store used by the persisters.
type Store interface {
	WeightStore
	SimilarityStore
}

// Dependencies are the domain components the handlers drive.
type Dependencies struct {
	Store      Store
	Shards     *aggregator.ShardSet
	Aggregator *aggregator.Aggregator
	// Journal is nil unless the journal restore strategy is active.
	Journal WeightJournal
	Weights weights.Resolver
	// Health receives the messaging components. A new checker is created
	// when nil.
	Health *HealthChecker
}

// Components is the assembled messaging layer.
//
// NewComponents builds it in dependency order:
//
//  1. Starts the embedded server when nats.embedded_server is set
//  2. Ensures the interaction and similarity streams
//  3. Creates the publisher and the router, whose poison queue publishes
//     through it
//  4. Adds one durable consumer and handler per enabled role: the
//     aggregator, and the weight and similarity persisters
//
// Every piece is registered with Health. The router is returned stopped;
// supervise it, and once it has exited call Close.
//
// Example usage:
//
//	comps, err := eventprocessor.NewComponents(ctx, cfg, deps)
//	if err != nil {
//	    return err
//	}
//	defer comps.Close(context.Background())
//	tree.AddMessagingService(services.NewRunnerService("event-router", comps.Router))
type Components struct {
	Server       *EmbeddedServer
	Streams      *StreamSet
	Publisher    *Publisher
	Router       *Router
	Aggregation  *AggregationHandler
	Interactions *InteractionHandler
	Similarities *SimilarityHandler
	Health       *HealthChecker

	subscribers []*Subscriber
	logger      watermill.LoggerAdapter
}

// NewComponents starts the embedded server when configured, ensures the
// streams, and registers one router handler per enabled consumer. The router
// is not started; run Components.Router.
func NewComponents(ctx context.Context, cfg *config.Config, deps Dependencies) (_ *Components, err error) {
	logger := logging.NewWatermillLoggerWith(logging.WithComponent("watermill"))
	natsCfg := cfg.NATS

	c := &Components{Health: deps.Health, logger: logger}
	if c.Health == nil {
		c.Health = NewHealthChecker(DefaultHealthConfig())
	}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	if natsCfg.EmbeddedServer {
		serverCfg := ServerConfigFrom(&natsCfg)
		c.Server, err = NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		natsCfg.URL = c.Server.ClientURL()
		c.Health.RegisterComponent("nats_server", c.Server)
		logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
	}

	c.Streams, err = EnsureStreams(ctx, natsCfg.URL,
		InteractionStreamConfig(&natsCfg),
		SimilarityStreamConfig(&natsCfg),
	)
	if err != nil {
		return nil, err
	}
	c.Health.RegisterComponent("nats", c.Streams)

	c.Publisher, err = NewPublisher(DefaultPublisherConfig(natsCfg.URL), logger)
	if err != nil {
		return nil, err
	}
	c.Publisher.SetCircuitBreaker(NewCircuitBreaker(DefaultCircuitBreakerConfig("nats-publisher")))
	c.Health.RegisterComponent("publisher", c.Publisher)

	routerCfg := RouterConfigFrom(&natsCfg)
	c.Router, err = NewRouter(&routerCfg, c.Publisher.WatermillPublisher(), logger)
	if err != nil {
		return nil, err
	}
	c.Health.RegisterComponent("router", c.Router)

	if cfg.Aggregator.Enabled {
		if err = c.addAggregation(&natsCfg, deps); err != nil {
			return nil, err
		}
	}
	if cfg.Database.IngestEnabled {
		if err = c.addPersisters(&natsCfg, deps); err != nil {
			return nil, err
		}
	}
	if len(c.subscribers) == 0 {
		return nil, fmt.Errorf("%w: no consumer enabled", ErrInvalidConfig)
	}

	logging.Info().
		Strs("handlers", c.Router.Handlers()).
		Str("interaction_stream", natsCfg.InteractionStream).
		Str("similarity_stream", natsCfg.SimilarityStream).
		Msg("Event processing configured")
	return c, nil
}

func (c *Components) subscriber(natsCfg *config.NATSConfig, stream, durable string) (*Subscriber, error) {
	subCfg := SubscriberConfigFor(natsCfg, stream, durable)
	sub, err := NewSubscriber(&subCfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.subscribers = append(c.subscribers, sub)
	return sub, nil
}

func (c *Components) addAggregation(natsCfg *config.NATSConfig, deps Dependencies) error {
	h, err := NewAggregationHandler(AggregationHandlerConfig{
		Shards:     deps.Shards,
		Aggregator: deps.Aggregator,
		Journal:    deps.Journal,
		Publisher:  c.Publisher,
		Topic:      natsCfg.SimilarityTopic,
		Logger:     logging.Logger(),
	})
	if err != nil {
		return err
	}
	sub, err := c.subscriber(natsCfg, natsCfg.InteractionStream, ConsumerAggregator)
	if err != nil {
		return err
	}
	c.Aggregation = h
	c.Router.AddConsumerHandler(ConsumerAggregator, natsCfg.InteractionSubjects, sub, h.Handle)
	return nil
}

func (c *Components) addPersisters(natsCfg *config.NATSConfig, deps Dependencies) error {
	if deps.Store == nil {
		return fmt.Errorf("%w: store required for ingestion", ErrInvalidConfig)
	}
	breaker := NewCircuitBreaker(DefaultCircuitBreakerConfig("duckdb"))

	ih, err := NewInteractionHandler(deps.Store, deps.Weights, breaker, logging.Logger())
	if err != nil {
		return err
	}
	isub, err := c.subscriber(natsCfg, natsCfg.InteractionStream, ConsumerInteractions)
	if err != nil {
		return err
	}
	c.Interactions = ih
	c.Router.AddConsumerHandler(ConsumerInteractions, natsCfg.InteractionSubjects, isub, ih.Handle)

	sh, err := NewSimilarityHandler(deps.Store, breaker, logging.Logger())
	if err != nil {
		return err
	}
	ssub, err := c.subscriber(natsCfg, natsCfg.SimilarityStream, ConsumerSimilarity)
	if err != nil {
		return err
	}
	c.Similarities = sh
	c.Router.AddConsumerHandler(ConsumerSimilarity, natsCfg.SimilarityTopic, ssub, sh.Handle)
	return nil
}

// Close releases subscribers, the publisher, the management connection and
// the embedded server, in that order. The router must already be stopped.
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	for _, sub := range c.subscribers {
		if err := sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber %s: %w", sub.Config().DurableName, err))
		}
	}
	c.subscribers = nil
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if c.Streams != nil {
		c.Streams.Close()
	}
	if c.Server != nil {
		if err := c.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown NATS server: %w", err))
		}
	}
	return errors.Join(errs...)
}
