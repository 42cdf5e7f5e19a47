// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package eventprocessor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/itemsim/internal/aggregator"
	"github.com/tomtom215/itemsim/internal/metrics"
	"github.com/tomtom215/itemsim/internal/models"
	"github.com/tomtom215/itemsim/internal/weights"
)

// Interaction outcomes, used as the result label of
// itemsim_interactions_processed_total.
const (
	resultApplied  = "applied"
	resultNoop     = "noop"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// WeightJournal persists effective weights for cold start. *wal.Journal
// implements it. An entry is written only after the updates it caused were
// published, so a weight restored from the journal never hides a pair score
// that was not sent.
type WeightJournal interface {
	Record(ctx context.Context, itemID, userID int64, weight float64, ts int64) error
}

// HandlerStats are cumulative handler counters.
type HandlerStats struct {
	Received  int64 `json:"received"`
	Applied   int64 `json:"applied"`
	Ignored   int64 `json:"ignored"`
	Rejected  int64 `json:"rejected"`
	Failed    int64 `json:"failed"`
	Published int64 `json:"published"`
}

type handlerCounters struct {
	received  atomic.Int64
	applied   atomic.Int64
	ignored   atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
	published atomic.Int64
}

func (c *handlerCounters) snapshot() HandlerStats {
	return HandlerStats{
		Received:  c.received.Load(),
		Applied:   c.applied.Load(),
		Ignored:   c.ignored.Load(),
		Rejected:  c.rejected.Load(),
		Failed:    c.failed.Load(),
		Published: c.published.Load(),
	}
}

func (c *handlerCounters) settle(err error) error {
	switch {
	case err == nil:
	case IsPermanentError(err):
		c.rejected.Add(1)
	default:
		c.failed.Add(1)
	}
	return err
}

func messageContext(msg *message.Message) context.Context {
	if ctx := msg.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// AggregationHandler turns interactions into similarity updates.
//
// For each interaction the handler, on the shard goroutine that owns the
// acting user:
//
//  1. applies the interaction to the shard State
//  2. publishes the resulting pair updates
//  3. journals the new weight
//  4. returns nil so the router acks the message
//
// A failure or panic in step 2 or 3 reverts step 1 before the message is
// nacked. A crash between steps 2 and 3 leaves the journal at the old weight,
// so the redelivery after restart recomputes and republishes the same
// updates. No other interaction of the same user interleaves with the
// sequence.
type AggregationHandler struct {
	shards     *aggregator.ShardSet
	agg        *aggregator.Aggregator
	journal    WeightJournal
	publisher  UpdatePublisher
	topic      string
	serializer *Serializer
	logger     zerolog.Logger

	counters handlerCounters
}

// AggregationHandlerConfig wires an AggregationHandler.
type AggregationHandlerConfig struct {
	Shards     *aggregator.ShardSet
	Aggregator *aggregator.Aggregator
	// Journal is optional; nil disables journaling.
	Journal   WeightJournal
	Publisher UpdatePublisher
	// Topic receives the similarity updates.
	Topic  string
	Logger zerolog.Logger
}

// NewAggregationHandler validates cfg and creates the handler.
func NewAggregationHandler(cfg AggregationHandlerConfig) (*AggregationHandler, error) {
	switch {
	case cfg.Shards == nil:
		return nil, fmt.Errorf("%w: shard set required", ErrInvalidConfig)
	case cfg.Aggregator == nil:
		return nil, fmt.Errorf("%w: aggregator required", ErrInvalidConfig)
	case cfg.Publisher == nil:
		return nil, ErrNilPublisher
	case cfg.Topic == "":
		return nil, fmt.Errorf("%w: similarity topic required", ErrInvalidConfig)
	}
	return &AggregationHandler{
		shards:     cfg.Shards,
		agg:        cfg.Aggregator,
		journal:    cfg.Journal,
		publisher:  cfg.Publisher,
		topic:      cfg.Topic,
		serializer: NewSerializer(),
		logger:     cfg.Logger.With().Str("component", "aggregation_handler").Logger(),
	}, nil
}

// Handle processes one interaction message.
//
// Malformed payloads, invalid ids and unknown kinds are permanent errors and
// leave the state untouched. A publish or journal failure reverts the change
// and returns a retryable error.
func (h *AggregationHandler) Handle(msg *message.Message) error {
	start := time.Now()
	h.counters.received.Add(1)

	in, err := h.serializer.UnmarshalInteraction(msg.Payload)
	if err != nil {
		metrics.RecordInteraction("invalid", resultRejected, 0, time.Since(start))
		return h.counters.settle(NewPermanentError("malformed interaction", err))
	}
	if err := in.Validate(); err != nil {
		metrics.RecordInteraction(kindLabel(in.Kind), resultRejected, 0, time.Since(start))
		return h.counters.settle(NewPermanentError("invalid interaction", err))
	}

	ctx := messageContext(msg)
	var (
		updates []models.SimilarityUpdate
		applied bool
	)
	err = h.shards.Do(ctx, in.UserID, func(st *aggregator.State) error {
		change, ups, err := h.agg.Apply(st, in)
		if err != nil {
			return classify("apply interaction", err)
		}
		if !change.Applied() {
			return nil
		}

		// Until the journal holds the new weight, every exit reverts memory,
		// panics included. A redelivery then recomputes the same updates and
		// their content-derived ids let JetStream drop the republish.
		durable := false
		defer func() {
			if !durable {
				h.agg.Revert(st, change)
				metrics.AggregatorRollbacks.Inc()
			}
		}()

		if len(ups) > 0 {
			if err := h.publisher.PublishUpdates(ctx, h.topic, ups); err != nil {
				return NewRetryableError("publish similarity updates", err)
			}
		}
		if h.journal != nil {
			if err := h.journal.Record(ctx, in.ItemID, in.UserID, change.NewWeight, in.Timestamp); err != nil {
				return NewRetryableError("journal weight", err)
			}
		}

		durable = true
		applied = true
		updates = ups
		return nil
	})

	switch {
	case err != nil && IsPermanentError(err):
		metrics.RecordInteraction(kindLabel(in.Kind), resultRejected, 0, time.Since(start))
	case err != nil:
		err = classify("aggregate interaction", err)
		metrics.RecordInteraction(kindLabel(in.Kind), resultFailed, 0, time.Since(start))
		h.logger.Warn().Err(err).
			Int64("user_id", in.UserID).
			Int64("item_id", in.ItemID).
			Str("message_uuid", msg.UUID).
			Msg("Interaction not aggregated, will retry")
	case applied:
		h.counters.applied.Add(1)
		h.counters.published.Add(int64(len(updates)))
		metrics.RecordInteraction(kindLabel(in.Kind), resultApplied, len(updates), time.Since(start))
		h.logger.Trace().
			Int64("user_id", in.UserID).
			Int64("item_id", in.ItemID).
			Int("updates", len(updates)).
			Msg("Interaction aggregated")
	default:
		h.counters.ignored.Add(1)
		metrics.RecordInteraction(kindLabel(in.Kind), resultNoop, 0, time.Since(start))
	}
	return h.counters.settle(err)
}

// Stats returns the handler counters.
func (h *AggregationHandler) Stats() HandlerStats {
	return h.counters.snapshot()
}

// WeightStore merges interaction weights. *database.DB implements it.
type WeightStore interface {
	MergeInteractionWeight(ctx context.Context, itemID, userID int64, weight float64, ts int64) (bool, error)
}

// InteractionHandler persists the effective weight of each interaction with
// keep-the-maximum semantics.
type InteractionHandler struct {
	store      WeightStore
	weights    weights.Resolver
	breaker    *gobreaker.CircuitBreaker[interface{}]
	serializer *Serializer
	logger     zerolog.Logger

	counters handlerCounters
}

// NewInteractionHandler creates the interaction weight persister. breaker may
// be nil.
func NewInteractionHandler(store WeightStore, resolver weights.Resolver, breaker *gobreaker.CircuitBreaker[interface{}], logger zerolog.Logger) (*InteractionHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: weight store required", ErrInvalidConfig)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: weight resolver required", ErrInvalidConfig)
	}
	return &InteractionHandler{
		store:      store,
		weights:    resolver,
		breaker:    breaker,
		serializer: NewSerializer(),
		logger:     logger.With().Str("component", "interaction_handler").Logger(),
	}, nil
}

// Handle merges one interaction into interaction_weights.
func (h *InteractionHandler) Handle(msg *message.Message) error {
	h.counters.received.Add(1)

	in, err := h.serializer.UnmarshalInteraction(msg.Payload)
	if err != nil {
		return h.counters.settle(NewPermanentError("malformed interaction", err))
	}
	if err := in.Validate(); err != nil {
		return h.counters.settle(NewPermanentError("invalid interaction", err))
	}
	w, err := h.weights.WeightOf(in.Kind)
	if err != nil {
		return h.counters.settle(NewPermanentError("resolve weight", err))
	}

	ctx := messageContext(msg)
	result, err := ExecuteWithBreaker(h.breaker, func() (interface{}, error) {
		return h.store.MergeInteractionWeight(ctx, in.ItemID, in.UserID, w, in.Timestamp)
	})
	if err != nil {
		err = classify("merge interaction weight", err)
		if !IsPermanentError(err) {
			h.logger.Warn().Err(err).Int64("item_id", in.ItemID).Int64("user_id", in.UserID).Msg("Weight merge failed, will retry")
		}
		return h.counters.settle(err)
	}

	if applied, _ := result.(bool); applied {
		h.counters.applied.Add(1)
	} else {
		h.counters.ignored.Add(1)
	}
	return nil
}

// Stats returns the handler counters.
func (h *InteractionHandler) Stats() HandlerStats {
	return h.counters.snapshot()
}

// SimilarityStore merges similarity scores. *database.DB implements it.
type SimilarityStore interface {
	MergeItemSimilarity(ctx context.Context, itemA, itemB int64, score float64, ts int64) (bool, error)
}

// SimilarityHandler persists similarity updates with keep-the-maximum
// semantics. With several aggregator shards this is where their partial
// scores combine.
type SimilarityHandler struct {
	store      SimilarityStore
	breaker    *gobreaker.CircuitBreaker[interface{}]
	serializer *Serializer
	logger     zerolog.Logger

	counters handlerCounters
}

// NewSimilarityHandler creates the similarity persister. breaker may be nil.
func NewSimilarityHandler(store SimilarityStore, breaker *gobreaker.CircuitBreaker[interface{}], logger zerolog.Logger) (*SimilarityHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: similarity store required", ErrInvalidConfig)
	}
	return &SimilarityHandler{
		store:      store,
		breaker:    breaker,
		serializer: NewSerializer(),
		logger:     logger.With().Str("component", "similarity_handler").Logger(),
	}, nil
}

// Handle merges one similarity update into item_similarities.
func (h *SimilarityHandler) Handle(msg *message.Message) error {
	h.counters.received.Add(1)

	u, err := h.serializer.UnmarshalUpdate(msg.Payload)
	if err != nil {
		return h.counters.settle(NewPermanentError("malformed similarity update", err))
	}
	if err := u.Validate(); err != nil {
		return h.counters.settle(NewPermanentError("invalid similarity update", err))
	}

	ctx := messageContext(msg)
	result, err := ExecuteWithBreaker(h.breaker, func() (interface{}, error) {
		return h.store.MergeItemSimilarity(ctx, u.ItemA, u.ItemB, u.Score, u.Timestamp)
	})
	if err != nil {
		err = classify("merge item similarity", err)
		if !IsPermanentError(err) {
			h.logger.Warn().Err(err).Int64("item_a", u.ItemA).Int64("item_b", u.ItemB).Msg("Similarity merge failed, will retry")
		}
		return h.counters.settle(err)
	}

	if applied, _ := result.(bool); applied {
		h.counters.applied.Add(1)
	} else {
		h.counters.ignored.Add(1)
	}
	return nil
}

// Stats returns the handler counters.
func (h *SimilarityHandler) Stats() HandlerStats {
	return h.counters.snapshot()
}

func kindLabel(k models.InteractionKind) string {
	if k.Valid() {
		return k.String()
	}
	return "unknown"
}
