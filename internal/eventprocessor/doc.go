// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

// Package eventprocessor moves interactions and similarity updates through
// NATS JetStream with Watermill.
//
// # Topology
//
//	interactions.<kind>  (stream INTERACTIONS)
//	    |-- consumer "aggregator"           -> AggregationHandler -> similarity.updates
//	    `-- consumer "interaction-weights"  -> InteractionHandler -> interaction_weights
//
//	similarity.updates   (stream SIMILARITY)
//	    `-- consumer "similarity-merge"     -> SimilarityHandler  -> item_similarities
//
// Each consumer is durable and independent, so the aggregator and the
// persisters progress at their own pace over the same interaction stream.
//
// # Delivery
//
// Messages are acked only after their effect is durable. The router stack is
//
//	Recoverer -> Retry -> [Throttle] -> PoisonQueue(permanent only) -> handler
//
// A PermanentError (malformed payload, invalid ids, unknown kind) is routed to
// the poison topic and acked. Any other error is retried with backoff and,
// once retries are exhausted, nacked for JetStream redelivery.
//
// The aggregation handler runs inside the owning shard goroutine:
//
//	apply -> publish -> journal -> ack
//
// Until the journal write succeeds any failure or panic reverts the in-memory
// change before nacking, so the journal never holds a weight whose updates
// were lost and a redelivery recomputes the same updates. Similarity
// messages carry a UUID derived from their content, which lets the JetStream
// duplicate window drop a republished update.
//
// # Embedded server
//
// EmbeddedServer runs a single-node JetStream server in process for
// deployments without an external NATS cluster.
package eventprocessor
