// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Aggregator Metrics
	InteractionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemsim_interactions_processed_total",
			Help: "Total interactions processed by the aggregator",
		},
		[]string{"kind", "result"}, // result: "applied", "noop", "rejected", "failed"
	)

	SimilarityUpdatesEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itemsim_similarity_updates_emitted_total",
			Help: "Total similarity updates published by the aggregator",
		},
	)

	AggregatorApplyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "itemsim_aggregator_apply_duration_seconds",
			Help:    "Time spent applying one interaction, including journaling and publishing",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	AggregatorStateEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "itemsim_aggregator_state_entries",
			Help: "Number of entries held in aggregator state",
		},
		[]string{"shard", "kind"}, // kind: "users", "items", "pairs", "matrix"
	)

	AggregatorEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itemsim_aggregator_evictions_total",
			Help: "Total users evicted from bounded aggregator shards",
		},
	)

	AggregatorRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itemsim_aggregator_rollbacks_total",
			Help: "Total state changes reverted after a failed publish, journal write or panic",
		},
	)

	// Journal Metrics
	JournalWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemsim_journal_writes_total",
			Help: "Total weight journal writes",
		},
		[]string{"result"},
	)

	JournalGCDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "itemsim_journal_gc_duration_seconds",
			Help:    "Duration of badger value log garbage collection runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Database Metrics
	MergeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemsim_merge_total",
			Help: "Total keep-the-maximum merges by outcome",
		},
		[]string{"table", "result"}, // result: "applied", "kept", "error"
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itemsim_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemsim_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// NATS Metrics
	NATSPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemsim_nats_publish_total",
			Help: "Total messages published to NATS",
		},
		[]string{"topic", "result"},
	)

	NATSConsumeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemsim_nats_consume_total",
			Help: "Total messages consumed from NATS by outcome",
		},
		[]string{"topic", "result"}, // result: "ack", "retry", "poison"
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemsim_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itemsim_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"route", "status"},
	)

	QueryCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemsim_query_cache_total",
			Help: "Query cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "itemsim_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemsim_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordInteraction records the outcome of one aggregated interaction.
func RecordInteraction(kind, result string, updates int, duration time.Duration) {
	InteractionsProcessed.WithLabelValues(kind, result).Inc()
	AggregatorApplyDuration.Observe(duration.Seconds())
	if updates > 0 {
		SimilarityUpdatesEmitted.Add(float64(updates))
	}
}

// RecordMerge records one upsert outcome.
func RecordMerge(table string, applied bool, err error) {
	switch {
	case err != nil:
		MergeTotal.WithLabelValues(table, "error").Inc()
	case applied:
		MergeTotal.WithLabelValues(table, "applied").Inc()
	default:
		MergeTotal.WithLabelValues(table, "kept").Inc()
	}
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordNATSPublish records a publish attempt on topic.
func RecordNATSPublish(topic string, count int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	NATSPublishTotal.WithLabelValues(topic, result).Add(float64(count))
}

// RecordNATSConsume records how a consumed message was settled.
func RecordNATSConsume(topic, result string) {
	NATSConsumeTotal.WithLabelValues(topic, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	APIRequestsTotal.WithLabelValues(method, route, code).Inc()
	APIRequestDuration.WithLabelValues(route, code).Observe(duration.Seconds())
}

// RecordCacheLookup records a query cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		QueryCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	QueryCacheTotal.WithLabelValues("miss").Inc()
}

// UpdateStateEntries publishes the size of one shard's state.
func UpdateStateEntries(shard, users, items, pairs, matrix int) {
	label := strconv.Itoa(shard)
	AggregatorStateEntries.WithLabelValues(label, "users").Set(float64(users))
	AggregatorStateEntries.WithLabelValues(label, "items").Set(float64(items))
	AggregatorStateEntries.WithLabelValues(label, "pairs").Set(float64(pairs))
	AggregatorStateEntries.WithLabelValues(label, "matrix").Set(float64(matrix))
}
