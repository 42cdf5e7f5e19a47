// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

/*
Package metrics provides Prometheus metrics for Itemsim.

All collectors are registered on the default registry through promauto and
exposed by the API server at /metrics:

	curl http://localhost:8080/metrics

Aggregator Metrics:
  - itemsim_interactions_processed_total{kind,result}
  - itemsim_similarity_updates_emitted_total
  - itemsim_aggregator_apply_duration_seconds
  - itemsim_aggregator_state_entries{shard,kind}
  - itemsim_aggregator_evictions_total
  - itemsim_aggregator_rollbacks_total

Persistence Metrics:
  - itemsim_merge_total{table,result}
  - itemsim_db_query_duration_seconds{operation,table}
  - itemsim_journal_writes_total{result}

Messaging Metrics:
  - itemsim_nats_publish_total{topic,result}
  - itemsim_nats_consume_total{topic,result}

API Metrics:
  - itemsim_api_requests_total{method,route,status}
  - itemsim_api_request_duration_seconds{route,status}
  - itemsim_query_cache_total{result}

Callers use the Record* helpers rather than touching collectors directly
where a helper exists.
*/
package metrics
