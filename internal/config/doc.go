// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

/*
Package config loads and validates Itemsim configuration with koanf.

Configuration is layered, later sources overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml or /etc/itemsim/config.yaml
 3. Environment variables listed in the mapping table

Example config.yaml:

	aggregator:
	  shards: 1
	  restore: journal
	weights:
	  view: 0.4
	  register: 0.8
	  like: 1.0
	nats:
	  embedded_server: true

Frequently used environment variables:

	LOG_LEVEL, HTTP_PORT, DUCKDB_PATH, NATS_URL, NATS_EMBEDDED,
	AGGREGATOR_SHARDS, AGGREGATOR_RESTORE, JOURNAL_PATH,
	WEIGHT_VIEW, WEIGHT_REGISTER, WEIGHT_LIKE

Validation runs per section. A non-positive weight, an unknown restore
strategy or an out-of-range port stops startup before any traffic is served.
*/
package config
