// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

/*
Package api serves the read-only HTTP query interface.

Routes:

	GET  /health/live                                liveness, always 200
	GET  /health/ready                               503 unless every dependency is healthy
	GET  /metrics                                    Prometheus exposition
	GET  /api/v1/users/{userID}/recommendations      ?max=N
	GET  /api/v1/items/{itemID}/similar              ?user=U&max=N
	GET  /api/v1/items/interactions                  ?ids=1,2,3
	POST /api/v1/items/interactions                  {"item_ids": [1, 2, 3]}

Every response uses the models.APIResponse envelope. Path and query
parameters are validated with the validation package; failures return 400
with code VALIDATION_ERROR. Store failures return 500.

The middleware stack, outermost first: request id, real ip, request log,
panic recovery, CORS. The /api/v1 group adds per-IP rate limiting and
Prometheus instrumentation.
*/
package api
