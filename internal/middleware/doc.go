// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

/*
Package middleware provides the HTTP middleware of the query API.

Key Components:

  - RequestID: X-Request-ID propagation into chi and the logging context
  - RequestLogger: one zerolog line per request
  - PrometheusMetrics: request count and latency labelled by chi route pattern

All three are chi-compatible func(http.Handler) http.Handler values:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.PrometheusMetrics)

Route labels come from the matched chi pattern ("/api/v1/items/{itemID}/similar"),
so metric cardinality does not grow with the id space. Requests that match no
route are labelled "unmatched".
*/
package middleware
