// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

/*
Package services adapts itemsim components to suture.Service.

Each wrapper translates one lifecycle pattern into Serve(ctx) error:

  - HTTPServerService: ListenAndServe plus Shutdown with a timeout
  - RunnerService: a blocking Run(ctx) error (event router, aggregator shards)
  - StartStopService: Start(ctx) error plus Stop() (journal GC runner)
  - TickerService: a function called on a fixed interval (state metrics)

Every wrapper implements fmt.Stringer so suture logs name the component.
*/
package services
