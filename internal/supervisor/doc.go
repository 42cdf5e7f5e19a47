// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

/*
Package supervisor runs the long-lived services of itemsim under a suture v4
supervisor tree.

The tree has three layers below the root:

	itemsim
	├── data-layer        aggregator shards, journal GC, state metrics
	├── messaging-layer   Watermill event router
	└── api-layer         HTTP query server

A service that returns or panics is restarted by its layer with suture's
failure backoff; the other layers keep running. Supervisor events are logged
through sutureslog on the slog adapter of the logging package.

Shutdown cancels the root context. Services get TreeConfig.ShutdownTimeout
to return; UnstoppedServiceReport lists the ones that did not.
*/
package supervisor
