// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package main

import (
	"github.com/tomtom215/itemsim/internal/config"
	"github.com/tomtom215/itemsim/internal/database"
	"github.com/tomtom215/itemsim/internal/logging"
	"github.com/tomtom215/itemsim/internal/recommend"
)

// recommendConfig maps the api section onto the query service limits.
func recommendConfig(cfg *config.APIConfig) recommend.Config {
	rc := recommend.DefaultConfig()
	if cfg.MaxResults > 0 {
		rc.MaxResults = cfg.MaxResults
	}
	if cfg.MaxBatchIDs > 0 {
		rc.MaxBatchIDs = cfg.MaxBatchIDs
	}
	rc.CacheTTL = cfg.CacheTTL
	if cfg.CacheMaxEntries > 0 {
		rc.CacheMaxEntries = cfg.CacheMaxEntries
	}
	return rc
}

// InitRecommend builds the query service over db.
func InitRecommend(cfg *config.Config, db *database.DB) (*recommend.Service, error) {
	rc := recommendConfig(&cfg.API)
	svc, err := recommend.NewService(rc, db, logging.WithComponent("recommend"))
	if err != nil {
		return nil, err
	}
	logging.Info().
		Int("max_results", rc.MaxResults).
		Int("max_batch_ids", rc.MaxBatchIDs).
		Dur("cache_ttl", rc.CacheTTL).
		Msg("Recommendation service initialized")
	return svc, nil
}
