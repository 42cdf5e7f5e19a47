// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/itemsim/internal/models"
)

// ErrTooManyIDs is returned when a totals query exceeds Config.MaxBatchIDs.
var ErrTooManyIDs = errors.New("too many item ids")

// Repository is the read side of the durable store. *database.DB implements it.
type Repository interface {
	// SimilarItems returns rows touching itemID, best first; limit <= 0 means all.
	SimilarItems(ctx context.Context, itemID int64, limit int) ([]models.ItemSimilarity, error)
	UserItemWeights(ctx context.Context, userID int64) ([]models.InteractionWeight, error)
	SimilaritiesForItems(ctx context.Context, itemIDs []int64) ([]models.ItemSimilarity, error)
	InteractionTotals(ctx context.Context, itemIDs []int64) (map[int64]float64, error)
}

// Service answers similarity and recommendation queries from the durable
// store. It holds no mutable state other than the result cache and is safe
// for concurrent use.
type Service struct {
	cfg    Config
	repo   Repository
	cache  *resultCache
	logger zerolog.Logger

	requests atomic.Int64
	errors   atomic.Int64
}

// Stats are cumulative service counters.
type Stats struct {
	Requests int64 `json:"requests"`
	Errors   int64 `json:"errors"`
}

// NewService validates cfg and builds the cache.
func NewService(cfg Config, repo Repository, logger zerolog.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("recommend: repository is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommend config: %w", err)
	}
	cache, err := newResultCache(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:    cfg,
		repo:   repo,
		cache:  cache,
		logger: logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// Config returns the active configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Stats returns the request and error counters.
func (s *Service) Stats() Stats {
	return Stats{Requests: s.requests.Load(), Errors: s.errors.Load()}
}

// Close releases the cache.
func (s *Service) Close() {
	s.cache.close()
}

// clamp returns the effective result size; 0 means the query is empty.
func (s *Service) clamp(limit int) int {
	if limit <= 0 {
		return 0
	}
	if limit > s.cfg.MaxResults {
		return s.cfg.MaxResults
	}
	return limit
}

// InteractionTotals returns the summed persisted weight of each requested
// item, 0 for ids without rows. Duplicate ids are queried once.
func (s *Service) InteractionTotals(ctx context.Context, itemIDs []int64) (map[int64]float64, error) {
	s.requests.Add(1)
	if len(itemIDs) > s.cfg.MaxBatchIDs {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyIDs, len(itemIDs), s.cfg.MaxBatchIDs)
	}

	out := make(map[int64]float64, len(itemIDs))
	query := make([]int64, 0, len(itemIDs))
	for _, id := range itemIDs {
		if _, seen := out[id]; seen {
			continue
		}
		out[id] = 0
		if id > 0 {
			query = append(query, id)
		}
	}
	if len(query) == 0 {
		return out, nil
	}

	totals, err := s.repo.InteractionTotals(ctx, query)
	if err != nil {
		return nil, s.fail(err, "interaction totals")
	}
	for id, total := range totals {
		if _, wanted := out[id]; wanted {
			out[id] = total
		}
	}
	return out, nil
}

// SimilarItems returns the items most similar to itemID. When excludeUserID is
// positive, items that user already interacted with are left out.
func (s *Service) SimilarItems(ctx context.Context, itemID, excludeUserID int64, limit int) ([]models.ScoredItem, error) {
	s.requests.Add(1)
	limit = s.clamp(limit)
	if limit == 0 || itemID <= 0 {
		return []models.ScoredItem{}, nil
	}

	key := similarKey(itemID, excludeUserID, limit)
	if items, ok := s.cache.get(key); ok {
		return items, nil
	}
	start := time.Now()

	var exclude map[int64]struct{}
	fetch := limit
	if excludeUserID > 0 {
		history, err := s.repo.UserItemWeights(ctx, excludeUserID)
		if err != nil {
			return nil, s.fail(err, "user history")
		}
		if len(history) > 0 {
			exclude = make(map[int64]struct{}, len(history))
			for _, w := range history {
				exclude[w.ItemID] = struct{}{}
			}
			// Excluded rows may fill any prefix of the ranking.
			fetch = 0
		}
	}

	rows, err := s.repo.SimilarItems(ctx, itemID, fetch)
	if err != nil {
		return nil, s.fail(err, "similar items")
	}

	items := rankSimilar(itemID, rows, exclude, limit)
	s.cache.set(key, items)

	s.logger.Debug().
		Int64("item_id", itemID).
		Int64("exclude_user_id", excludeUserID).
		Int("results", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Similar items computed")
	return items, nil
}

// RecommendationsForUser scores every item similar to something in the user's
// history by the sum of weight(e) * sim(e, c) over history items e, and
// returns the best candidates not already in the history.
func (s *Service) RecommendationsForUser(ctx context.Context, userID int64, limit int) ([]models.ScoredItem, error) {
	s.requests.Add(1)
	limit = s.clamp(limit)
	if limit == 0 || userID <= 0 {
		return []models.ScoredItem{}, nil
	}

	key := recommendationsKey(userID, limit)
	if items, ok := s.cache.get(key); ok {
		return items, nil
	}
	start := time.Now()

	history, err := s.repo.UserItemWeights(ctx, userID)
	if err != nil {
		return nil, s.fail(err, "user history")
	}
	if len(history) == 0 {
		s.cache.set(key, nil)
		return []models.ScoredItem{}, nil
	}

	weights := make(map[int64]float64, len(history))
	ids := make([]int64, 0, len(history))
	for _, w := range history {
		if _, dup := weights[w.ItemID]; !dup {
			ids = append(ids, w.ItemID)
		}
		weights[w.ItemID] = w.Weight
	}

	rows, err := s.repo.SimilaritiesForItems(ctx, ids)
	if err != nil {
		return nil, s.fail(err, "history similarities")
	}

	items := scoreCandidates(weights, rows, limit)
	s.cache.set(key, items)

	s.logger.Debug().
		Int64("user_id", userID).
		Int("history", len(history)).
		Int("candidates_rows", len(rows)).
		Int("results", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Recommendations computed")
	return items, nil
}

func (s *Service) fail(err error, what string) error {
	s.errors.Add(1)
	return fmt.Errorf("%s: %w", what, err)
}
