// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/itemsim/internal/config"
	"github.com/tomtom215/itemsim/internal/eventprocessor"
	"github.com/tomtom215/itemsim/internal/models"
	"github.com/tomtom215/itemsim/internal/recommend"
)

// Recommender answers the query endpoints. *recommend.Service implements it.
type Recommender interface {
	InteractionTotals(ctx context.Context, itemIDs []int64) (map[int64]float64, error)
	SimilarItems(ctx context.Context, itemID, excludeUserID int64, limit int) ([]models.ScoredItem, error)
	RecommendationsForUser(ctx context.Context, userID int64, limit int) ([]models.ScoredItem, error)
}

// HealthReporter backs the readiness probe. *eventprocessor.HealthChecker
// implements it.
type HealthReporter interface {
	CheckAll(ctx context.Context) eventprocessor.OverallHealth
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	recommender Recommender
	health      HealthReporter
	cfg         config.APIConfig
	startTime   time.Time
}

// NewHandler creates the API handler. health may be nil, in which case the
// readiness probe only reports the process as up.
func NewHandler(recommender Recommender, health HealthReporter, cfg config.APIConfig) (*Handler, error) {
	if recommender == nil {
		return nil, errors.New("api: recommender is required")
	}
	if cfg.DefaultMaxResults <= 0 {
		cfg.DefaultMaxResults = 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Handler{
		recommender: recommender,
		health:      health,
		cfg:         cfg,
		startTime:   time.Now(),
	}, nil
}

func (h *Handler) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
}

// respondQueryError maps a query failure to a status code.
func (h *Handler) respondQueryError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, recommend.ErrTooManyIDs):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, ErrCodeQueryTimeout, "Query timed out", err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeQueryFailed, "Failed to load "+what, err)
	}
}
