// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itemsim/internal/models"
)

// UserRecommendations handles GET /api/v1/users/{userID}/recommendations.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, apiErr := pathInt64(r, "userID", "user_id")
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	limit, apiErr := queryInt(r, "max", h.cfg.DefaultMaxResults)
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	req := RecommendationsRequest{UserID: userID, Max: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	items, err := h.recommender.RecommendationsForUser(ctx, req.UserID, req.Max)
	if err != nil {
		h.respondQueryError(w, r, err, "recommendations")
		return
	}
	respondSuccess(w, start, nonNil(items))
}

// SimilarItems handles GET /api/v1/items/{itemID}/similar.
func (h *Handler) SimilarItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	itemID, apiErr := pathInt64(r, "itemID", "item_id")
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	userID, apiErr := queryInt64(r, "user")
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	limit, apiErr := queryInt(r, "max", h.cfg.DefaultMaxResults)
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	req := SimilarRequest{ItemID: itemID, UserID: userID, Max: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	var exclude int64
	if req.UserID != nil {
		exclude = *req.UserID
	}
	items, err := h.recommender.SimilarItems(ctx, req.ItemID, exclude, req.Max)
	if err != nil {
		h.respondQueryError(w, r, err, "similar items")
		return
	}
	respondSuccess(w, start, nonNil(items))
}

// InteractionTotals handles GET /api/v1/items/interactions?ids=1,2,3.
func (h *Handler) InteractionTotals(w http.ResponseWriter, r *http.Request) {
	ids, apiErr := parseIDList(r.URL.Query().Get("ids"))
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	h.interactionTotals(w, r, models.InteractionTotalsRequest{ItemIDs: ids})
}

// InteractionTotalsBatch handles POST /api/v1/items/interactions.
func (h *Handler) InteractionTotalsBatch(w http.ResponseWriter, r *http.Request) {
	var req models.InteractionTotalsRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Request body must be {\"item_ids\": [...]}", nil)
		return
	}
	h.interactionTotals(w, r, req)
}

func (h *Handler) interactionTotals(w http.ResponseWriter, r *http.Request, req models.InteractionTotalsRequest) {
	start := time.Now()
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	totals, err := h.recommender.InteractionTotals(ctx, req.ItemIDs)
	if err != nil {
		h.respondQueryError(w, r, err, "interaction totals")
		return
	}
	respondSuccess(w, start, orderedTotals(req.ItemIDs, totals))
}

// nonNil keeps empty results serialized as [] rather than null.
func nonNil(items []models.ScoredItem) []models.ScoredItem {
	if items == nil {
		return []models.ScoredItem{}
	}
	return items
}
