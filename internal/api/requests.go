// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/itemsim/internal/models"
	"github.com/tomtom215/itemsim/internal/validation"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

// RecommendationsRequest holds the parameters of the user recommendations query.
type RecommendationsRequest struct {
	UserID int64 `json:"user_id" validate:"entityid"`
	Max    int   `json:"max" validate:"gte=0"`
}

// SimilarRequest holds the parameters of the similar items query. A nil
// UserID means no exclusion.
type SimilarRequest struct {
	ItemID int64  `json:"item_id" validate:"entityid"`
	UserID *int64 `json:"user" validate:"omitempty,entityid"`
	Max    int    `json:"max" validate:"gte=0"`
}

// validateRequest runs the struct validator and converts failures to the
// API error body.
func validateRequest(req interface{}) *models.APIError {
	verr := validation.ValidateStruct(req)
	if verr == nil {
		return nil
	}
	e := verr.ToAPIError()
	return &models.APIError{Code: e.Code, Message: e.Message, Details: e.Details}
}

func invalidParam(name, raw string) *models.APIError {
	return &models.APIError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("%s must be an integer", name),
		Details: map[string]interface{}{"field": name, "value": raw},
	}
}

// pathInt64 parses a chi URL parameter. Range checks are left to the
// validator.
func pathInt64(r *http.Request, param, name string) (int64, *models.APIError) {
	raw := chi.URLParam(r, param)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalidParam(name, raw)
	}
	return v, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, *models.APIError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name, raw)
	}
	return v, nil
}

// queryInt64 parses an optional int64 query parameter; absent is nil.
func queryInt64(r *http.Request, name string) (*int64, *models.APIError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, invalidParam(name, raw)
	}
	return &v, nil
}

// parseIDList splits a comma separated id list. Empty input and empty
// segments ("1,,2", trailing commas) are skipped.
func parseIDList(raw string) ([]int64, *models.APIError) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, invalidParam("ids", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// orderedTotals lists totals in first-seen request order without duplicates.
func orderedTotals(ids []int64, totals map[int64]float64) []models.ItemTotal {
	out := make([]models.ItemTotal, 0, len(totals))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, models.ItemTotal{ItemID: id, Total: totals[id]})
	}
	return out
}
