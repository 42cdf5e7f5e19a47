// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/itemsim/internal/models"
)

// HealthLive handles the liveness probe. It reports the process as alive
// regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady handles the readiness probe: 200 when every registered
// component is healthy (degraded counts as healthy), 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.health == nil {
		respondSuccess(w, start, map[string]interface{}{"ready": true})
		return
	}

	overall := h.health.CheckAll(r.Context())
	if !overall.Healthy {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     overall,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error: &models.APIError{
				Code:    ErrCodeServiceUnavailable,
				Message: "Service not ready",
			},
		})
		return
	}
	respondSuccess(w, start, overall)
}
