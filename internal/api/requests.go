// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RecommendationsRequest is the validated input of GET /recommendations/{userID}.
type RecommendationsRequest struct {
	UserID string `form:"user_id" validate:"required,max=256"`
	TopN   int    `form:"top_n" validate:"min=0,max=1000"`
	Mode   string `form:"mode" validate:"omitempty,oneof=mean_similarity baseline weighted"`
}

// NeighborsRequest is the validated input of GET /recommendations/{userID}/neighbors.
type NeighborsRequest struct {
	UserID string `form:"user_id" validate:"required,max=256"`
	Limit  int    `form:"limit" validate:"min=0,max=10000"`
}

// PrecomputedRequest is the validated input of GET /recommendations/{userID}/precomputed.
type PrecomputedRequest struct {
	UserID string `form:"user_id" validate:"required,max=256"`
}

func parseRecommendationsRequest(r *http.Request) (RecommendationsRequest, error) {
	req := RecommendationsRequest{
		UserID: userIDParam(r),
		Mode:   strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode"))),
	}
	topN, err := intQuery(r, "top_n")
	if err != nil {
		return req, err
	}
	req.TopN = topN
	return req, nil
}

func parseNeighborsRequest(r *http.Request) (NeighborsRequest, error) {
	req := NeighborsRequest{UserID: userIDParam(r)}
	limit, err := intQuery(r, "limit")
	if err != nil {
		return req, err
	}
	req.Limit = limit
	return req, nil
}

func userIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "userID"))
}

// intQuery returns 0 for an absent parameter and an error for a malformed one.
func intQuery(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return v, nil
}
