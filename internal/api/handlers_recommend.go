// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/VernAnge/recommendations-app/internal/export"
	"github.com/VernAnge/recommendations-app/internal/logging"
	"github.com/VernAnge/recommendations-app/internal/recommend"
	"github.com/VernAnge/recommendations-app/internal/validation"
)

// DefaultRequestTimeout bounds a single recommendation request.
const DefaultRequestTimeout = 10 * time.Second

// Recommender is the engine surface the handlers use.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
	Neighbors(ctx context.Context, userID string, limit int) ([]recommend.Neighbor, error)
	Stats() recommend.EngineStats
	Ready() bool
}

// ExportReader reads precomputed lists. *export.Store implements it.
type ExportReader interface {
	Get(ctx context.Context, userID string) (*export.Entry, error)
	Latest() (*export.Manifest, error)
}

// Handler serves the recommendation endpoints.
type Handler struct {
	engine    Recommender
	exports   ExportReader
	timeout   time.Duration
	maxTopN   int
	startTime time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithExports enables the precomputed endpoint.
func WithExports(r ExportReader) HandlerOption {
	return func(h *Handler) { h.exports = r }
}

// WithMaxTopN sets the largest accepted top_n. By default it is taken from
// the engine configuration when the engine exposes one.
func WithMaxTopN(n int) HandlerOption {
	return func(h *Handler) { h.maxTopN = n }
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHandler creates a handler serving engine.
func NewHandler(engine Recommender, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:    engine,
		timeout:   DefaultRequestTimeout,
		startTime: time.Now(),
	}
	if c, ok := engine.(interface{ Config() *recommend.Config }); ok {
		h.maxTopN = c.Config().Ranking.MaxTopN
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetRecommendations handles GET /api/v1/recommendations/{userID}?top_n=&mode=
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, err := parseRecommendationsRequest(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}
	if h.maxTopN > 0 && req.TopN > h.maxTopN {
		msg := fmt.Sprintf("top_n must be at most %d", h.maxTopN)
		rw.ValidationError(msg, []validation.FieldError{{
			Field: "top_n", Tag: "max", Param: strconv.Itoa(h.maxTopN), Message: msg,
		}})
		return
	}

	engineReq := recommend.Request{
		UserID:    req.UserID,
		TopN:      req.TopN,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if req.Mode != "" {
		mode, err := recommend.ParseScoringMode(req.Mode)
		if err != nil {
			rw.BadRequest(err.Error())
			return
		}
		engineReq.Mode = &mode
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.engine.Recommend(ctx, engineReq)
	if err != nil {
		RespondEngineError(w, r, err)
		return
	}
	rw.Success(resp)
}

// GetNeighbors handles GET /api/v1/recommendations/{userID}/neighbors?limit=
func (h *Handler) GetNeighbors(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, err := parseNeighborsRequest(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	neighbors, err := h.engine.Neighbors(ctx, req.UserID, req.Limit)
	if err != nil {
		RespondEngineError(w, r, err)
		return
	}
	rw.Success(map[string]any{
		"user_id":   req.UserID,
		"neighbors": neighbors,
		"count":     len(neighbors),
	})
}

// GetPrecomputed handles GET /api/v1/recommendations/{userID}/precomputed
// and reads the list written by the last export instead of ranking live.
func (h *Handler) GetPrecomputed(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.exports == nil {
		rw.NotFound("precomputed recommendations are not enabled")
		return
	}

	req := PrecomputedRequest{UserID: userIDParam(r)}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}

	entry, err := h.exports.Get(r.Context(), req.UserID)
	switch {
	case errors.Is(err, export.ErrNotFound):
		rw.Error(http.StatusNotFound, ErrCodeNotFound, err.Error())
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Export lookup failed")
		rw.InternalError("failed to read precomputed recommendations")
	default:
		rw.Success(entry)
	}
}

// StatusResponse is the body of GET /api/v1/recommendations/status.
type StatusResponse struct {
	recommend.EngineStats
	Export *export.Manifest `json:"export,omitempty"`
}

// GetStatus handles GET /api/v1/recommendations/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := StatusResponse{EngineStats: h.engine.Stats()}
	if h.exports != nil {
		if m, err := h.exports.Latest(); err == nil {
			status.Export = m
		}
	}
	WriteSuccess(w, r, status)
}

// HealthLive handles GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]any{
		"status":         "alive",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

// HealthReady handles GET /api/v1/health/ready. It answers 503 until the
// first snapshot is loaded.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Ready() {
		NewResponseWriter(w, r).ServiceUnavailable(ErrCodeNotReady, "no recommendation snapshot is loaded yet")
		return
	}
	body := map[string]any{"status": "ready"}
	if snap := h.engine.Stats().Snapshot; snap != nil {
		body["snapshot_version"] = snap.Version
		body["built_at"] = snap.BuiltAt
	}
	WriteSuccess(w, r, body)
}
