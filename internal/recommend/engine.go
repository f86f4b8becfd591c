// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/VernAnge/recommendations-app/internal/cache"
)

// Engine serves recommendations from the current snapshot.
// It is safe for concurrent use. Snapshots are swapped atomically as a whole;
// queries in flight keep using the snapshot they started with.
type Engine struct {
	config *Config
	logger zerolog.Logger

	similarity *SimilarityEngine
	ranker     *Ranker

	current     atomic.Pointer[Snapshot]
	lastVersion atomic.Int64
	buildMu     sync.Mutex

	cache    cache.Cacher[[]Recommendation]
	recorder Recorder

	requestCount atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	errorCount   atomic.Int64
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithCache replaces the result cache. A nil cache disables caching.
func WithCache(c cache.Cacher[[]Recommendation]) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

// NewEngine creates a recommendation engine with no snapshot loaded.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		config:     cfg.Clone(),
		logger:     logger.With().Str("component", "recommend").Logger(),
		similarity: NewSimilarityEngine(cfg.Similarity, logger),
		ranker:     NewRanker(cfg.Ranking.Mode, cfg.Ranking.DefaultTopN),
		recorder:   nopRecorder{},
	}
	if cfg.Cache.Enabled {
		e.cache = cache.NewLRU[[]Recommendation](cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Build runs the batch pipeline on records and makes the result current.
// Concurrent builds are serialized. On error the current snapshot is kept.
func (e *Engine) Build(ctx context.Context, records []InteractionRecord) (*Snapshot, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	version := int(e.lastVersion.Load()) + 1
	snap, err := BuildSnapshot(ctx, records, e.similarity, version)
	if err != nil {
		e.recorder.ObserveBuildError()
		e.logger.Error().Err(err).Int("records", len(records)).Msg("snapshot build failed")
		return nil, err
	}

	if err := e.Load(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Load makes snap the current snapshot, for example one restored from disk.
func (e *Engine) Load(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("load snapshot: %w", ErrNoSnapshot)
	}
	if !snap.Similarity.Users().Equal(snap.Training.Users()) {
		return fmt.Errorf("load snapshot: %w", ErrDimensionMismatch)
	}

	prev := e.current.Swap(snap)
	e.advanceVersion(snap.Version)
	if e.cache != nil {
		e.cache.Clear()
	}

	stats := snap.Stats()
	e.recorder.ObserveSnapshot(stats)

	evt := e.logger.Info().
		Int("version", stats.Version).
		Int("users", stats.Users).
		Int("items", stats.Items).
		Int("records", stats.Records).
		Int("skipped", stats.Skipped).
		Int64("build_ms", stats.BuildDurationMS).
		Int64("similarity_ms", stats.SimilarityDurationMS)
	if prev != nil {
		evt = evt.Int("previous_version", prev.Version)
	}
	evt.Msg("snapshot loaded")
	return nil
}

// SeedVersion makes the next build numbered above version. Use it with the
// latest persisted version so a fresh engine never reuses a stored number.
// A version at or below the current sequence is ignored.
func (e *Engine) SeedVersion(version int) {
	e.advanceVersion(version)
}

// LastVersion returns the highest version built, loaded or seeded so far.
func (e *Engine) LastVersion() int {
	return int(e.lastVersion.Load())
}

func (e *Engine) advanceVersion(version int) {
	for {
		last := e.lastVersion.Load()
		if int64(version) <= last || e.lastVersion.CompareAndSwap(last, int64(version)) {
			return
		}
	}
}

// Current returns the live snapshot, or nil if none is loaded.
func (e *Engine) Current() *Snapshot {
	return e.current.Load()
}

// Ready reports whether a snapshot is loaded.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// Recommend returns recommendations for req.UserID from the current snapshot.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	req = e.prepareRequest(req)
	mode := e.config.Ranking.Mode
	if req.Mode != nil {
		mode = *req.Mode
	}
	logger := e.logger.With().
		Str("request_id", req.RequestID).
		Str("user_id", req.UserID).
		Logger()

	resp, err := e.recommend(ctx, req, mode, start, logger)
	e.recorder.ObserveRecommend(mode.String(), Outcome(err), time.Since(start))
	if err != nil {
		e.errorCount.Add(1)
		logger.Debug().Err(err).Msg("recommendation failed")
		return nil, err
	}

	logger.Debug().
		Int("returned", len(resp.Items)).
		Bool("cache_hit", resp.Metadata.CacheHit).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("recommendation complete")
	return resp, nil
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) recommend(ctx context.Context, req Request, mode ScoringMode, start time.Time, logger zerolog.Logger) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	if req.UserID == "" {
		return nil, &UserNotFoundError{UserID: req.UserID}
	}

	meta := ResponseMetadata{
		RequestID:       req.RequestID,
		UserID:          req.UserID,
		Mode:            mode.String(),
		TopN:            req.TopN,
		Neighbors:       snap.Similarity.Len() - 1,
		SnapshotVersion: snap.Version,
		BuiltAt:         snap.BuiltAt,
	}

	key := cacheKey(snap.Version, req.UserID, req.TopN, mode)
	if e.cache != nil {
		if items, ok := e.cache.Get(key); ok {
			e.cacheHits.Add(1)
			e.recorder.ObserveCache(true)
			logger.Debug().Msg("cache hit")
			meta.CacheHit = true
			meta.LatencyMS = time.Since(start).Milliseconds()
			return &Response{Items: copyRecommendations(items), Metadata: meta}, nil
		}
		e.cacheMisses.Add(1)
		e.recorder.ObserveCache(false)
	}

	items, err := e.ranker.Recommend(req.UserID, snap.Similarity, snap.Training, RankOptions{TopN: req.TopN, Mode: &mode})
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Add(key, copyRecommendations(items))
	}

	meta.LatencyMS = time.Since(start).Milliseconds()
	return &Response{Items: items, Metadata: meta}, nil
}

// prepareRequest applies defaults and generates a request ID if needed.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) Request {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.TopN <= 0 {
		req.TopN = e.config.Ranking.DefaultTopN
	}
	if req.TopN > e.config.Ranking.MaxTopN {
		req.TopN = e.config.Ranking.MaxTopN
	}
	return req
}

// Neighbors returns the most similar users to userID from the current
// snapshot. A non-positive limit returns the whole neighbor set.
func (e *Engine) Neighbors(ctx context.Context, userID string, limit int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	neighbors, err := Neighbors(strings.TrimSpace(userID), snap.Similarity)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(neighbors) {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

// RecommendAll computes recommendations for every user of the current
// snapshot and calls fn for each, in user id order. The cache is bypassed.
// Users without neighbors are skipped.
func (e *Engine) RecommendAll(ctx context.Context, topN int, fn func(userID string, items []Recommendation) error) (*Snapshot, error) {
	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	if topN <= 0 {
		topN = e.config.Ranking.DefaultTopN
	}
	for _, userID := range snap.Training.users.keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := e.ranker.Recommend(userID, snap.Similarity, snap.Training, RankOptions{TopN: topN})
		if errors.Is(err, ErrEmptyNeighborSet) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := fn(userID, items); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// EngineStats reports request counters and the live snapshot.
type EngineStats struct {
	Ready        bool           `json:"ready"`
	Snapshot     *SnapshotStats `json:"snapshot,omitempty"`
	RequestCount int64          `json:"request_count"`
	CacheHits    int64          `json:"cache_hits"`
	CacheMisses  int64          `json:"cache_misses"`
	ErrorCount   int64          `json:"error_count"`
	CacheSize    int            `json:"cache_size"`
}

// Stats returns current engine statistics.
func (e *Engine) Stats() EngineStats {
	s := EngineStats{
		RequestCount: e.requestCount.Load(),
		CacheHits:    e.cacheHits.Load(),
		CacheMisses:  e.cacheMisses.Load(),
		ErrorCount:   e.errorCount.Load(),
	}
	if snap := e.current.Load(); snap != nil {
		st := snap.Stats()
		s.Ready = true
		s.Snapshot = &st
	}
	if e.cache != nil {
		s.CacheSize = e.cache.Stats().Size
	}
	return s
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

func cacheKey(version int, userID string, topN int, mode ScoringMode) string {
	return strconv.Itoa(version) + "|" + userID + "|" + strconv.Itoa(topN) + "|" + mode.String()
}

func copyRecommendations(in []Recommendation) []Recommendation {
	out := make([]Recommendation, len(in))
	copy(out, in)
	return out
}
