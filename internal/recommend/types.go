// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"fmt"
	"strings"
	"time"
)

// InteractionRecord is a single user-item event from the interaction log.
// Several records may share the same (UserID, ItemID); each one counts.
type InteractionRecord struct {
	// UserID is the opaque user identifier.
	UserID string `json:"user_id"`

	// ItemID is the opaque item identifier.
	ItemID string `json:"item_id"`

	// Kind is the interaction label (view, click, purchase, ...).
	// It does not affect the count.
	Kind string `json:"kind"`
}

// Recommendation is a scored item.
type Recommendation struct {
	// ItemID is the recommended item.
	ItemID string `json:"item"`

	// Score is the recommendation score (higher is better).
	Score float64 `json:"score"`
}

// ScoringMode selects how the ranker orders and scores items.
type ScoringMode int

const (
	// ScoreMeanSimilarity ranks items by the raw neighbor count sum and gives
	// every returned item the mean neighbor similarity.
	ScoreMeanSimilarity ScoringMode = iota

	// ScoreWeighted ranks and scores items by the sum over neighbors of
	// similarity times count.
	ScoreWeighted
)

// String returns the mode name used in config and query strings.
func (m ScoringMode) String() string {
	switch m {
	case ScoreMeanSimilarity:
		return "mean_similarity"
	case ScoreWeighted:
		return "weighted"
	default:
		return "unknown"
	}
}

// ParseScoringMode parses a mode name. An empty string yields the baseline mode.
func ParseScoringMode(s string) (ScoringMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mean_similarity", "baseline":
		return ScoreMeanSimilarity, nil
	case "weighted":
		return ScoreWeighted, nil
	default:
		return 0, fmt.Errorf("unknown scoring mode %q", s)
	}
}

// Request is a recommendation query.
type Request struct {
	// UserID is the user to recommend for.
	UserID string `json:"user_id"`

	// TopN is the number of items to return.
	// Defaults to Config.Ranking.DefaultTopN if zero.
	TopN int `json:"top_n,omitempty"`

	// Mode overrides the configured scoring mode when set.
	Mode *ScoringMode `json:"-"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// Response is the result of a recommendation query.
type Response struct {
	// Items is the ordered list of recommended items.
	Items []Recommendation `json:"items"`

	// Metadata contains timing and diagnostic information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata contains timing and diagnostic information.
type ResponseMetadata struct {
	RequestID       string    `json:"request_id,omitempty"`
	UserID          string    `json:"user_id"`
	Mode            string    `json:"mode"`
	TopN            int       `json:"top_n"`
	Neighbors       int       `json:"neighbors"`
	CacheHit        bool      `json:"cache_hit"`
	SnapshotVersion int       `json:"snapshot_version"`
	BuiltAt         time.Time `json:"built_at"`
	LatencyMS       int64     `json:"latency_ms"`
}

// Neighbor is another user with their similarity to the query user.
type Neighbor struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// BuildStats describes one matrix build.
type BuildStats struct {
	// Records is the number of input records.
	Records int `json:"records"`

	// Skipped is the number of records dropped for an empty user or item id.
	Skipped int `json:"skipped"`

	// Users is the number of matrix rows.
	Users int `json:"users"`

	// Items is the number of matrix columns.
	Items int `json:"items"`
}

// SnapshotStats summarizes a loaded snapshot.
type SnapshotStats struct {
	Version              int       `json:"version"`
	Users                int       `json:"users"`
	Items                int       `json:"items"`
	Records              int       `json:"records"`
	Skipped              int       `json:"skipped"`
	NonZeroCells         int       `json:"non_zero_cells"`
	BuiltAt              time.Time `json:"built_at"`
	BuildDurationMS      int64     `json:"build_duration_ms"`
	SimilarityDurationMS int64     `json:"similarity_duration_ms"`
}
