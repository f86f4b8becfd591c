// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Align builds the evaluation matrix from an independently resampled log.
// It has the same contract as BuildMatrix. The result's column space is
// generally different from training's; use SharedItems and Project before
// comparing the two cell for cell.
func Align(training *InteractionMatrix, records []InteractionRecord) (*InteractionMatrix, error) {
	if training == nil {
		return nil, fmt.Errorf("align: training matrix is nil")
	}
	m, err := BuildMatrix(records)
	if err != nil {
		return nil, fmt.Errorf("align evaluation records: %w", err)
	}
	return m, nil
}

// SharedItems returns the item ids present in both matrices, ascending.
func SharedItems(a, b *InteractionMatrix) []string {
	shared := make([]string, 0)
	for _, item := range a.items.keys {
		if b.items.Contains(item) {
			shared = append(shared, item)
		}
	}
	return shared
}

// Project returns a copy of m whose columns are exactly items, in ascending
// order. Items m does not know become all-zero columns. Rows are unchanged.
func Project(m *InteractionMatrix, items []string) (*InteractionMatrix, error) {
	cols := NewIndex(items)
	if cols.Len() == 0 {
		return nil, fmt.Errorf("%w: no items to project onto", ErrEmptyInput)
	}

	rows := m.users.Len()
	out := mat.NewDense(rows, cols.Len(), nil)
	for c, item := range cols.keys {
		src, ok := m.items.Position(item)
		if !ok {
			continue
		}
		for r := 0; r < rows; r++ {
			out.Set(r, c, m.counts.At(r, src))
		}
	}

	stats := m.stats
	stats.Items = cols.Len()
	return &InteractionMatrix{users: m.users, items: cols, counts: out, stats: stats}, nil
}

// EvaluationReport measures how well recommendations from a snapshot match
// what users did in the evaluation log.
type EvaluationReport struct {
	// Users is the number of users present in both matrices.
	Users int `json:"users"`

	// SharedItems is the size of the shared column space.
	SharedItems int `json:"shared_items"`

	// EvaluatedUsers counts shared users with at least one shared item
	// in the evaluation log.
	EvaluatedUsers int `json:"evaluated_users"`

	// Hits is the total number of recommended items the user interacted
	// with in the evaluation log.
	Hits int `json:"hits"`

	// HitRate is the share of evaluated users with at least one hit.
	HitRate float64 `json:"hit_rate"`

	// PrecisionAtN is the mean over evaluated users of hits / returned items.
	PrecisionAtN float64 `json:"precision_at_n"`

	TopN int    `json:"top_n"`
	Mode string `json:"mode"`
}

// Evaluate recommends for every user found in both the snapshot and eval,
// and scores the recommendations against the user's evaluation items over
// the shared column space.
func Evaluate(ctx context.Context, snap *Snapshot, eval *InteractionMatrix, topN int, mode ScoringMode) (*EvaluationReport, error) {
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	report := &EvaluationReport{TopN: topN, Mode: mode.String()}

	shared := SharedItems(snap.Training, eval)
	report.SharedItems = len(shared)
	if len(shared) == 0 {
		return report, nil
	}
	projected, err := Project(eval, shared)
	if err != nil {
		return nil, err
	}

	ranker := NewRanker(mode, topN)
	usersWithHit := 0
	var precisionSum float64

	for r, userID := range projected.users.keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !snap.Training.users.Contains(userID) {
			continue
		}
		report.Users++

		row := projected.counts.RawRowView(r)
		relevant := 0
		for _, v := range row {
			if v > 0 {
				relevant++
			}
		}
		if relevant == 0 {
			continue
		}

		recs, err := ranker.Recommend(userID, snap.Similarity, snap.Training, RankOptions{TopN: topN})
		if errors.Is(err, ErrEmptyNeighborSet) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("evaluate user %q: %w", userID, err)
		}
		report.EvaluatedUsers++

		hits := 0
		for _, rec := range recs {
			if c, ok := projected.items.Position(rec.ItemID); ok && row[c] > 0 {
				hits++
			}
		}
		report.Hits += hits
		if hits > 0 {
			usersWithHit++
		}
		if len(recs) > 0 {
			precisionSum += float64(hits) / float64(len(recs))
		}
	}

	if report.EvaluatedUsers > 0 {
		report.HitRate = float64(usersWithHit) / float64(report.EvaluatedUsers)
		report.PrecisionAtN = precisionSum / float64(report.EvaluatedUsers)
	}
	return report, nil
}
