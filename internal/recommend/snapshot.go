// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"context"
	"fmt"
	"time"
)

// Snapshot bundles a training matrix with the similarity matrix computed
// from it. A snapshot is never modified after construction, so it can be
// shared across goroutines without locking.
type Snapshot struct {
	Training   *InteractionMatrix
	Similarity *SimilarityMatrix

	// Version increases by one with every build served by an Engine.
	Version int

	BuiltAt            time.Time
	BuildDuration      time.Duration
	SimilarityDuration time.Duration
}

// NewSnapshot pairs a training matrix with its similarity matrix.
// Returns ErrDimensionMismatch if the two do not share the same users.
func NewSnapshot(training *InteractionMatrix, sim *SimilarityMatrix, version int, builtAt time.Time) (*Snapshot, error) {
	if training == nil || sim == nil {
		return nil, fmt.Errorf("snapshot requires both matrices")
	}
	if !sim.Users().Equal(training.Users()) {
		return nil, ErrDimensionMismatch
	}
	return &Snapshot{
		Training:   training,
		Similarity: sim,
		Version:    version,
		BuiltAt:    builtAt,
	}, nil
}

// BuildSnapshot runs the full batch pipeline: matrix construction followed
// by the similarity computation.
func BuildSnapshot(ctx context.Context, records []InteractionRecord, engine *SimilarityEngine, version int) (*Snapshot, error) {
	start := time.Now()

	training, err := BuildMatrix(records)
	if err != nil {
		return nil, fmt.Errorf("build interaction matrix: %w", err)
	}

	simStart := time.Now()
	sim, err := engine.Compute(ctx, training)
	if err != nil {
		return nil, err
	}
	simDuration := time.Since(simStart)

	snap, err := NewSnapshot(training, sim, version, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	snap.SimilarityDuration = simDuration
	snap.BuildDuration = time.Since(start)
	return snap, nil
}

// Stats summarizes the snapshot.
func (s *Snapshot) Stats() SnapshotStats {
	users, items := s.Training.Dims()
	bs := s.Training.Stats()
	return SnapshotStats{
		Version:              s.Version,
		Users:                users,
		Items:                items,
		Records:              bs.Records,
		Skipped:              bs.Skipped,
		NonZeroCells:         s.Training.NonZero(),
		BuiltAt:              s.BuiltAt,
		BuildDurationMS:      s.BuildDuration.Milliseconds(),
		SimilarityDurationMS: s.SimilarityDuration.Milliseconds(),
	}
}
