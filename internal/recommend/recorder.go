// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"context"
	"errors"
	"time"
)

// Recorder receives engine events for metrics. Implementations must be safe
// for concurrent use. The metrics package provides the Prometheus one.
type Recorder interface {
	ObserveSnapshot(stats SnapshotStats)
	ObserveBuildError()
	ObserveRecommend(mode, outcome string, d time.Duration)
	ObserveCache(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSnapshot(SnapshotStats)                  {}
func (nopRecorder) ObserveBuildError()                             {}
func (nopRecorder) ObserveRecommend(string, string, time.Duration) {}
func (nopRecorder) ObserveCache(bool)                              {}

// Outcome labels
const (
	OutcomeOK             = "ok"
	OutcomeUserNotFound   = "user_not_found"
	OutcomeEmptyNeighbors = "empty_neighbors"
	OutcomeNoSnapshot     = "no_snapshot"
	OutcomeCanceled       = "canceled"
	OutcomeError          = "error"
)

// Outcome maps an engine error to a low-cardinality metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrUserNotFound):
		return OutcomeUserNotFound
	case errors.Is(err, ErrEmptyNeighborSet):
		return OutcomeEmptyNeighbors
	case errors.Is(err, ErrNoSnapshot):
		return OutcomeNoSnapshot
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
