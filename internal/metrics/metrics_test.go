// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/VernAnge/recommendations-app/internal/recommend"
)

func TestRecorder_ObserveSnapshot(t *testing.T) {
	before := testutil.CollectAndCount(SnapshotBuildDuration)

	Recorder{}.ObserveSnapshot(recommend.SnapshotStats{
		Version:              4,
		Users:                3,
		Items:                5,
		Records:              7,
		Skipped:              1,
		BuildDurationMS:      12,
		SimilarityDurationMS: 30,
	})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"version", testutil.ToFloat64(SnapshotVersion), 4},
		{"users", testutil.ToFloat64(SnapshotUsers), 3},
		{"items", testutil.ToFloat64(SnapshotItems), 5},
		{"records", testutil.ToFloat64(SnapshotRecords), 7},
		{"skipped", testutil.ToFloat64(SnapshotSkippedRecords), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s gauge = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if after := testutil.CollectAndCount(SnapshotBuildDuration); after != before {
		t.Errorf("histogram should stay a single series, got %d", after)
	}
}

func TestRecorder_ObserveRecommend(t *testing.T) {
	r := Recorder{}
	okBefore := testutil.ToFloat64(RecommendRequests.WithLabelValues("weighted", recommend.OutcomeOK))
	missBefore := testutil.ToFloat64(RecommendRequests.WithLabelValues("weighted", recommend.OutcomeUserNotFound))

	r.ObserveRecommend("weighted", recommend.OutcomeOK, time.Millisecond)
	r.ObserveRecommend("weighted", recommend.OutcomeOK, 2*time.Millisecond)
	r.ObserveRecommend("weighted", recommend.OutcomeUserNotFound, time.Millisecond)

	if got := testutil.ToFloat64(RecommendRequests.WithLabelValues("weighted", recommend.OutcomeOK)) - okBefore; got != 2 {
		t.Errorf("ok requests delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(RecommendRequests.WithLabelValues("weighted", recommend.OutcomeUserNotFound)) - missBefore; got != 1 {
		t.Errorf("user_not_found delta = %v, want 1", got)
	}
}

func TestRecorder_ObserveCacheAndErrors(t *testing.T) {
	r := Recorder{}
	hits := testutil.ToFloat64(CacheHits)
	misses := testutil.ToFloat64(CacheMisses)
	buildErrors := testutil.ToFloat64(SnapshotBuildErrors)

	r.ObserveCache(true)
	r.ObserveCache(false)
	r.ObserveCache(false)
	r.ObserveBuildError()

	if got := testutil.ToFloat64(CacheHits) - hits; got != 1 {
		t.Errorf("cache hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CacheMisses) - misses; got != 2 {
		t.Errorf("cache misses delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(SnapshotBuildErrors) - buildErrors; got != 1 {
		t.Errorf("build errors delta = %v, want 1", got)
	}
}

func TestRecordRefresh(t *testing.T) {
	success := testutil.ToFloat64(RefreshTotal.WithLabelValues("success"))
	failed := testutil.ToFloat64(RefreshTotal.WithLabelValues("error"))

	RecordRefresh(nil)
	RecordRefresh(errors.New("source unavailable"))

	if got := testutil.ToFloat64(RefreshTotal.WithLabelValues("success")) - success; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(RefreshTotal.WithLabelValues("error")) - failed; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
	if testutil.ToFloat64(RefreshLastSuccess) <= 0 {
		t.Error("last success timestamp should be set")
	}
}

func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		endpoint string
		status   int
	}{
		{"recommendations", "GET", "/api/v1/recommendations/{userID}", 200},
		{"unknown user", "GET", "/api/v1/recommendations/{userID}", 404},
		{"not ready", "GET", "/api/v1/health/ready", 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, strconv.Itoa(tt.status))
			before := testutil.ToFloat64(c)
			RecordAPIRequest(tt.method, tt.endpoint, tt.status, 5*time.Millisecond)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("counter delta = %v, want 1", got)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}

func TestRecordExport(t *testing.T) {
	RecordExport(42, time.Second)
	if got := testutil.ToFloat64(ExportedUsers); got != 42 {
		t.Errorf("exported users = %v, want 42", got)
	}
}
