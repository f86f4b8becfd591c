// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package metrics defines the Prometheus collectors of the recommendation
// service. Collectors are registered on the default registry through
// promauto and exposed by the /metrics handler.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/VernAnge/recommendations-app/internal/recommend"
)

var (
	// Snapshot Metrics
	SnapshotBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_matrix_build_duration_seconds",
			Help:    "Duration of interaction matrix builds in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	SimilarityDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_similarity_duration_seconds",
			Help:    "Duration of user similarity computation in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	SnapshotRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_snapshot_records",
			Help: "Interaction records folded into the current snapshot",
		},
	)

	SnapshotSkippedRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_snapshot_skipped_records",
			Help: "Records of the current snapshot dropped for an empty user or item",
		},
	)

	SnapshotUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_snapshot_users",
			Help: "Number of users in the current snapshot",
		},
	)

	SnapshotItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_snapshot_items",
			Help: "Number of items in the current snapshot",
		},
	)

	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_snapshot_version",
			Help: "Version of the snapshot currently serving",
		},
	)

	SnapshotBuildErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_snapshot_build_errors_total",
			Help: "Total number of failed snapshot builds",
		},
	)

	// Request Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"mode", "outcome"},
	)

	RecommendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_request_duration_seconds",
			Help:    "Recommendation latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"mode"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	// Refresh Metrics
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_refresh_total",
			Help: "Total number of scheduled snapshot refreshes",
		},
		[]string{"status"}, // "success", "error"
	)

	RefreshLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_refresh_last_success_timestamp",
			Help: "Unix timestamp of the last successful refresh",
		},
	)

	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_export_duration_seconds",
			Help:    "Duration of precomputed recommendation exports in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExportedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_exported_users",
			Help: "Number of users in the latest export",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRefresh records the result of a scheduled refresh.
func RecordRefresh(err error) {
	if err != nil {
		RefreshTotal.WithLabelValues("error").Inc()
		return
	}
	RefreshTotal.WithLabelValues("success").Inc()
	RefreshLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordExport records a completed export.
func RecordExport(users int, duration time.Duration) {
	ExportedUsers.Set(float64(users))
	ExportDuration.Observe(duration.Seconds())
}

// Recorder publishes engine events to the collectors above.
type Recorder struct{}

var _ recommend.Recorder = Recorder{}

// ObserveSnapshot implements recommend.Recorder.
func (Recorder) ObserveSnapshot(stats recommend.SnapshotStats) {
	SnapshotBuildDuration.Observe(msToSeconds(stats.BuildDurationMS))
	SimilarityDuration.Observe(msToSeconds(stats.SimilarityDurationMS))
	SnapshotRecords.Set(float64(stats.Records))
	SnapshotSkippedRecords.Set(float64(stats.Skipped))
	SnapshotUsers.Set(float64(stats.Users))
	SnapshotItems.Set(float64(stats.Items))
	SnapshotVersion.Set(float64(stats.Version))
}

// ObserveBuildError implements recommend.Recorder.
func (Recorder) ObserveBuildError() {
	SnapshotBuildErrors.Inc()
}

// ObserveRecommend implements recommend.Recorder.
func (Recorder) ObserveRecommend(mode, outcome string, d time.Duration) {
	RecommendRequests.WithLabelValues(mode, outcome).Inc()
	RecommendLatency.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveCache implements recommend.Recorder.
func (Recorder) ObserveCache(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}
