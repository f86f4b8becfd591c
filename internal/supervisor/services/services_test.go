// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/VernAnge/recommendations-app/internal/export"
	"github.com/VernAnge/recommendations-app/internal/metrics"
	"github.com/VernAnge/recommendations-app/internal/recommend"
	"github.com/VernAnge/recommendations-app/internal/recommend/storage"
)

// Compile-time interface checks
var (
	_ suture.Service = (*HTTPService)(nil)
	_ suture.Service = (*RefreshService)(nil)
	_ HTTPServer     = (*http.Server)(nil)
	_ Engine         = (*recommend.Engine)(nil)
	_ SnapshotStore  = (*storage.Store)(nil)
	_ Exporter       = (*export.Store)(nil)
)

// fakeSource serves fixed records, or err when set.
type fakeSource struct {
	records []recommend.InteractionRecord
	err     error
	loads   atomic.Int32
}

func (f *fakeSource) Load(context.Context) ([]recommend.InteractionRecord, error) {
	f.loads.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) String() string { return "fake" }

func exampleRecords() []recommend.InteractionRecord {
	return []recommend.InteractionRecord{
		{UserID: "u1", ItemID: "i1"},
		{UserID: "u1", ItemID: "i1"},
		{UserID: "u1", ItemID: "i2"},
		{UserID: "u2", ItemID: "i1"},
		{UserID: "u2", ItemID: "i3"},
		{UserID: "u3", ItemID: "i2"},
		{UserID: "u3", ItemID: "i3"},
	}
}

func newEngine(t *testing.T) *recommend.Engine {
	t.Helper()
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestRefreshService_Refresh(t *testing.T) {
	engine := newEngine(t)
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exports, err := export.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer exports.Close()

	svc := NewRefreshService(&fakeSource{records: exampleRecords()}, engine,
		RefreshConfig{SnapshotName: "test", Retain: 2, ExportTopN: 2}, zerolog.Nop(),
		WithSnapshotStore(store), WithExporter(exports))

	before := testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("success"))
	for i := 0; i < 3; i++ {
		if err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() #%d error = %v", i+1, err)
		}
	}

	if got := testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("success")) - before; got != 3 {
		t.Errorf("success refreshes = %v, want 3", got)
	}
	if !engine.Ready() || engine.Current().Version != 3 {
		t.Fatalf("engine version = %v, want 3", engine.Stats().Snapshot)
	}
	if got := store.ListVersions("test"); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("stored versions = %v, want [2 3]", got)
	}

	entry, err := exports.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("export Get() error = %v", err)
	}
	if entry.Version != 3 || len(entry.Items) != 2 {
		t.Errorf("export entry = %+v", entry)
	}
}

func TestRefreshService_FreshEngineContinuesStoredVersions(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := RefreshConfig{SnapshotName: "test", Retain: 2}

	first := NewRefreshService(&fakeSource{records: exampleRecords()}, newEngine(t), cfg,
		zerolog.Nop(), WithSnapshotStore(store))
	for i := 0; i < 3; i++ {
		if err := first.Refresh(ctx); err != nil {
			t.Fatalf("Refresh() #%d error = %v", i+1, err)
		}
	}

	// A restarted process builds without restoring anything first.
	records := append(exampleRecords(), recommend.InteractionRecord{UserID: "u3", ItemID: "i4"})
	engine := newEngine(t)
	restarted := NewRefreshService(&fakeSource{records: records}, engine, cfg,
		zerolog.Nop(), WithSnapshotStore(store))
	if err := restarted.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() after restart error = %v", err)
	}

	if got := engine.Current().Version; got != 4 {
		t.Errorf("version after restart = %d, want 4", got)
	}
	if got := store.ListVersions("test"); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("stored versions = %v, want [3 4]", got)
	}
	latest, _, err := store.Load(ctx, "test", 0)
	if err != nil {
		t.Fatalf("Load(latest) error = %v", err)
	}
	if !latest.Training.Items().Contains("i4") {
		t.Errorf("latest stored items = %v, want the restarted build", latest.Training.Items().Keys())
	}
}

func TestRefreshService_SourceFailureKeepsSnapshot(t *testing.T) {
	engine := newEngine(t)
	src := &fakeSource{records: exampleRecords()}
	svc := NewRefreshService(src, engine, RefreshConfig{}, zerolog.Nop())

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	before := testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("error"))
	src.err = errors.New("disk gone")
	err := svc.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh() should fail when the source fails")
	}
	if got := testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("error")) - before; got != 1 {
		t.Errorf("error refreshes = %v, want 1", got)
	}
	if engine.Current().Version != 1 {
		t.Errorf("version = %d, want previous snapshot 1 kept", engine.Current().Version)
	}
}

func TestRefreshService_BuildFailure(t *testing.T) {
	engine := newEngine(t)
	svc := NewRefreshService(&fakeSource{}, engine, RefreshConfig{}, zerolog.Nop())

	err := svc.Refresh(context.Background())
	if !errors.Is(err, recommend.ErrEmptyInput) {
		t.Errorf("Refresh() error = %v, want ErrEmptyInput", err)
	}
	if engine.Ready() {
		t.Error("engine should stay not ready")
	}
}

func TestRefreshService_Serve(t *testing.T) {
	engine := newEngine(t)
	src := &fakeSource{records: exampleRecords()}
	svc := NewRefreshService(src, engine, RefreshConfig{
		OnStartup: true,
		Interval:  20 * time.Millisecond,
	}, zerolog.Nop())

	if got := svc.String(); got != "refresh-service" {
		t.Errorf("String() = %q", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for src.loads.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d refreshes ran", src.loads.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if !engine.Ready() {
		t.Error("engine should be ready after startup refresh")
	}
}

func TestRefreshService_ServeWithoutSchedule(t *testing.T) {
	src := &fakeSource{records: exampleRecords()}
	svc := NewRefreshService(src, newEngine(t), RefreshConfig{}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v", err)
	}
	if n := src.loads.Load(); n != 0 {
		t.Errorf("loads = %d, want 0 with no startup refresh and no interval", n)
	}
}

func waitForAddr(t *testing.T, svc *HTTPService) net.Addr {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := svc.Addr(); addr != nil {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("HTTP service did not bind")
	return nil
}

func TestHTTPService_ServeAndShutdown(t *testing.T) {
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPService(server, "127.0.0.1:0", time.Second, zerolog.Nop())
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	addr := waitForAddr(t, svc)
	resp, err := http.Get("http://" + addr.String())
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestHTTPService_ListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	svc := NewHTTPService(&http.Server{ReadHeaderTimeout: time.Second}, taken.Addr().String(), 0, zerolog.Nop())
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("default shutdown timeout = %v", svc.shutdownTimeout)
	}
	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("Serve() should fail on an address in use")
	}
}
