// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func TestAlign(t *testing.T) {
	training := mustBuild(t, exampleRecords())

	eval, err := Align(training, []InteractionRecord{
		{UserID: "u1", ItemID: "i3"},
		{UserID: "u4", ItemID: "i9"},
	})
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	if got := eval.Items().Keys(); !reflect.DeepEqual(got, []string{"i3", "i9"}) {
		t.Errorf("eval items = %v", got)
	}

	if _, err := Align(training, nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Align(nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestSharedItemsAndProject(t *testing.T) {
	training := mustBuild(t, exampleRecords())
	eval := mustBuild(t, []InteractionRecord{
		{UserID: "u1", ItemID: "i3"},
		{UserID: "u1", ItemID: "i3"},
		{UserID: "u2", ItemID: "i9"},
		{UserID: "u2", ItemID: "i1"},
	})

	shared := SharedItems(training, eval)
	if !reflect.DeepEqual(shared, []string{"i1", "i3"}) {
		t.Fatalf("SharedItems() = %v, want [i1 i3]", shared)
	}

	p, err := Project(eval, []string{"i3", "i1", "i7"})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if got := p.Items().Keys(); !reflect.DeepEqual(got, []string{"i1", "i3", "i7"}) {
		t.Errorf("projected items = %v", got)
	}
	row, _ := p.Row("u1")
	if !reflect.DeepEqual(row, []float64{0, 2, 0}) {
		t.Errorf("projected u1 = %v", row)
	}
	row, _ = p.Row("u2")
	if !reflect.DeepEqual(row, []float64{1, 0, 0}) {
		t.Errorf("projected u2 = %v", row)
	}
	if eval.Count("u2", "i9") != 1 {
		t.Error("Project must not modify its input")
	}

	if _, err := Project(eval, nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Project(nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestEvaluate(t *testing.T) {
	training := mustBuild(t, exampleRecords())
	snap, err := NewSnapshot(training, ComputeSimilarity(training), 1, time.Now())
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}

	// top-1 for u1 is i3. For u2, i1 and i2 tie at 2 and i1 wins on item id.
	eval := mustBuild(t, []InteractionRecord{
		{UserID: "u1", ItemID: "i3"},
		{UserID: "u2", ItemID: "i3"},
		{UserID: "u3", ItemID: "i999"},
		{UserID: "u7", ItemID: "i1"},
	})

	report, err := Evaluate(context.Background(), snap, eval, 1, ScoreMeanSimilarity)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if report.Users != 3 {
		t.Errorf("Users = %d, want 3", report.Users)
	}
	if report.SharedItems != 2 {
		t.Errorf("SharedItems = %d, want 2", report.SharedItems)
	}
	if report.EvaluatedUsers != 2 {
		t.Errorf("EvaluatedUsers = %d, want 2 (u3 has no shared items)", report.EvaluatedUsers)
	}
	if report.Hits != 1 {
		t.Errorf("Hits = %d, want 1", report.Hits)
	}
	if math.Abs(report.HitRate-0.5) > tolerance || math.Abs(report.PrecisionAtN-0.5) > tolerance {
		t.Errorf("HitRate = %v, PrecisionAtN = %v, want 0.5 and 0.5", report.HitRate, report.PrecisionAtN)
	}
}

func TestEvaluate_NoOverlap(t *testing.T) {
	training := mustBuild(t, exampleRecords())
	snap, _ := NewSnapshot(training, ComputeSimilarity(training), 1, time.Now())
	eval := mustBuild(t, []InteractionRecord{{UserID: "u1", ItemID: "zzz"}})

	report, err := Evaluate(context.Background(), snap, eval, 5, ScoreWeighted)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if report.SharedItems != 0 || report.EvaluatedUsers != 0 || report.HitRate != 0 {
		t.Errorf("report = %+v, want empty", report)
	}

	if _, err := Evaluate(context.Background(), nil, eval, 5, ScoreWeighted); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Evaluate(nil snapshot) error = %v", err)
	}
}
