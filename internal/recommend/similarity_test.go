// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-9

func TestComputeSimilarity_Example(t *testing.T) {
	sim := ComputeSimilarity(mustBuild(t, exampleRecords()))

	tests := []struct {
		u, v string
		want float64
	}{
		{"u1", "u2", 2 / (math.Sqrt(5) * math.Sqrt(2))},
		{"u1", "u3", 1 / (math.Sqrt(5) * math.Sqrt(2))},
		{"u2", "u3", 0.5},
		{"u1", "u1", 1},
		{"u2", "u2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.u+"-"+tt.v, func(t *testing.T) {
			got, ok := sim.At(tt.u, tt.v)
			if !ok {
				t.Fatal("At() reported unknown user")
			}
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("sim(%s,%s) = %v, want %v", tt.u, tt.v, got, tt.want)
			}
		})
	}

	if _, ok := sim.At("u1", "ghost"); ok {
		t.Error("At() with unknown user should report false")
	}
}

// randomMatrix builds a sparse random matrix with some all-zero users.
// Zero users are simulated by projecting onto an item nobody else has.
func randomMatrix(t *testing.T, users, items int, seed int64) *InteractionMatrix {
	t.Helper()
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test data
	records := make([]InteractionRecord, 0)
	for u := 0; u < users; u++ {
		for i := 0; i < items; i++ {
			if rng.Float64() < 0.2 {
				for n := rng.Intn(3) + 1; n > 0; n-- {
					records = append(records, InteractionRecord{
						UserID: fmt.Sprintf("u%03d", u),
						ItemID: fmt.Sprintf("i%03d", i),
					})
				}
			}
		}
	}
	// Guarantee at least one record per user so every user gets a row.
	for u := 0; u < users; u++ {
		records = append(records, InteractionRecord{UserID: fmt.Sprintf("u%03d", u), ItemID: "zz-only-here"})
	}
	m := mustBuild(t, records)

	items2 := m.Items().Keys()
	kept := items2[:len(items2)-1] // drop "zz-only-here" so some rows become zero
	p, err := Project(m, kept)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	return p
}

func TestSimilarity_Properties(t *testing.T) {
	configs := []SimilarityConfig{
		{BlockSize: 1, Workers: 1},
		{BlockSize: 7, Workers: 3},
		{BlockSize: 1000, Workers: 8},
	}

	m := randomMatrix(t, 40, 25, 7)
	var reference *SimilarityMatrix

	for _, cfg := range configs {
		t.Run(fmt.Sprintf("block=%d/workers=%d", cfg.BlockSize, cfg.Workers), func(t *testing.T) {
			sim, err := NewSimilarityEngine(cfg, zerolog.Nop()).Compute(context.Background(), m)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			n := sim.Len()
			for i := 0; i < n; i++ {
				row, _ := m.Row(m.Users().Key(i))
				zero := true
				for _, v := range row {
					if v != 0 {
						zero = false
					}
				}
				for j := 0; j < n; j++ {
					s := sim.AtPos(i, j)
					if s != sim.AtPos(j, i) {
						t.Fatalf("asymmetric at (%d,%d): %v vs %v", i, j, s, sim.AtPos(j, i))
					}
					if s < 0 || s > 1 {
						t.Fatalf("sim(%d,%d) = %v outside [0,1]", i, j, s)
					}
					if zero && s != 0 {
						t.Fatalf("zero user %d has sim %v to %d", i, s, j)
					}
				}
				if !zero && sim.AtPos(i, i) != 1 {
					t.Errorf("diagonal at %d = %v, want 1", i, sim.AtPos(i, i))
				}
			}

			if reference == nil {
				reference = sim
				return
			}
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					if math.Abs(sim.AtPos(i, j)-reference.AtPos(i, j)) > tolerance {
						t.Fatalf("block layout changed result at (%d,%d)", i, j)
					}
				}
			}
		})
	}
}

func TestSimilarity_MatchesPairwise(t *testing.T) {
	m := randomMatrix(t, 15, 10, 3)
	sim := ComputeSimilarity(m)

	for i := 0; i < m.Users().Len(); i++ {
		a := mat.Row(nil, i, m.Matrix())
		for j := 0; j < m.Users().Len(); j++ {
			b := mat.Row(nil, j, m.Matrix())
			var dot, na, nb float64
			for k := range a {
				dot += a[k] * b[k]
				na += a[k] * a[k]
				nb += b[k] * b[k]
			}
			want := 0.0
			if na > 0 && nb > 0 {
				want = dot / (math.Sqrt(na) * math.Sqrt(nb))
			}
			if math.Abs(sim.AtPos(i, j)-want) > 1e-9 {
				t.Fatalf("sim(%d,%d) = %v, pairwise = %v", i, j, sim.AtPos(i, j), want)
			}
		}
	}
}

func TestSimilarity_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimilarityEngine(SimilarityConfig{BlockSize: 1, Workers: 1}, zerolog.Nop()).
		Compute(ctx, mustBuild(t, exampleRecords()))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Compute() error = %v, want context.Canceled", err)
	}
}

func TestSimilarityState(t *testing.T) {
	sim := ComputeSimilarity(mustBuild(t, exampleRecords()))
	st := sim.State()
	if len(st.Upper) != 6 {
		t.Fatalf("packed upper triangle has %d cells, want 6", len(st.Upper))
	}

	restored, err := SimilarityFromState(&st)
	if err != nil {
		t.Fatalf("SimilarityFromState() error = %v", err)
	}
	if !reflect.DeepEqual(restored.State(), st) {
		t.Error("restored similarity differs")
	}

	st.Upper = st.Upper[:5]
	if _, err := SimilarityFromState(&st); err == nil {
		t.Error("SimilarityFromState() should reject short state")
	}
}

func TestClampUnit(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-1e-17, 0},
		{0.5, 0.5},
		{1 + 1e-15, 1},
	}
	for _, tt := range tests {
		if got := clampUnit(tt.in); got != tt.want {
			t.Errorf("clampUnit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
