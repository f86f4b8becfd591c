// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SimilarityMatrix holds the cosine similarity of every user pair.
// It is symmetric by construction and indexed by the training matrix's users.
type SimilarityMatrix struct {
	users *Index
	sym   *mat.SymDense
}

// Users returns the row/column index.
func (s *SimilarityMatrix) Users() *Index {
	return s.users
}

// Len returns the number of users.
func (s *SimilarityMatrix) Len() int {
	return s.users.Len()
}

// At returns the similarity between two users and whether both exist.
func (s *SimilarityMatrix) At(u, v string) (float64, bool) {
	i, ok := s.users.Position(u)
	if !ok {
		return 0, false
	}
	j, ok := s.users.Position(v)
	if !ok {
		return 0, false
	}
	return s.sym.At(i, j), true
}

// AtPos returns the similarity between the users at positions i and j.
func (s *SimilarityMatrix) AtPos(i, j int) float64 {
	return s.sym.At(i, j)
}

// Row returns a copy of a user's similarity row.
func (s *SimilarityMatrix) Row(userID string) ([]float64, bool) {
	i, ok := s.users.Position(userID)
	if !ok {
		return nil, false
	}
	return mat.Row(nil, i, s.sym), true
}

// SimilarityState is the serializable form of a SimilarityMatrix.
// Upper holds the packed upper triangle, row by row, diagonal included.
type SimilarityState struct {
	Users []string
	Upper []float64
}

// State returns a serializable copy of the matrix.
func (s *SimilarityMatrix) State() SimilarityState {
	n := s.users.Len()
	upper := make([]float64, 0, n*(n+1)/2)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			upper = append(upper, s.sym.At(i, j))
		}
	}
	return SimilarityState{Users: s.users.Keys(), Upper: upper}
}

// SimilarityFromState rebuilds a matrix from its serialized form.
func SimilarityFromState(st *SimilarityState) (*SimilarityMatrix, error) {
	users := NewIndex(st.Users)
	n := users.Len()
	if n == 0 || n != len(st.Users) {
		return nil, fmt.Errorf("similarity state has %d users (%d distinct)", len(st.Users), n)
	}
	if len(st.Upper) != n*(n+1)/2 {
		return nil, fmt.Errorf("similarity state has %d cells, want %d", len(st.Upper), n*(n+1)/2)
	}
	sym := mat.NewSymDense(n, nil)
	k := 0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, st.Upper[k])
			k++
		}
	}
	return &SimilarityMatrix{users: users, sym: sym}, nil
}

// SimilarityEngine computes user-user cosine similarity.
type SimilarityEngine struct {
	config SimilarityConfig
	logger zerolog.Logger
}

// NewSimilarityEngine creates a similarity engine. Zero config values get defaults.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func NewSimilarityEngine(cfg SimilarityConfig, logger zerolog.Logger) *SimilarityEngine {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &SimilarityEngine{
		config: cfg,
		logger: logger.With().Str("component", "similarity").Logger(),
	}
}

// ComputeSimilarity computes the similarity matrix with default settings.
func ComputeSimilarity(m *InteractionMatrix) *SimilarityMatrix {
	// Background context never cancels, so Compute cannot fail here.
	s, _ := NewSimilarityEngine(SimilarityConfig{}, zerolog.Nop()).Compute(context.Background(), m)
	return s
}

// Compute returns the cosine similarity of every pair of users in m.
//
// Rows are L2-normalized and multiplied block by block against the
// normalized rows at or after the block start, so each block task fills the
// upper triangle of its own rows only. A user with a zero vector has
// similarity 0 to everyone, itself included. The only error is ctx
// cancellation, in which case no partial result is returned.
func (e *SimilarityEngine) Compute(ctx context.Context, m *InteractionMatrix) (*SimilarityMatrix, error) {
	start := time.Now()
	n, cols := m.Dims()

	normalized, nonZero := normalizeRows(m)
	sym := mat.NewSymDense(n, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)

	blocks := 0
	for r0 := 0; r0 < n; r0 += e.config.BlockSize {
		r1 := r0 + e.config.BlockSize
		if r1 > n {
			r1 = n
		}
		blocks++

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			block := normalized.Slice(r0, r1, 0, cols)
			rest := normalized.Slice(r0, n, 0, cols)

			var prod mat.Dense
			prod.Mul(block, rest.T())

			for i := r0; i < r1; i++ {
				if !nonZero[i] {
					// Zero rows are already 0 in sym.
					continue
				}
				sym.SetSym(i, i, 1)
				for j := i + 1; j < n; j++ {
					if !nonZero[j] {
						continue
					}
					sym.SetSym(i, j, clampUnit(prod.At(i-r0, j-r0)))
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute similarity: %w", err)
	}

	e.logger.Debug().
		Int("users", n).
		Int("items", cols).
		Int("blocks", blocks).
		Int("workers", e.config.Workers).
		Dur("duration", time.Since(start)).
		Msg("similarity matrix computed")

	return &SimilarityMatrix{users: m.users, sym: sym}, nil
}

// normalizeRows returns a copy of the counts with every non-zero row scaled
// to unit L2 norm, plus a flag per row telling whether it was non-zero.
func normalizeRows(m *InteractionMatrix) (*mat.Dense, []bool) {
	rows, cols := m.counts.Dims()
	out := mat.NewDense(rows, cols, nil)
	nonZero := make([]bool, rows)

	for r := 0; r < rows; r++ {
		row := out.RawRowView(r)
		copy(row, m.counts.RawRowView(r))
		norm := floats.Norm(row, 2)
		if norm == 0 {
			continue
		}
		nonZero[r] = true
		floats.Scale(1/norm, row)
	}
	return out, nonZero
}

// clampUnit pins floating-point overshoot back into [0, 1].
func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
