// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// InteractionMatrix is a dense user x item count matrix.
// Rows follow Users(), columns follow Items(). Unobserved cells are 0.
type InteractionMatrix struct {
	users  *Index
	items  *Index
	counts *mat.Dense
	stats  BuildStats
}

// BuildMatrix counts records into a dense interaction matrix.
// Each record adds 1 to its (user, item) cell. Records with an empty user or
// item id are skipped. Returns ErrEmptyInput if no usable record remains.
//
//nolint:gocritic // rangeValCopy: InteractionRecord is small
func BuildMatrix(records []InteractionRecord) (*InteractionMatrix, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	userKeys := make([]string, 0)
	itemKeys := make([]string, 0)
	usable := make([]InteractionRecord, 0, len(records))
	skipped := 0

	for _, rec := range records {
		u := strings.TrimSpace(rec.UserID)
		i := strings.TrimSpace(rec.ItemID)
		if u == "" || i == "" {
			skipped++
			continue
		}
		userKeys = append(userKeys, u)
		itemKeys = append(itemKeys, i)
		usable = append(usable, InteractionRecord{UserID: u, ItemID: i, Kind: rec.Kind})
	}

	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: all %d records lack a user or item id", ErrEmptyInput, skipped)
	}

	users := NewIndex(userKeys)
	items := NewIndex(itemKeys)
	data := make([]float64, users.Len()*items.Len())
	cols := items.Len()

	for _, rec := range usable {
		r, _ := users.Position(rec.UserID)
		c, _ := items.Position(rec.ItemID)
		data[r*cols+c]++
	}

	return &InteractionMatrix{
		users:  users,
		items:  items,
		counts: mat.NewDense(users.Len(), items.Len(), data),
		stats: BuildStats{
			Records: len(records),
			Skipped: skipped,
			Users:   users.Len(),
			Items:   items.Len(),
		},
	}, nil
}

// Users returns the row index.
func (m *InteractionMatrix) Users() *Index {
	return m.users
}

// Items returns the column index.
func (m *InteractionMatrix) Items() *Index {
	return m.items
}

// Dims returns the number of users and items.
func (m *InteractionMatrix) Dims() (users, items int) {
	return m.users.Len(), m.items.Len()
}

// Stats returns the statistics recorded while building the matrix.
func (m *InteractionMatrix) Stats() BuildStats {
	return m.stats
}

// Count returns the count for a user and item, 0 if either is unknown.
func (m *InteractionMatrix) Count(userID, itemID string) int {
	r, ok := m.users.Position(userID)
	if !ok {
		return 0
	}
	c, ok := m.items.Position(itemID)
	if !ok {
		return 0
	}
	return int(m.counts.At(r, c))
}

// CountAt returns the count at row r and column c.
func (m *InteractionMatrix) CountAt(r, c int) int {
	return int(m.counts.At(r, c))
}

// Row returns a copy of the count vector for a user.
func (m *InteractionMatrix) Row(userID string) ([]float64, bool) {
	r, ok := m.users.Position(userID)
	if !ok {
		return nil, false
	}
	return mat.Row(nil, r, m.counts), true
}

// NonZero returns the number of observed (user, item) cells.
func (m *InteractionMatrix) NonZero() int {
	n := 0
	rows, cols := m.counts.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if m.counts.At(r, c) != 0 {
				n++
			}
		}
	}
	return n
}

// Matrix returns a read-only view of the counts.
func (m *InteractionMatrix) Matrix() mat.Matrix {
	return m.counts
}

// MatrixState is the serializable form of an InteractionMatrix.
type MatrixState struct {
	Users  []string
	Items  []string
	Counts []float64
	Stats  BuildStats
}

// State returns a serializable copy of the matrix.
func (m *InteractionMatrix) State() MatrixState {
	rows, cols := m.counts.Dims()
	data := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		data = append(data, m.counts.RawRowView(r)...)
	}
	return MatrixState{
		Users:  m.users.Keys(),
		Items:  m.items.Keys(),
		Counts: data,
		Stats:  m.stats,
	}
}

// MatrixFromState rebuilds a matrix from its serialized form.
func MatrixFromState(s *MatrixState) (*InteractionMatrix, error) {
	users := NewIndex(s.Users)
	items := NewIndex(s.Items)
	if users.Len() != len(s.Users) || items.Len() != len(s.Items) {
		return nil, fmt.Errorf("matrix state has duplicate keys")
	}
	if users.Len() == 0 || items.Len() == 0 {
		return nil, ErrEmptyInput
	}
	if len(s.Counts) != users.Len()*items.Len() {
		return nil, fmt.Errorf("matrix state has %d cells, want %d", len(s.Counts), users.Len()*items.Len())
	}
	for i, k := range s.Users {
		if users.Key(i) != k {
			return nil, fmt.Errorf("matrix state user keys are not sorted")
		}
	}
	for i, k := range s.Items {
		if items.Key(i) != k {
			return nil, fmt.Errorf("matrix state item keys are not sorted")
		}
	}

	data := make([]float64, len(s.Counts))
	copy(data, s.Counts)
	return &InteractionMatrix{
		users:  users,
		items:  items,
		counts: mat.NewDense(users.Len(), items.Len(), data),
		stats:  s.Stats,
	}, nil
}
