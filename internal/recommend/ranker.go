// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"sort"
)

// Ranker produces ranked recommendations from a similarity matrix and the
// training matrix it was computed from. It holds no per-query state and is
// safe for concurrent use.
//
// For a query user q the neighbor set N(q) is every other user, ordered by
// similarity descending. Items are ranked by
//
//	ScoreMeanSimilarity: sum_{v in N(q)} count(v, i)
//	ScoreWeighted:       sum_{v in N(q)} sim(q, v) * count(v, i)
//
// Ties keep column order, which is item id ascending. In ScoreMeanSimilarity
// mode every item gets the same score, mean_{v in N(q)} sim(q, v).
type Ranker struct {
	mode        ScoringMode
	defaultTopN int
}

// RankOptions tunes a single Recommend call.
type RankOptions struct {
	// TopN is the maximum number of items. Zero or less means the ranker default.
	TopN int

	// Mode overrides the ranker's scoring mode when non-nil.
	Mode *ScoringMode
}

// NewRanker creates a ranker. A non-positive defaultTopN becomes DefaultTopN.
func NewRanker(mode ScoringMode, defaultTopN int) *Ranker {
	if defaultTopN <= 0 {
		defaultTopN = DefaultTopN
	}
	return &Ranker{mode: mode, defaultTopN: defaultTopN}
}

// Recommend ranks items for a user with the baseline scoring mode.
func Recommend(userID string, sim *SimilarityMatrix, training *InteractionMatrix, topN int) ([]Recommendation, error) {
	return NewRanker(ScoreMeanSimilarity, DefaultTopN).Recommend(userID, sim, training, RankOptions{TopN: topN})
}

// Recommend returns at most TopN items for userID.
//
// Errors: *UserNotFoundError (matches ErrUserNotFound) when the user has no
// row, ErrEmptyNeighborSet when the user is alone in the matrix, and
// ErrDimensionMismatch when sim was not computed from training.
func (r *Ranker) Recommend(userID string, sim *SimilarityMatrix, training *InteractionMatrix, opts RankOptions) ([]Recommendation, error) {
	if !sim.Users().Equal(training.Users()) {
		return nil, ErrDimensionMismatch
	}

	neighbors, q, err := neighborPositions(userID, sim)
	if err != nil {
		return nil, err
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = r.defaultTopN
	}
	mode := r.mode
	if opts.Mode != nil {
		mode = *opts.Mode
	}

	_, cols := training.Dims()
	scores := make([]float64, cols)
	var simSum float64

	for _, v := range neighbors {
		s := sim.AtPos(q, v)
		simSum += s
		row := training.counts.RawRowView(v)
		for c, cnt := range row {
			if cnt == 0 {
				continue
			}
			if mode == ScoreWeighted {
				scores[c] += s * cnt
			} else {
				scores[c] += cnt
			}
		}
	}

	order := make([]int, cols)
	for c := range order {
		order[c] = c
	}
	sort.Slice(order, func(a, b int) bool {
		sa, sb := scores[order[a]], scores[order[b]]
		if sa != sb {
			return sa > sb
		}
		return order[a] < order[b]
	})

	if topN > cols {
		topN = cols
	}
	meanSim := simSum / float64(len(neighbors))

	recs := make([]Recommendation, 0, topN)
	for _, c := range order[:topN] {
		score := meanSim
		if mode == ScoreWeighted {
			score = scores[c]
		}
		recs = append(recs, Recommendation{ItemID: training.items.Key(c), Score: score})
	}
	return recs, nil
}

// Neighbors returns every other user ordered by similarity to userID,
// descending, ties by user id ascending.
func Neighbors(userID string, sim *SimilarityMatrix) ([]Neighbor, error) {
	positions, q, err := neighborPositions(userID, sim)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbor, len(positions))
	for k, v := range positions {
		out[k] = Neighbor{UserID: sim.users.Key(v), Similarity: sim.AtPos(q, v)}
	}
	return out, nil
}

// neighborPositions returns the ordered neighbor row positions and the
// query user's own position.
func neighborPositions(userID string, sim *SimilarityMatrix) ([]int, int, error) {
	q, ok := sim.users.Position(userID)
	if !ok {
		return nil, 0, &UserNotFoundError{UserID: userID}
	}
	n := sim.Len()
	if n < 2 {
		return nil, 0, ErrEmptyNeighborSet
	}

	neighbors := make([]int, 0, n-1)
	for v := 0; v < n; v++ {
		if v != q {
			neighbors = append(neighbors, v)
		}
	}
	sort.Slice(neighbors, func(a, b int) bool {
		sa, sb := sim.AtPos(q, neighbors[a]), sim.AtPos(q, neighbors[b])
		if sa != sb {
			return sa > sb
		}
		return neighbors[a] < neighbors[b]
	})
	return neighbors, q, nil
}
