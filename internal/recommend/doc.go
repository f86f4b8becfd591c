// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package recommend implements user-user collaborative filtering over a
// batch snapshot of an interaction log.
//
// # Architecture
//
// A batch run moves through four stages:
//
//   - BuildMatrix: flat interaction records become a dense user x item
//     count matrix with a fixed, sorted row and column Index
//   - SimilarityEngine: cosine similarity between every pair of users,
//     computed as a normalized-vector matrix product in row blocks
//   - Ranker: for a query user, ranks items by how often all other users
//     interacted with them
//   - Align / Project: builds a second matrix from an independently
//     resampled log and maps it onto the training column space
//
// # Immutability
//
// InteractionMatrix, SimilarityMatrix and Snapshot are never mutated after
// construction. Accessors return copies. A Snapshot can be shared by any
// number of goroutines without locking; the Engine swaps whole snapshots
// atomically when a new batch completes.
//
// # Scoring
//
// The default scoring mode (ScoreMeanSimilarity) assigns every returned item
// the mean similarity across the full neighbor set, so every item of a single
// response carries the same score. ScoreWeighted ranks and scores each item
// by the similarity-weighted sum of neighbor counts instead.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), logger)
//	snap, err := engine.Build(ctx, records)
//	resp, err := engine.Recommend(ctx, recommend.Request{UserID: "u1", TopN: 10})
//	if errors.Is(err, recommend.ErrUserNotFound) {
//	    // cold start: caller decides what to show
//	}
package recommend
