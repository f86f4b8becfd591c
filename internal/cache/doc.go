// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package cache provides a thread-safe in-memory LRU cache with TTL support.

The recommendation engine uses it to keep recently served recommendation
lists. Keys embed the snapshot version, so entries computed against an older
snapshot are never returned once a new snapshot is live.

# Usage

	c := cache.NewLRU[[]recommend.Recommendation](10000, 5*time.Minute)
	c.Add("v3|u1|10|mean_similarity", recs)
	if recs, ok := c.Get("v3|u1|10|mean_similarity"); ok {
	    // serve from cache
	}

# Thread Safety

All methods are safe for concurrent use. A single mutex guards the map and
the recency list; Get takes the write lock because hits reorder the list.
*/
package cache
