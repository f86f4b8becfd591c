// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package cache

// Cacher is the interface consumers depend on, so tests can substitute a
// fake and the LRU can be swapped for another policy.
type Cacher[V any] interface {
	// Get returns the value and true if found and not expired.
	Get(key string) (V, bool)

	// Add stores a value with the default TTL.
	Add(key string, value V)

	// Remove deletes a value. Returns true if it was present.
	Remove(key string) bool

	// Clear removes all entries.
	Clear()

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache statistics.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
}

// HitRate returns the hit rate as a percentage, 0 when there were no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Verify interface implementation at compile time
var _ Cacher[int] = (*LRU[int])(nil)
