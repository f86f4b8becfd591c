// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import "sort"

// Index is an immutable bidirectional mapping between keys and positions.
// Keys are unique and sorted ascending, so position order is deterministic.
type Index struct {
	keys []string
	pos  map[string]int
}

// NewIndex builds an index from keys. Duplicates are collapsed.
func NewIndex(keys []string) *Index {
	seen := make(map[string]struct{}, len(keys))
	sorted := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	pos := make(map[string]int, len(sorted))
	for i, k := range sorted {
		pos[k] = i
	}
	return &Index{keys: sorted, pos: pos}
}

// Len returns the number of keys.
func (x *Index) Len() int {
	return len(x.keys)
}

// Position returns the position of key and whether it exists.
func (x *Index) Position(key string) (int, bool) {
	p, ok := x.pos[key]
	return p, ok
}

// Key returns the key at position i. It panics if i is out of range.
func (x *Index) Key(i int) string {
	return x.keys[i]
}

// Contains reports whether key is present.
func (x *Index) Contains(key string) bool {
	_, ok := x.pos[key]
	return ok
}

// Keys returns a copy of the ordered keys.
func (x *Index) Keys() []string {
	out := make([]string, len(x.keys))
	copy(out, x.keys)
	return out
}

// Equal reports whether both indexes hold the same keys in the same order.
func (x *Index) Equal(other *Index) bool {
	if x == other {
		return true
	}
	if x == nil || other == nil || len(x.keys) != len(other.keys) {
		return false
	}
	for i, k := range x.keys {
		if other.keys[i] != k {
			return false
		}
	}
	return true
}
