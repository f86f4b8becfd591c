// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestLRU(capacity int, ttl time.Duration) (*LRU[[]string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[[]string](capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRU_BasicOperations(t *testing.T) {
	c, _ := newTestLRU(3, time.Minute)

	c.Add("a", []string{"i1"})
	c.Add("b", []string{"i2", "i3"})

	got, found := c.Get("b")
	if !found {
		t.Fatal("Expected to find key 'b'")
	}
	if len(got) != 2 || got[0] != "i2" {
		t.Errorf("Get(b) = %v, want [i2 i3]", got)
	}
	if _, found := c.Get("missing"); found {
		t.Error("Expected miss for unknown key")
	}
	if c.Len() != 2 {
		t.Errorf("Expected len 2, got %d", c.Len())
	}
}

func TestLRU_Eviction(t *testing.T) {
	c, _ := newTestLRU(3, time.Minute)

	c.Add("a", nil)
	c.Add("b", nil)
	c.Add("c", nil)

	// 'a' becomes most recently used, so 'b' is evicted next.
	c.Get("a")
	c.Add("d", nil)

	if _, found := c.Get("b"); found {
		t.Error("Expected 'b' to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, found := c.Get(key); !found {
			t.Errorf("Expected %q to be present", key)
		}
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", s.Evictions)
	}
}

func TestLRU_TTLExpiration(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)

	c.Add("a", []string{"x"})
	if _, found := c.Get("a"); !found {
		t.Fatal("Expected to find key 'a' immediately")
	}

	clock.Advance(61 * time.Second)

	if c.Contains("a") {
		t.Error("Contains should report expired key as absent")
	}
	if _, found := c.Get("a"); found {
		t.Error("Expected key 'a' to be expired")
	}
	if c.Len() != 0 {
		t.Errorf("Expired entry should be dropped on Get, len = %d", c.Len())
	}
}

func TestLRU_UpdateResetsTTL(t *testing.T) {
	c, clock := newTestLRU(3, time.Minute)

	c.Add("a", []string{"old"})
	clock.Advance(50 * time.Second)
	c.Add("a", []string{"new"})
	clock.Advance(50 * time.Second)

	got, found := c.Get("a")
	if !found {
		t.Fatal("Expected updated entry to survive")
	}
	if got[0] != "new" {
		t.Errorf("Get(a) = %v, want [new]", got)
	}
	if c.Len() != 1 {
		t.Errorf("Expected len 1 after update, got %d", c.Len())
	}
}

func TestLRU_Remove(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)

	c.Add("a", nil)
	c.Add("b", nil)

	if !c.Remove("a") {
		t.Error("Expected Remove to return true for existing key")
	}
	if c.Remove("a") {
		t.Error("Expected Remove to return false for removed key")
	}
	if _, found := c.Get("b"); !found {
		t.Error("Expected key 'b' to still be present")
	}
}

func TestLRU_Clear(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)

	c.Add("a", nil)
	c.Add("b", nil)
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Expected empty cache after Clear, got len %d", c.Len())
	}
	if _, found := c.Get("a"); found {
		t.Error("Expected no items after Clear")
	}

	// List must still be usable after Clear.
	c.Add("c", nil)
	if _, found := c.Get("c"); !found {
		t.Error("Expected 'c' after re-adding")
	}
}

func TestLRU_CleanupExpired(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)

	c.Add("a", nil)
	c.Add("b", nil)
	c.Add("c", nil)
	clock.Advance(2 * time.Minute)
	c.Add("d", nil)

	if removed := c.CleanupExpired(); removed != 3 {
		t.Errorf("Expected 3 expired items removed, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 item remaining, got %d", c.Len())
	}
}

func TestLRU_Stats(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)

	c.Add("a", nil)
	c.Get("a")
	c.Get("a")
	c.Get("nonexist")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Size != 1 || s.Capacity != 10 {
		t.Errorf("Stats = %+v", s)
	}

	tests := []struct {
		name  string
		stats Stats
		want  float64
	}{
		{"no lookups", Stats{}, 0},
		{"all hits", Stats{Hits: 4}, 100},
		{"half", Stats{Hits: 3, Misses: 3}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.HitRate(); got != tt.want {
				t.Errorf("HitRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLRU_Defaults(t *testing.T) {
	c := NewLRU[int](0, 0)
	if c.capacity != 10000 {
		t.Errorf("default capacity = %d, want 10000", c.capacity)
	}
	if c.ttl != 5*time.Minute {
		t.Errorf("default ttl = %v, want 5m", c.ttl)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := strconv.Itoa((id + j) % 150)
				c.Add(key, j)
				c.Get(key)
				c.Contains(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}

func BenchmarkLRU_Add(b *testing.B) {
	c := NewLRU[int](10000, time.Minute)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Add(strconv.Itoa(i%20000), i)
	}
}

func BenchmarkLRU_Get(b *testing.B) {
	c := NewLRU[int](10000, time.Minute)
	for i := 0; i < 1000; i++ {
		c.Add(strconv.Itoa(i), i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(strconv.Itoa(i % 1000))
	}
}
