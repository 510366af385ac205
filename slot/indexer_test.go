// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package slot

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestIndexer_AllocateInOrder(t *testing.T) {
	ix := NewIndexer[string](8)
	for i, k := range []string{"k1", "k2", "k3"} {
		if got := ix.Allocate(k); got != i {
			t.Errorf("Allocate(%q) = %d, want %d", k, got, i)
		}
	}
	if ix.Count() != 3 || ix.Live() != 3 {
		t.Errorf("Count=%d Live=%d, want 3 3", ix.Count(), ix.Live())
	}
}

func TestIndexer_AllocateIdempotent(t *testing.T) {
	ix := NewIndexer[string](8)
	a := ix.Allocate("a")
	if b := ix.Allocate("a"); b != a {
		t.Errorf("second Allocate = %d, want %d", b, a)
	}
	if ix.Count() != 1 {
		t.Errorf("Count() = %d, want 1", ix.Count())
	}
}

func TestIndexer_ReleaseMakesHole(t *testing.T) {
	ix := NewIndexer[string](8)
	ix.Allocate("k1")
	ix.Allocate("k2")
	ix.Allocate("k3")

	s, ok := ix.Release("k2")
	if !ok || s != 1 {
		t.Fatalf("Release(k2) = %d, %v; want 1, true", s, ok)
	}
	if got := ix.Holes(); !slices.Equal(got, []int{1}) {
		t.Errorf("Holes() = %v, want [1]", got)
	}
	if got := ix.Allocate("k4"); got != 1 {
		t.Errorf("Allocate(k4) = %d, want hole 1", got)
	}
	if ix.Count() != 3 {
		t.Errorf("Count() = %d, want 3", ix.Count())
	}
}

func TestIndexer_ReleaseUnknown(t *testing.T) {
	ix := NewIndexer[string](8)
	if _, ok := ix.Release("ghost"); ok {
		t.Error("Release of unknown key should report false")
	}
	if ix.Count() != 0 || len(ix.Holes()) != 0 {
		t.Error("Release of unknown key changed state")
	}
}

func TestIndexer_SmallestHoleFirst(t *testing.T) {
	ix := NewIndexer[int](16)
	for i := range 6 {
		ix.Allocate(i)
	}
	ix.Release(4)
	ix.Release(1)
	ix.Release(3)

	want := []int{1, 3, 4, 6}
	for i, w := range want {
		if got := ix.Allocate(100 + i); got != w {
			t.Errorf("allocation %d = %d, want %d", i, got, w)
		}
	}
}

func TestIndexer_Grow(t *testing.T) {
	ix := NewIndexer[int](8)
	for i := range 8 {
		ix.Allocate(i)
	}
	if ix.GrowthRequired() {
		t.Fatal("growth required at count == capacity")
	}
	if c, grew := ix.Grow(10); grew || c != 8 {
		t.Fatalf("Grow without need = %d, %v", c, grew)
	}

	if s := ix.Allocate(8); s != 8 {
		t.Fatalf("Allocate past capacity = %d, want 8", s)
	}
	if !ix.GrowthRequired() {
		t.Fatal("GrowthRequired() = false after count exceeded capacity")
	}
	c, grew := ix.Grow(10)
	if !grew || c != 18 {
		t.Errorf("Grow(10) = %d, %v; want 18, true", c, grew)
	}
	if ix.GrowthRequired() {
		t.Error("GrowthRequired() still set after Grow")
	}
}

func TestIndexer_GrowMultipleSteps(t *testing.T) {
	ix := NewIndexer[int](4)
	for i := range 30 {
		ix.Allocate(i)
	}
	c, _ := ix.Grow(10)
	if c != 34 {
		t.Errorf("Grow(10) from 4 with count 30 = %d, want 34", c)
	}
	if ix.Count() > ix.Capacity() {
		t.Errorf("Count %d > Capacity %d after Grow", ix.Count(), ix.Capacity())
	}
}

func TestIndexer_PanicsOnBadArgs(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"zero capacity", func() { NewIndexer[int](0) }},
		{"zero factor", func() { NewIndexer[int](1).Grow(0) }},
		{"missing slot", func() { NewIndexer[int](1).MustSlot(3) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestIndexer_Entries(t *testing.T) {
	ix := NewIndexer[string](4)
	ix.Allocate("c")
	ix.Allocate("a")
	ix.Allocate("b")
	ix.Release("a")

	got := ix.Entries()
	want := []Entry[string]{{"c", 0}, {"b", 2}}
	if !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
}

// TestIndexer_RandomSequences checks slot uniqueness, hole reuse before
// growth and capacity monotonicity over random allocate/release sequences.
func TestIndexer_RandomSequences(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*31))
		ix := NewIndexer[int](4)
		live := map[int]bool{}
		prevCap := ix.Capacity()

		for step := range 500 {
			key := rng.IntN(64)
			if live[key] && rng.IntN(2) == 0 {
				ix.Release(key)
				delete(live, key)
			} else if !live[key] {
				hadHoles := len(ix.Holes()) > 0
				count := ix.Count()
				s := ix.Allocate(key)
				if hadHoles && s >= count {
					t.Fatalf("seed %d step %d: slot %d extends count %d while holes exist", seed, step, s, count)
				}
				live[key] = true
			}
			if step%7 == 0 {
				ix.Grow(5)
			}

			if ix.Capacity() < prevCap {
				t.Fatalf("seed %d step %d: capacity shrank %d -> %d", seed, step, prevCap, ix.Capacity())
			}
			prevCap = ix.Capacity()

			seen := map[int]bool{}
			for _, e := range ix.Entries() {
				if seen[e.Slot] {
					t.Fatalf("seed %d step %d: slot %d assigned twice", seed, step, e.Slot)
				}
				seen[e.Slot] = true
			}
			for _, h := range ix.Holes() {
				if seen[h] || h >= ix.Count() {
					t.Fatalf("seed %d step %d: bad hole %d (count %d)", seed, step, h, ix.Count())
				}
			}
		}
	}
}
