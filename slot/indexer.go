// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package slot maps stable entity keys to dense buffer slots.
//
// An Indexer hands out slots in [0, count), recycles released slots (holes)
// smallest first, and tracks when count has outrun the capacity of the
// buffers that back it. Capacity only changes through Grow, which the frame
// pipeline calls once per frame after every allocation is known.
//
//	ix := slot.NewIndexer[string](8)
//	a := ix.Allocate("a") // 0
//	ix.Release("a")       // slot 0 becomes a hole
//	b := ix.Allocate("b") // 0 again
package slot

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/retained/internal/freelist"
)

// Indexer assigns slots to keys.
//
// Indexer is not safe for concurrent use.
type Indexer[K comparable] struct {
	slots    map[K]int
	holes    *freelist.List
	count    int
	capacity int
	grow     bool
}

// NewIndexer returns an empty indexer with the given initial capacity.
// It panics if capacity is not positive.
func NewIndexer[K comparable](capacity int) *Indexer[K] {
	if capacity <= 0 {
		panic(fmt.Sprintf("slot: non-positive capacity %d", capacity))
	}
	return &Indexer[K]{
		slots:    make(map[K]int),
		holes:    &freelist.List{},
		capacity: capacity,
	}
}

// Allocate returns the slot of key, assigning one if key is new.
//
// A new key takes the smallest hole when any exist, otherwise count grows
// by one. When count exceeds capacity the indexer records that growth is
// required; the returned slot is then beyond the current capacity until
// Grow runs.
func (ix *Indexer[K]) Allocate(key K) int {
	if s, ok := ix.slots[key]; ok {
		return s
	}
	s, ok := ix.holes.Pop()
	if !ok {
		s = ix.count
		ix.count++
		if ix.count > ix.capacity {
			ix.grow = true
		}
	}
	ix.slots[key] = s
	return s
}

// Release frees the slot of key and returns it. The second result is false
// when key holds no slot, in which case nothing changes.
func (ix *Indexer[K]) Release(key K) (int, bool) {
	s, ok := ix.slots[key]
	if !ok {
		return 0, false
	}
	if ix.holes.Contains(s) {
		panic(fmt.Sprintf("slot: slot %d released twice", s))
	}
	delete(ix.slots, key)
	ix.holes.Push(s)
	return s, true
}

// Grow raises capacity to cover count when growth is required, in whole
// steps of factor. It returns the resulting capacity and whether it changed.
// It panics if factor is not positive.
func (ix *Indexer[K]) Grow(factor int) (int, bool) {
	if factor <= 0 {
		panic(fmt.Sprintf("slot: non-positive growth factor %d", factor))
	}
	if !ix.grow {
		return ix.capacity, false
	}
	ix.grow = false
	overflow := ix.count - ix.capacity
	if overflow <= 0 {
		return ix.capacity, false
	}
	steps := (overflow + factor - 1) / factor
	ix.capacity += steps * factor
	return ix.capacity, true
}

// Slot returns the slot held by key.
func (ix *Indexer[K]) Slot(key K) (int, bool) {
	s, ok := ix.slots[key]
	return s, ok
}

// MustSlot returns the slot held by key and panics if there is none.
// A missing slot here means the caller's bookkeeping is corrupt.
func (ix *Indexer[K]) MustSlot(key K) int {
	s, ok := ix.slots[key]
	if !ok {
		panic(fmt.Sprintf("slot: no slot for key %v", key))
	}
	return s
}

// Count returns the high-water mark of allocated slots, holes included.
func (ix *Indexer[K]) Count() int { return ix.count }

// Capacity returns the current capacity.
func (ix *Indexer[K]) Capacity() int { return ix.capacity }

// Live returns the number of keys holding a slot.
func (ix *Indexer[K]) Live() int { return len(ix.slots) }

// Holes returns the free slots below count, ascending.
func (ix *Indexer[K]) Holes() []int { return ix.holes.Sorted() }

// GrowthRequired reports whether count has exceeded capacity since the last
// Grow.
func (ix *Indexer[K]) GrowthRequired() bool { return ix.grow }

// Entry is one live key and its slot.
type Entry[K comparable] struct {
	Key  K
	Slot int
}

// Entries returns every live key with its slot, ordered by slot.
func (ix *Indexer[K]) Entries() []Entry[K] {
	out := make([]Entry[K], 0, len(ix.slots))
	for k, s := range ix.slots {
		out = append(out, Entry[K]{Key: k, Slot: s})
	}
	slices.SortFunc(out, func(a, b Entry[K]) int { return cmp.Compare(a.Slot, b.Slot) })
	return out
}
