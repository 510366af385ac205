// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package freelist provides a set of free integer indices that always hands
// out the smallest member first.
//
// Both the slot indexer (holes) and the glyph atlas (free grid cells) use it,
// so reuse order is deterministic and independent of map iteration.
package freelist

import (
	"container/heap"
	"slices"
)

// intHeap is a min-heap of ints.
type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *intHeap) Push(x any) { *h = append(*h, x.(int)) }

func (h *intHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// List is a set of free indices. The zero value is an empty list.
//
// List is not safe for concurrent use.
type List struct {
	heap    intHeap
	members map[int]struct{}
}

// New returns a list holding the indices [0, n).
func New(n int) *List {
	l := &List{}
	l.PushRange(0, n)
	return l
}

// Len returns the number of free indices.
func (l *List) Len() int { return len(l.heap) }

// Contains reports whether i is free.
func (l *List) Contains(i int) bool {
	_, ok := l.members[i]
	return ok
}

// Push marks i free. It returns false if i was already free.
func (l *List) Push(i int) bool {
	if l.members == nil {
		l.members = make(map[int]struct{})
	}
	if _, ok := l.members[i]; ok {
		return false
	}
	l.members[i] = struct{}{}
	heap.Push(&l.heap, i)
	return true
}

// PushRange marks every index in [from, to) free.
func (l *List) PushRange(from, to int) {
	for i := from; i < to; i++ {
		l.Push(i)
	}
}

// Pop removes and returns the smallest free index.
func (l *List) Pop() (int, bool) {
	if len(l.heap) == 0 {
		return 0, false
	}
	i := heap.Pop(&l.heap).(int)
	delete(l.members, i)
	return i, true
}

// Sorted returns the free indices in ascending order.
func (l *List) Sorted() []int {
	out := slices.Clone([]int(l.heap))
	slices.Sort(out)
	return out
}

// Reset empties the list.
func (l *List) Reset() {
	l.heap = l.heap[:0]
	clear(l.members)
}
