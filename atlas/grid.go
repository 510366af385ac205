// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package atlas

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/retained/internal/freelist"
)

// Location is a cell of the atlas grid, in cells.
type Location struct {
	X, Y int
}

func (l Location) String() string { return fmt.Sprintf("(%d,%d)", l.X, l.Y) }

// Grid hands out the cells of a square dim×dim grid with reuse.
//
// Free cells are returned smallest row-major index first. Growing the grid
// keeps every allocated cell at the same (x, y).
type Grid struct {
	dim  int
	used map[Location]struct{}
	free *freelist.List
}

// NewGrid creates a grid of dim×dim free cells.
func NewGrid(dim int) *Grid {
	if dim < 1 {
		dim = 1
	}
	return &Grid{
		dim:  dim,
		used: make(map[Location]struct{}),
		free: freelist.New(dim * dim),
	}
}

func (g *Grid) index(l Location) int { return l.Y*g.dim + l.X }

func (g *Grid) location(i int) Location { return Location{X: i % g.dim, Y: i / g.dim} }

// Allocate takes the next free cell. It returns false when the grid is full.
func (g *Grid) Allocate() (Location, bool) {
	i, ok := g.free.Pop()
	if !ok {
		return Location{}, false
	}
	l := g.location(i)
	g.used[l] = struct{}{}
	return l, true
}

// Free returns a cell to the grid. Freeing a cell that is not allocated
// panics.
func (g *Grid) Free(l Location) {
	if _, ok := g.used[l]; !ok {
		panic(fmt.Sprintf("atlas: free of unallocated cell %v", l))
	}
	delete(g.used, l)
	g.free.Push(g.index(l))
}

// Grow enlarges the grid to dim×dim. Allocated cells keep their location.
// Requests that do not enlarge the grid are ignored.
func (g *Grid) Grow(dim int) {
	if dim <= g.dim {
		return
	}
	g.dim = dim
	g.free.Reset()
	for y := range dim {
		for x := range dim {
			l := Location{X: x, Y: y}
			if _, ok := g.used[l]; !ok {
				g.free.Push(g.index(l))
			}
		}
	}
}

// Dimension returns the number of cells per side.
func (g *Grid) Dimension() int { return g.dim }

// Capacity returns the total number of cells.
func (g *Grid) Capacity() int { return g.dim * g.dim }

// Allocated returns the number of cells in use.
func (g *Grid) Allocated() int { return len(g.used) }

// Remaining returns the number of free cells.
func (g *Grid) Remaining() int { return g.free.Len() }

// DimensionFor returns the smallest grid dimension holding n cells.
// It never returns less than 1.
func DimensionFor(n int) int {
	if n <= 1 {
		return 1
	}
	d := int(math32.Ceil(math32.Sqrt(float32(n))))
	// Guard float rounding for perfect squares and their neighbors.
	for d*d < n {
		d++
	}
	for d > 1 && (d-1)*(d-1) >= n {
		d--
	}
	return d
}

// growDimension returns the smallest dimension above dim that adds at least
// need cells, capped at limit. The result equals dim when dim is already at
// the limit.
func growDimension(dim, need, limit int) int {
	d := dim + 1
	for d*d-dim*dim < need {
		d++
	}
	if d > limit {
		d = limit
	}
	if d < dim {
		d = dim
	}
	return d
}
