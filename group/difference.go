// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package group

import "github.com/gogpu/retained/attr"

// Difference collects one frame of producer reports for a group.
//
// Each attribute keeps at most one value per key; a later report replaces
// an earlier one. ReportRemoved discards the reports made for the key so
// far in the frame; reports made after it re-create the key. A key that is
// reported and removed within one frame without ever being live is not an
// error.
//
// Keys are replayed in the order they were first reported, so slot
// assignment is deterministic.
type Difference[K comparable] struct {
	order   []K
	seen    map[K]struct{}
	removed []K
	dropped map[K]struct{}

	positions map[K]attr.Position
	areas     map[K]attr.Area
	layers    map[K]attr.Layer
	colors    map[K]attr.Color
	texcoords map[K]attr.TexCoords
}

// NewDifference returns an empty difference.
func NewDifference[K comparable]() *Difference[K] {
	return &Difference[K]{
		seen:      make(map[K]struct{}),
		dropped:   make(map[K]struct{}),
		positions: make(map[K]attr.Position),
		areas:     make(map[K]attr.Area),
		layers:    make(map[K]attr.Layer),
		colors:    make(map[K]attr.Color),
		texcoords: make(map[K]attr.TexCoords),
	}
}

func (d *Difference[K]) touch(k K) {
	if _, ok := d.seen[k]; ok {
		return
	}
	d.seen[k] = struct{}{}
	d.order = append(d.order, k)
}

// ReportPosition records the position of k.
func (d *Difference[K]) ReportPosition(k K, v attr.Position) { d.touch(k); d.positions[k] = v }

// ReportArea records the area of k.
func (d *Difference[K]) ReportArea(k K, v attr.Area) { d.touch(k); d.areas[k] = v }

// ReportLayer records the layer of k.
func (d *Difference[K]) ReportLayer(k K, v attr.Layer) { d.touch(k); d.layers[k] = v }

// ReportColor records the color of k.
func (d *Difference[K]) ReportColor(k K, v attr.Color) { d.touch(k); d.colors[k] = v }

// ReportTexCoords records the texture rectangle of k.
func (d *Difference[K]) ReportTexCoords(k K, v attr.TexCoords) { d.touch(k); d.texcoords[k] = v }

// ReportRemoved records that k no longer exists.
func (d *Difference[K]) ReportRemoved(k K) {
	if _, ok := d.seen[k]; ok {
		d.dropped[k] = struct{}{}
		delete(d.seen, k)
		delete(d.positions, k)
		delete(d.areas, k)
		delete(d.layers, k)
		delete(d.colors, k)
		delete(d.texcoords, k)
		for i, o := range d.order {
			if o == k {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
	d.removed = append(d.removed, k)
}

// Empty reports whether nothing was reported.
func (d *Difference[K]) Empty() bool { return len(d.order) == 0 && len(d.removed) == 0 }

// Keys returns the reported keys in first-report order.
func (d *Difference[K]) Keys() []K { return d.order }

// Removed returns the removed keys in report order.
func (d *Difference[K]) Removed() []K { return d.removed }

// Dropped reports whether reports for k were discarded by ReportRemoved.
func (d *Difference[K]) Dropped(k K) bool {
	_, ok := d.dropped[k]
	return ok
}
