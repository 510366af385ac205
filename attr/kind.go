// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package attr

import "fmt"

// Kind identifies one attribute of a visual instance.
//
// The set is closed: a render group owns exactly one store per kind, and
// the instanced shader binds one vertex buffer per kind in this order.
type Kind uint8

const (
	KindPosition  Kind = iota // Top-left corner in target pixels
	KindArea                  // Width and height in pixels
	KindLayer                 // Depth used for ordering
	KindColor                 // Straight-alpha RGBA tint
	KindTexCoords             // Normalized atlas rectangle
	KindNull                  // Visibility bit

	kindCount
)

// Kinds lists every attribute kind in binding order.
var Kinds = [kindCount]Kind{KindPosition, KindArea, KindLayer, KindColor, KindTexCoords, KindNull}

var kindNames = [...]string{
	KindPosition:  "position",
	KindArea:      "area",
	KindLayer:     "layer",
	KindColor:     "color",
	KindTexCoords: "texcoords",
	KindNull:      "null",
}

// kindSizes holds the byte size of one element of each kind.
var kindSizes = [...]int{
	KindPosition:  8,
	KindArea:      8,
	KindLayer:     4,
	KindColor:     16,
	KindTexCoords: 16,
	KindNull:      4,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Size returns the byte size of one element of kind k.
func (k Kind) Size() int {
	if int(k) < len(kindSizes) {
		return kindSizes[k]
	}
	return 0
}

// Position is the top-left corner of an instance in target pixels.
type Position struct {
	X, Y float32
}

// Area is the size of an instance in target pixels.
type Area struct {
	W, H float32
}

// Layer is the depth of an instance. Larger values draw on top.
type Layer struct {
	Z float32
}

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// White is the default instance color.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// RGBA returns a Color from 8-bit components.
func RGBA(r, g, b, a uint8) Color {
	return Color{
		R: float32(r) / 255,
		G: float32(g) / 255,
		B: float32(b) / 255,
		A: float32(a) / 255,
	}
}

// TexCoords is a rectangle in normalized texture space:
// left, top, right, bottom.
type TexCoords struct {
	U0, V0, U1, V1 float32
}

// NullBit marks whether a slot holds a live instance.
type NullBit struct {
	Bit uint32
}

var (
	// NotNull marks a live slot.
	NotNull = NullBit{Bit: 0}

	// Null marks a free slot. The shader collapses null instances to zero
	// area.
	Null = NullBit{Bit: 1}
)

// IsNull reports whether n marks a free slot.
func (n NullBit) IsNull() bool { return n.Bit != 0 }
