// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "fmt"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each adapter implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 2

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 3

	// BufferUsageVertex indicates the buffer can be used as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << 5

	// BufferUsageUniform indicates the buffer can be used as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 6

	// BufferUsageStorage indicates the buffer can be used as a storage buffer.
	BufferUsageStorage BufferUsage = 1 << 7
)

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatR8Unorm is 8-bit red channel only. Glyph coverage atlases
	// use it.
	TextureFormatR8Unorm TextureFormat = iota + 1

	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm
)

// BytesPerPixel returns the texel size of f.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatR8Unorm:
		return 1
	case TextureFormatRGBA8Unorm:
		return 4
	default:
		return 0
	}
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatR8Unorm:
		return "R8Unorm"
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	default:
		return fmt.Sprintf("TextureFormat(%d)", uint32(f))
	}
}

// Region is a rectangle of texels inside a texture.
type Region struct {
	X, Y          int
	Width, Height int
}

// Range is a half-open range [Start, End) of vertices or instances.
type Range struct {
	Start, End uint32
}

// Len returns the number of elements in r.
func (r Range) Len() uint32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Scissor limits rasterization to a rectangle in target pixels.
// The zero value disables scissoring.
type Scissor struct {
	X, Y          uint32
	Width, Height uint32
}

// Enabled reports whether s restricts drawing.
func (s Scissor) Enabled() bool { return s.Width != 0 || s.Height != 0 }

// DrawCall describes one instanced draw over attribute buffers.
//
// Buffers are bound as instance-rate vertex buffers in order, slot 0 first.
type DrawCall struct {
	// Label is an optional debug label.
	Label string

	// Vertices is the per-instance vertex range. Quads use [0, 6).
	Vertices Range

	// Instances is the range of buffer slots to draw.
	Instances Range

	// Buffers are the attribute buffers, bound in order.
	Buffers []BufferID

	// Texture is the sampled texture, or InvalidID.
	Texture TextureID

	// Uniform is a small per-draw uniform buffer, or InvalidID.
	Uniform BufferID

	// Scissor clips the draw.
	Scissor Scissor
}
