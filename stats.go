// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package retained

import "fmt"

// FrameStats describes the work done by one Frame.
type FrameStats struct {
	// Frame is the 1-based frame number.
	Frame uint64

	// BufferWrites and BytesUploaded count attribute and uniform uploads;
	// BytesUploaded also includes atlas texture bytes.
	BufferWrites  int
	BytesUploaded int

	// FullUploads is the number of groups that re-uploaded whole buffers
	// after growing.
	FullUploads int

	// TextureWrites is the number of glyph bitmaps uploaded to the atlas.
	TextureWrites int

	Draws     int
	Instances int

	// Grown is the number of groups whose capacity grew.
	Grown int

	// AtlasGrown is set when the glyph atlas was rebuilt at a larger size.
	AtlasGrown bool

	// Reclaimed is the number of glyphs evicted from the atlas.
	Reclaimed int
}

func (s FrameStats) String() string {
	return fmt.Sprintf("frame %d: %d buffer writes (%d full), %d texture writes, %d bytes, %d draws, %d instances, %d grown, %d reclaimed",
		s.Frame, s.BufferWrites, s.FullUploads, s.TextureWrites, s.BytesUploaded, s.Draws, s.Instances, s.Grown, s.Reclaimed)
}
