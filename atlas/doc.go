// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package atlas provides a reference-counted glyph atlas.
//
// A [Cache] packs rasterized glyph bitmaps into the cells of a square grid
// backed by one GPU texture. Each [GlyphID] (character, font, pixel scale)
// is rasterized once while any render group references it. Uploads are
// queued and written in one batch by [Cache.Flush], mirroring how attribute
// stores batch buffer writes.
//
// Per frame the pipeline calls, in order:
//
//	Acquire / Release   // while groups prepare
//	Reclaim             // free cells of glyphs still at zero
//	Flush               // upload new bitmaps
package atlas
