// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package face rasterizes glyphs for the atlas.
//
// A [Registry] owns parsed fonts, with Go Regular registered as
// [DefaultFont]. A [Rasterizer] implements atlas.Rasterizer on top of
// golang.org/x/image/font/opentype and reports advances and ascent for text
// layout. Rune coverage is checked through the go-text cmap so uncovered
// runes fall back to a replacement glyph instead of rendering blank.
package face
