// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package group implements render groups: sets of instanced quads that
// share one slot indexer and one attribute store per attribute kind.
//
// Producers describe what changed through a [Difference]. Once per frame
// the group extracts it and runs three phases, always in this order:
//
//	st, err := g.Prepare() // apply removals, additions and values
//	fs, err := g.Flush()   // upload pending slots as coalesced ranges
//	ds, err := g.Draw()    // one instanced draw over [0, count)
//
// [Group] serves any comparable key. [TextGroup] lays text out into glyph
// instances keyed by [GlyphKey] and shares glyph bitmaps through an
// atlas.Cache.
//
// Producer mistakes such as removing an unknown key are collected into a
// [*MisuseError]; the frame still completes. Errors from the GPU adapter are
// returned as is.
package group
