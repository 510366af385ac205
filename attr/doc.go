// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package attr holds per-slot instance attributes and keeps their GPU
// buffers in sync.
//
// Each attribute [Kind] has a fixed-layout Go type ([Position], [Area],
// [Layer], [Color], [TexCoords], [NullBit]). A [Store] pairs a CPU array of
// one such type with a GPU buffer of the same capacity. Writes are diffed
// against the CPU array, collected per frame, and uploaded by [Store.Flush]
// as the minimum number of contiguous range writes computed by [Coalesce].
//
//	pos, _ := attr.NewStore(adapter, "icons.position", 64, attr.Position{})
//	pos.Set(2, attr.Position{X: 10, Y: 20})
//	pos.Set(3, attr.Position{X: 30, Y: 20})
//	stats, _ := pos.Flush() // one write covering slots 2..3
package attr
