// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package retained keeps per-instance render data resident on the GPU and
// uploads only what changed.
//
// # Overview
//
// Every visual instance (an icon, a panel, one glyph of a label) is named by
// a stable key. A slot indexer maps keys to dense slots, one attribute store
// per attribute kind mirrors a CPU array in a GPU vertex buffer, and a write
// coalescer turns each frame's changed slots into the fewest contiguous
// uploads. Text is drawn from a reference-counted glyph atlas shared by every
// text group.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/retained"
//	    "github.com/gogpu/retained/attr"
//	    "github.com/gogpu/retained/backend/recording"
//	    "github.com/gogpu/retained/group"
//	)
//
//	r, err := retained.New(recording.New(), retained.DefaultConfig())
//	if err != nil { ... }
//	defer r.Close()
//
//	icons, _ := retained.NewGroup[string](r, "icons")
//	labels, _ := retained.NewTextGroup[string](r, "labels")
//
//	icons.Difference().ReportPosition("save", attr.Position{X: 10, Y: 10})
//	labels.SetText("title", group.Text{Value: "Hello", Scale: 16, Color: attr.White})
//
//	stats, err := r.Frame()
//
// # Frame Pipeline
//
// [Renderer.Frame] runs a fixed sequence over the groups in creation order:
// prepare every group, reclaim unreferenced glyphs, flush every group, flush
// the atlas texture, draw every group. There is no global registration and
// no concurrency; a Renderer and its groups belong to one goroutine.
//
// # Backends
//
// The core talks to the GPU through gpucore.Adapter. backend/native
// implements it on gogpu/wgpu HAL devices; backend/recording keeps an
// in-memory mirror of every resource for tests and tools.
//
// # Logging
//
// retained is silent by default. Call [SetLogger] to receive diagnostics
// from the renderer and every sub-package.
package retained
