// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements gpucore.Adapter on a wgpu HAL device.
//
// HALAdapter creates buffers and textures directly on the device and writes
// them through the queue. Draw calls are queued and replayed by Encode into
// a render pass the host owns, using an InstancePipeline that expands every
// slot of a render group into a quad:
//
//	a, err := native.NewFromProvider(provider)
//	p, err := native.NewInstancePipeline(a.Device(), a.Queue(), a.Format())
//	err = p.SetViewport(width, height)
//
//	r, err := retained.New(a, retained.DefaultConfig())
//	// each frame
//	stats, err := r.Frame()
//	n, err := a.Encode(renderPass, p)
//
// Render encodes a whole pass, submits it and waits until the queue reports
// the submission complete.
package native
