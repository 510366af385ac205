// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucore defines the GPU backend boundary of the retained renderer.
//
// The [Adapter] interface abstracts over backend implementations so the
// attribute stores, glyph atlas and render groups work unchanged with:
//   - gogpu/wgpu HAL devices (backend/native)
//   - an in-memory mirror used by tests and tooling (backend/recording)
//
// # Architecture
//
//	          +---------------------------+
//	          |  attr / atlas / group     |
//	          +-------------+-------------+
//	                        |
//	                  gpucore.Adapter
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	| native adapter  |          |   recording     |
//	|  (hal.Device)   |          |  (byte mirror)  |
//	+-----------------+          +-----------------+
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [TextureID]).
// Adapters are responsible for tracking the mapping between IDs and actual
// GPU resources. Buffers cannot be resized; callers destroy and recreate
// them when capacity changes.
package gpucore
