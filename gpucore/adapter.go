// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

// Adapter abstracts over GPU backend implementations.
//
// The retained core only ever creates whole buffers and textures, writes
// contiguous ranges into them and records instanced draws. Everything else
// (pipelines, passes, submission) belongs to the backend.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - IDs become invalid after destruction and must not be reused
type Adapter interface {
	// CreateBuffer creates a GPU buffer of size bytes.
	//
	// Parameters:
	//   - label: optional debug label
	//   - size: buffer size in bytes
	//   - usage: buffer usage flags (bitmask of BufferUsage*)
	CreateBuffer(label string, size int, usage BufferUsage) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer writes data to a buffer at a byte offset.
	// The data is copied before WriteBuffer returns.
	WriteBuffer(id BufferID, offset uint64, data []byte)

	// CreateTexture creates a 2D texture that can be sampled and written.
	CreateTexture(label string, width, height int, format TextureFormat) (TextureID, error)

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// WriteTexture writes tightly packed texels into a region of a texture.
	WriteTexture(id TextureID, region Region, data []byte)

	// Draw records an instanced draw. Backends replay recorded draws when the
	// host encodes its render pass.
	Draw(call DrawCall) error
}
