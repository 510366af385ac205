// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package recording provides an in-memory gpucore.Adapter.
//
// The adapter keeps a byte mirror of every buffer and texture and logs every
// call as a typed Command. It has no GPU behind it, which makes it the
// observable backend for tests and for the retainsim tool: after a frame,
// the mirror of an attribute buffer must equal the CPU array of its store,
// and the log shows exactly which ranges were uploaded.
//
//	rec := recording.New()
//	r, _ := retained.New(rec, retained.DefaultConfig())
//	...
//	stats, _ := r.Frame()
//	for _, c := range rec.Commands() { fmt.Println(c) }
package recording

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/retained/gpucore"
)

// Errors returned by the recording adapter.
var (
	// ErrInvalidSize is returned when a resource is created with a
	// non-positive size.
	ErrInvalidSize = errors.New("recording: invalid resource size")

	// ErrUnknownBuffer is returned by Draw when a bound buffer does not exist.
	ErrUnknownBuffer = errors.New("recording: unknown buffer")
)

type bufferState struct {
	label string
	usage gpucore.BufferUsage
	data  []byte
}

type textureState struct {
	label         string
	width, height int
	format        gpucore.TextureFormat
	data          []byte
}

// Adapter is a gpucore.Adapter that records instead of rendering.
//
// Adapter is not safe for concurrent use.
type Adapter struct {
	nextID   uint64
	buffers  map[gpucore.BufferID]*bufferState
	textures map[gpucore.TextureID]*textureState
	commands []Command

	// FailCreate, when non-nil, is returned by the next CreateBuffer or
	// CreateTexture call and then cleared.
	FailCreate error
}

var _ gpucore.Adapter = (*Adapter)(nil)

// New returns an empty recording adapter.
func New() *Adapter {
	return &Adapter{
		nextID:   1,
		buffers:  make(map[gpucore.BufferID]*bufferState),
		textures: make(map[gpucore.TextureID]*textureState),
	}
}

func (a *Adapter) newID() uint64 {
	id := a.nextID
	a.nextID++
	return id
}

func (a *Adapter) takeFailure() error {
	err := a.FailCreate
	a.FailCreate = nil
	return err
}

// CreateBuffer allocates a zeroed mirror of size bytes.
func (a *Adapter) CreateBuffer(label string, size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if err := a.takeFailure(); err != nil {
		return gpucore.InvalidID, err
	}
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q size %d", ErrInvalidSize, label, size)
	}
	id := gpucore.BufferID(a.newID())
	a.buffers[id] = &bufferState{label: label, usage: usage, data: make([]byte, size)}
	a.commands = append(a.commands, Command{Type: CmdCreateBuffer, Label: label, Buffer: id, Len: size})
	return id, nil
}

// DestroyBuffer drops a buffer mirror. Unknown IDs are ignored.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	b, ok := a.buffers[id]
	if !ok {
		return
	}
	delete(a.buffers, id)
	a.commands = append(a.commands, Command{Type: CmdDestroyBuffer, Label: b.label, Buffer: id})
}

// WriteBuffer copies data into the mirror. It panics if the write falls
// outside the buffer, which a real device would reject as a validation
// error.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	b, ok := a.buffers[id]
	if !ok {
		panic(fmt.Sprintf("recording: write to unknown buffer %d", id))
	}
	end := offset + uint64(len(data))
	if end > uint64(len(b.data)) {
		panic(fmt.Sprintf("recording: write [%d, %d) past end of buffer %q (%d bytes)", offset, end, b.label, len(b.data)))
	}
	copy(b.data[offset:end], data)
	a.commands = append(a.commands, Command{Type: CmdWriteBuffer, Label: b.label, Buffer: id, Offset: offset, Len: len(data)})
}

// CreateTexture allocates a zeroed texel mirror.
func (a *Adapter) CreateTexture(label string, width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	if err := a.takeFailure(); err != nil {
		return gpucore.InvalidID, err
	}
	if width <= 0 || height <= 0 || format.BytesPerPixel() == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q %dx%d %v", ErrInvalidSize, label, width, height, format)
	}
	id := gpucore.TextureID(a.newID())
	a.textures[id] = &textureState{
		label:  label,
		width:  width,
		height: height,
		format: format,
		data:   make([]byte, width*height*format.BytesPerPixel()),
	}
	a.commands = append(a.commands, Command{
		Type:    CmdCreateTexture,
		Label:   label,
		Texture: id,
		Region:  gpucore.Region{Width: width, Height: height},
	})
	return id, nil
}

// DestroyTexture drops a texture mirror. Unknown IDs are ignored.
func (a *Adapter) DestroyTexture(id gpucore.TextureID) {
	t, ok := a.textures[id]
	if !ok {
		return
	}
	delete(a.textures, id)
	a.commands = append(a.commands, Command{Type: CmdDestroyTexture, Label: t.label, Texture: id})
}

// WriteTexture copies tightly packed rows into the region. It panics when
// the region does not fit the texture or data is too short.
func (a *Adapter) WriteTexture(id gpucore.TextureID, region gpucore.Region, data []byte) {
	t, ok := a.textures[id]
	if !ok {
		panic(fmt.Sprintf("recording: write to unknown texture %d", id))
	}
	if region.X < 0 || region.Y < 0 || region.X+region.Width > t.width || region.Y+region.Height > t.height {
		panic(fmt.Sprintf("recording: region %+v outside texture %q (%dx%d)", region, t.label, t.width, t.height))
	}
	bpp := t.format.BytesPerPixel()
	row := region.Width * bpp
	if len(data) < row*region.Height {
		panic(fmt.Sprintf("recording: %d bytes for region %+v, want %d", len(data), region, row*region.Height))
	}
	for y := range region.Height {
		dst := ((region.Y+y)*t.width + region.X) * bpp
		copy(t.data[dst:dst+row], data[y*row:(y+1)*row])
	}
	a.commands = append(a.commands, Command{Type: CmdWriteTexture, Label: t.label, Texture: id, Region: region})
}

// Draw logs the draw after checking that every bound resource exists.
func (a *Adapter) Draw(call gpucore.DrawCall) error {
	for _, b := range call.Buffers {
		if _, ok := a.buffers[b]; !ok {
			return fmt.Errorf("%w: %d in draw %q", ErrUnknownBuffer, b, call.Label)
		}
	}
	call.Buffers = slices.Clone(call.Buffers)
	a.commands = append(a.commands, Command{Type: CmdDraw, Label: call.Label, Draw: call})
	return nil
}

// Bytes returns a copy of the buffer mirror, or nil for an unknown ID.
func (a *Adapter) Bytes(id gpucore.BufferID) []byte {
	b, ok := a.buffers[id]
	if !ok {
		return nil
	}
	return slices.Clone(b.data)
}

// BufferUsage returns the usage flags a buffer was created with.
func (a *Adapter) BufferUsage(id gpucore.BufferID) (gpucore.BufferUsage, bool) {
	b, ok := a.buffers[id]
	if !ok {
		return 0, false
	}
	return b.usage, true
}

// TextureBytes returns a copy of the texel mirror, or nil for an unknown ID.
func (a *Adapter) TextureBytes(id gpucore.TextureID) []byte {
	t, ok := a.textures[id]
	if !ok {
		return nil
	}
	return slices.Clone(t.data)
}

// TextureSize returns the size of a texture.
func (a *Adapter) TextureSize(id gpucore.TextureID) (width, height int, ok bool) {
	t, ok := a.textures[id]
	if !ok {
		return 0, 0, false
	}
	return t.width, t.height, true
}

// Buffers returns the number of live buffers.
func (a *Adapter) Buffers() int { return len(a.buffers) }

// Textures returns the number of live textures.
func (a *Adapter) Textures() int { return len(a.textures) }

// Commands returns the command log since the last Reset.
func (a *Adapter) Commands() []Command { return slices.Clone(a.commands) }

// Filter returns the logged commands of one type.
func (a *Adapter) Filter(t CommandType) []Command {
	var out []Command
	for _, c := range a.commands {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// BufferWrites returns the logged writes into one buffer.
func (a *Adapter) BufferWrites(id gpucore.BufferID) []Command {
	var out []Command
	for _, c := range a.commands {
		if c.Type == CmdWriteBuffer && c.Buffer == id {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the command log. Resource mirrors are kept.
func (a *Adapter) Reset() { a.commands = a.commands[:0] }
