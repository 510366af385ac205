// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/retained/gpucore"
	"github.com/gogpu/retained/internal/logx"
	"github.com/gogpu/wgpu/hal"
)

// Errors returned by the HAL adapter.
var (
	// ErrNotHAL is returned when a device provider does not expose HAL
	// device and queue handles.
	ErrNotHAL = errors.New("native: provider does not expose a HAL device")

	// ErrClosed is returned by operations on a closed adapter.
	ErrClosed = errors.New("native: adapter closed")

	// ErrUnknownResource is returned by Draw when a call names a buffer or
	// texture the adapter does not hold.
	ErrUnknownResource = errors.New("native: unknown resource")
)

// halProvider is implemented by device providers that expose raw HAL
// handles alongside the gpucontext interfaces.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

type halBuffer struct {
	buf  hal.Buffer
	size uint64
}

type halTexture struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height uint32
	format        gpucore.TextureFormat
}

// HALAdapter implements gpucore.Adapter on a wgpu HAL device.
//
// Resource calls go straight to the device and queue. Draw only validates
// and queues the call; Encode replays the queued draws into a render pass
// owned by the host.
//
// HALAdapter is safe for concurrent use.
type HALAdapter struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	buffers  map[gpucore.BufferID]halBuffer
	textures map[gpucore.TextureID]halTexture
	nextID   uint64

	draws      []gpucore.DrawCall
	bindGroups []hal.BindGroup

	closed bool
}

var _ gpucore.Adapter = (*HALAdapter)(nil)

// New creates an adapter on device and queue. format is the color format
// of the targets draws are encoded into.
func New(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) *HALAdapter {
	return &HALAdapter{
		device:   device,
		queue:    queue,
		format:   format,
		buffers:  make(map[gpucore.BufferID]halBuffer),
		textures: make(map[gpucore.TextureID]halTexture),
	}
}

// NewFromProvider creates an adapter from a host's device provider. The
// provider must expose HAL handles through HalDevice and HalQueue.
func NewFromProvider(p gpucontext.DeviceProvider) (*HALAdapter, error) {
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, ErrNotHAL
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, ErrNotHAL
	}
	return New(device, queue, p.SurfaceFormat()), nil
}

// Device returns the HAL device.
func (a *HALAdapter) Device() hal.Device { return a.device }

// Queue returns the HAL queue.
func (a *HALAdapter) Queue() hal.Queue { return a.queue }

// Format returns the color target format.
func (a *HALAdapter) Format() gputypes.TextureFormat { return a.format }

func (a *HALAdapter) newID() uint64 {
	a.nextID++
	return a.nextID
}

func convertBufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u&gpucore.BufferUsageCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	if u&gpucore.BufferUsageCopyDst != 0 {
		out |= gputypes.BufferUsageCopyDst
	}
	if u&gpucore.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&gpucore.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&gpucore.BufferUsageStorage != 0 {
		out |= gputypes.BufferUsageStorage
	}
	return out
}

func convertTextureFormat(f gpucore.TextureFormat) (gputypes.TextureFormat, error) {
	switch f {
	case gpucore.TextureFormatR8Unorm:
		return gputypes.TextureFormatR8Unorm, nil
	case gpucore.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, nil
	default:
		return 0, fmt.Errorf("native: unsupported texture format %v", f)
	}
}

// CreateBuffer creates a HAL buffer.
func (a *HALAdapter) CreateBuffer(label string, size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("native: buffer %s: invalid size %d", label, size)
	}
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer %s: %w", label, err)
	}
	id := gpucore.BufferID(a.newID())
	a.buffers[id] = halBuffer{buf: buf, size: uint64(size)}
	return id, nil
}

// DestroyBuffer destroys a buffer. Unknown IDs are ignored.
func (a *HALAdapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buffers[id]
	if !ok {
		return
	}
	delete(a.buffers, id)
	a.device.DestroyBuffer(b.buf)
}

// WriteBuffer queues a write into a buffer. Writes past the end of the
// buffer are dropped and logged.
func (a *HALAdapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buffers[id]
	if !ok {
		logx.Logger().Warn("native: write to unknown buffer", "buffer", id)
		return
	}
	if offset+uint64(len(data)) > b.size {
		logx.Logger().Warn("native: buffer write out of range",
			"buffer", id, "offset", offset, "len", len(data), "size", b.size)
		return
	}
	if err := a.queue.WriteBuffer(b.buf, offset, data); err != nil {
		logx.Logger().Warn("native: buffer write failed", "buffer", id, "err", err)
	}
}

// CreateTexture creates a sampled 2D texture and its view.
func (a *HALAdapter) CreateTexture(label string, width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("native: texture %s: invalid size %dx%d", label, width, height)
	}
	gf, err := convertTextureFormat(format)
	if err != nil {
		return gpucore.InvalidID, err
	}
	w, h := uint32(width), uint32(height) //nolint:gosec // checked positive above
	tex, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gf,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %s: %w", label, err)
	}
	view, err := a.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gf,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		a.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("native: create texture view %s: %w", label, err)
	}
	id := gpucore.TextureID(a.newID())
	a.textures[id] = halTexture{tex: tex, view: view, width: w, height: h, format: format}
	return id, nil
}

// DestroyTexture destroys a texture and its view. Unknown IDs are ignored.
func (a *HALAdapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.textures[id]
	if !ok {
		return
	}
	delete(a.textures, id)
	a.device.DestroyTextureView(t.view)
	a.device.DestroyTexture(t.tex)
}

// WriteTexture queues an upload of tightly packed texels into region.
func (a *HALAdapter) WriteTexture(id gpucore.TextureID, region gpucore.Region, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.textures[id]
	if !ok {
		logx.Logger().Warn("native: write to unknown texture", "texture", id)
		return
	}
	if region.Width <= 0 || region.Height <= 0 || region.X < 0 || region.Y < 0 ||
		uint32(region.X+region.Width) > t.width || uint32(region.Y+region.Height) > t.height { //nolint:gosec // checked non-negative
		logx.Logger().Warn("native: texture write out of range", "texture", id,
			"x", region.X, "y", region.Y, "w", region.Width, "h", region.Height)
		return
	}
	bpp := t.format.BytesPerPixel()
	if len(data) < region.Width*region.Height*bpp {
		logx.Logger().Warn("native: short texture write", "texture", id, "len", len(data))
		return
	}
	err := a.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(region.X), Y: uint32(region.Y)}, //nolint:gosec // checked non-negative
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(region.Width * bpp),  //nolint:gosec // checked positive
			RowsPerImage: uint32(region.Height),       //nolint:gosec // checked positive
		},
		&hal.Extent3D{Width: uint32(region.Width), Height: uint32(region.Height), DepthOrArrayLayers: 1}, //nolint:gosec // checked positive
	)
	if err != nil {
		logx.Logger().Warn("native: texture write failed", "texture", id, "err", err)
	}
}

// Draw validates call and queues it for the next Encode.
func (a *HALAdapter) Draw(call gpucore.DrawCall) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	for i, id := range call.Buffers {
		if _, ok := a.buffers[id]; !ok {
			return fmt.Errorf("%w: draw %s: buffer %d (binding %d)", ErrUnknownResource, call.Label, id, i)
		}
	}
	if call.Uniform != gpucore.InvalidID {
		if _, ok := a.buffers[call.Uniform]; !ok {
			return fmt.Errorf("%w: draw %s: uniform %d", ErrUnknownResource, call.Label, call.Uniform)
		}
	}
	if call.Texture != gpucore.InvalidID {
		if _, ok := a.textures[call.Texture]; !ok {
			return fmt.Errorf("%w: draw %s: texture %d", ErrUnknownResource, call.Label, call.Texture)
		}
	}
	call.Buffers = append([]gpucore.BufferID(nil), call.Buffers...)
	a.draws = append(a.draws, call)
	return nil
}

// Pending returns the number of queued draws.
func (a *HALAdapter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.draws)
}

func (a *HALAdapter) releaseBindGroups() {
	for _, bg := range a.bindGroups {
		a.device.DestroyBindGroup(bg)
	}
	a.bindGroups = a.bindGroups[:0]
}

// Encode replays the queued draws into rp with pipeline p and clears the
// queue. It returns the number of draws encoded. Draws whose resources
// were destroyed after Draw are skipped.
//
// Bind groups created for the pass live until the next Encode or Close.
func (a *HALAdapter) Encode(rp hal.RenderPassEncoder, p *InstancePipeline) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, ErrClosed
	}
	a.releaseBindGroups()

	draws := a.draws
	a.draws = a.draws[:0]
	if len(draws) == 0 {
		return 0, nil
	}

	rp.SetPipeline(p.pipeline)
	encoded := 0
	scissored := false
	for _, call := range draws {
		bg, ok, err := a.bindGroupFor(call, p)
		if err != nil {
			return encoded, err
		}
		if !ok {
			logx.Logger().Warn("native: draw dropped, resources gone", "draw", call.Label)
			continue
		}
		a.bindGroups = append(a.bindGroups, bg)

		if call.Scissor.Enabled() {
			sc, visible := clampScissor(call.Scissor, p.width, p.height)
			if !visible {
				continue
			}
			rp.SetScissorRect(sc.X, sc.Y, sc.Width, sc.Height)
			scissored = true
		} else if scissored {
			rp.SetScissorRect(0, 0, p.width, p.height)
			scissored = false
		}

		rp.SetBindGroup(0, bg, nil)
		for slot, id := range call.Buffers {
			rp.SetVertexBuffer(uint32(slot), a.buffers[id].buf, 0) //nolint:gosec // few bindings
		}
		rp.Draw(call.Vertices.Len(), call.Instances.Len(), call.Vertices.Start, call.Instances.Start)
		encoded++
	}
	return encoded, nil
}

// clampScissor limits s to a width×height target. visible is false when
// nothing of s lies on the target. A zero target size leaves s unchanged.
func clampScissor(s gpucore.Scissor, width, height uint32) (gpucore.Scissor, bool) {
	if width == 0 || height == 0 {
		return s, true
	}
	x0, y0 := min(s.X, width), min(s.Y, height)
	x1 := min(uint64(s.X)+uint64(s.Width), uint64(width))
	y1 := min(uint64(s.Y)+uint64(s.Height), uint64(height))
	if x1 <= uint64(x0) || y1 <= uint64(y0) {
		return gpucore.Scissor{}, false
	}
	return gpucore.Scissor{X: x0, Y: y0, Width: uint32(x1) - x0, Height: uint32(y1) - y0}, true
}

// bindGroupFor builds the bind group of one draw. ok is false when a
// resource the call names no longer exists.
func (a *HALAdapter) bindGroupFor(call gpucore.DrawCall, p *InstancePipeline) (hal.BindGroup, bool, error) {
	for _, id := range call.Buffers {
		if _, ok := a.buffers[id]; !ok {
			return nil, false, nil
		}
	}

	placement, size := p.zeroPlacement, uint64(placementBytes)
	if call.Uniform != gpucore.InvalidID {
		b, ok := a.buffers[call.Uniform]
		if !ok {
			return nil, false, nil
		}
		placement, size = b.buf, min(b.size, size)
	}

	view := p.whiteView
	if call.Texture != gpucore.InvalidID {
		t, ok := a.textures[call.Texture]
		if !ok {
			return nil, false, nil
		}
		view = t.view
	}

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  call.Label + "_bind",
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: placement.NativeHandle(), Offset: 0, Size: size,
			}},
			{Binding: 1, Resource: gputypes.BufferBinding{
				Buffer: p.viewport.NativeHandle(), Offset: 0, Size: viewportBytes,
			}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{
				TextureView: view.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("native: bind group %s: %w", call.Label, err)
	}
	return bg, true, nil
}

// Render encodes the queued draws into a single render pass over target,
// submits it and waits until the queue reports the submission complete.
// The target is cleared first. It returns the number of draws encoded.
func (a *HALAdapter) Render(target hal.TextureView, p *InstancePipeline, clear gputypes.Color) (int, error) {
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "retained_encoder",
	})
	if err != nil {
		return 0, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("retained_frame"); err != nil {
		return 0, fmt.Errorf("native: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "retained_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clear,
		}},
	})
	n, err := a.Encode(rp, p)
	rp.End()
	if err != nil {
		encoder.DiscardEncoding()
		return n, err
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return n, fmt.Errorf("native: end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	idx, err := a.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return n, fmt.Errorf("native: submit: %w", err)
	}
	if a.queue.PollCompleted() < idx {
		if err := a.device.WaitIdle(); err != nil {
			return n, fmt.Errorf("native: wait for submission %d: %w", idx, err)
		}
	}
	return n, nil
}

// Buffers returns the number of live buffers.
func (a *HALAdapter) Buffers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}

// Textures returns the number of live textures.
func (a *HALAdapter) Textures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.textures)
}

// Close destroys every resource the adapter still holds. The device and
// queue are left to their owner. Close is idempotent.
func (a *HALAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.releaseBindGroups()
	a.draws = nil
	for id, b := range a.buffers {
		a.device.DestroyBuffer(b.buf)
		delete(a.buffers, id)
	}
	for id, t := range a.textures {
		a.device.DestroyTextureView(t.view)
		a.device.DestroyTexture(t.tex)
		delete(a.textures, id)
	}
}
