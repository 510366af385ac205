// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/retained"
	"github.com/gogpu/retained/attr"
	"github.com/gogpu/retained/gpucore"
	"github.com/gogpu/retained/group"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newTestAdapter(t *testing.T) *HALAdapter {
	t.Helper()
	device, queue := createNoopDevice(t)
	a := New(device, queue, gputypes.TextureFormatBGRA8Unorm)
	t.Cleanup(a.Close)
	return a
}

func newTestPipeline(t *testing.T, a *HALAdapter) *InstancePipeline {
	t.Helper()
	p, err := NewInstancePipeline(a.Device(), a.Queue(), a.Format())
	if err != nil {
		t.Fatalf("NewInstancePipeline: %v", err)
	}
	t.Cleanup(p.Destroy)
	if err := p.SetViewport(256, 128); err != nil {
		t.Fatalf("SetViewport: %v", err)
	}
	return p
}

// createTarget creates a color target view the size of the viewport.
func createTarget(t *testing.T, a *HALAdapter) hal.TextureView {
	t.Helper()
	tex, err := a.Device().CreateTexture(&hal.TextureDescriptor{
		Label:         "test_target",
		Size:          hal.Extent3D{Width: 256, Height: 128, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("create target: %v", err)
	}
	view, err := a.Device().CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "test_target_view"})
	if err != nil {
		a.Device().DestroyTexture(tex)
		t.Fatalf("create target view: %v", err)
	}
	t.Cleanup(func() {
		a.Device().DestroyTextureView(view)
		a.Device().DestroyTexture(tex)
	})
	return view
}

func TestHALAdapter_BufferLifecycle(t *testing.T) {
	a := newTestAdapter(t)

	id, err := a.CreateBuffer("b", 64, gpucore.BufferUsageVertex|gpucore.BufferUsageCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if id == gpucore.InvalidID {
		t.Fatal("CreateBuffer returned InvalidID")
	}
	if a.Buffers() != 1 {
		t.Errorf("Buffers() = %d, want 1", a.Buffers())
	}

	a.WriteBuffer(id, 0, make([]byte, 64))
	a.WriteBuffer(id, 60, make([]byte, 8)) // out of range, dropped
	a.WriteBuffer(id+100, 0, []byte{1})    // unknown, dropped

	a.DestroyBuffer(id)
	a.DestroyBuffer(id)
	if a.Buffers() != 0 {
		t.Errorf("Buffers() = %d after destroy, want 0", a.Buffers())
	}
}

func TestHALAdapter_InvalidSizes(t *testing.T) {
	a := newTestAdapter(t)
	if _, err := a.CreateBuffer("b", 0, gpucore.BufferUsageVertex); err == nil {
		t.Error("CreateBuffer(0) should fail")
	}
	if _, err := a.CreateTexture("t", 0, 4, gpucore.TextureFormatR8Unorm); err == nil {
		t.Error("CreateTexture(0x4) should fail")
	}
	if _, err := a.CreateTexture("t", 4, 4, gpucore.TextureFormat(99)); err == nil {
		t.Error("CreateTexture with unknown format should fail")
	}
}

func TestHALAdapter_TextureLifecycle(t *testing.T) {
	a := newTestAdapter(t)

	id, err := a.CreateTexture("atlas", 32, 32, gpucore.TextureFormatR8Unorm)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	a.WriteTexture(id, gpucore.Region{X: 4, Y: 4, Width: 2, Height: 2}, []byte{1, 2, 3, 4})
	a.WriteTexture(id, gpucore.Region{X: 31, Y: 0, Width: 2, Height: 1}, []byte{1, 2}) // out of range
	if a.Textures() != 1 {
		t.Errorf("Textures() = %d, want 1", a.Textures())
	}
	a.DestroyTexture(id)
	if a.Textures() != 0 {
		t.Errorf("Textures() = %d after destroy, want 0", a.Textures())
	}
}

func TestHALAdapter_DrawValidates(t *testing.T) {
	a := newTestAdapter(t)
	buf, err := a.CreateBuffer("b", 16, gpucore.BufferUsageVertex)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}

	tests := []struct {
		name string
		call gpucore.DrawCall
	}{
		{"unknown buffer", gpucore.DrawCall{Buffers: []gpucore.BufferID{buf, 999}}},
		{"unknown uniform", gpucore.DrawCall{Buffers: []gpucore.BufferID{buf}, Uniform: 999}},
		{"unknown texture", gpucore.DrawCall{Buffers: []gpucore.BufferID{buf}, Texture: 999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Draw(tt.call)
			if !errors.Is(err, ErrUnknownResource) {
				t.Errorf("Draw() error = %v, want ErrUnknownResource", err)
			}
		})
	}
	if a.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", a.Pending())
	}

	call := gpucore.DrawCall{Label: "ok", Vertices: gpucore.Range{End: 6}, Instances: gpucore.Range{End: 1}, Buffers: []gpucore.BufferID{buf}}
	if err := a.Draw(call); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if a.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", a.Pending())
	}
}

func TestHALAdapter_RenderRendererFrame(t *testing.T) {
	a := newTestAdapter(t)
	p := newTestPipeline(t, a)
	target := createTarget(t, a)

	r, err := retained.New(a, retained.Config{})
	if err != nil {
		t.Fatalf("retained.New: %v", err)
	}
	defer r.Close()
	boxes, err := retained.NewGroup[int](r, "boxes")
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	labels, err := retained.NewTextGroup[int](r, "labels")
	if err != nil {
		t.Fatalf("NewTextGroup: %v", err)
	}
	boxes.Difference().ReportArea(1, attr.Area{W: 20, H: 20})
	boxes.Difference().ReportColor(1, attr.RGBA(255, 0, 0, 255))
	labels.SetText(7, group.Text{Value: "ok", Scale: 16, Color: attr.White})
	labels.SetClip(group.Rect{X: 0, Y: 0, Width: 100, Height: 50})

	st, err := r.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if a.Pending() != st.Draws {
		t.Fatalf("Pending() = %d, want %d", a.Pending(), st.Draws)
	}

	n, err := a.Render(target, p, gputypes.Color{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != st.Draws {
		t.Errorf("Render encoded %d draws, want %d", n, st.Draws)
	}
	if a.Pending() != 0 {
		t.Errorf("Pending() = %d after Render, want 0", a.Pending())
	}
	if a.Queue().PollCompleted() == 0 {
		t.Error("Render returned before its submission completed")
	}
	if len(a.bindGroups) != n {
		t.Errorf("%d bind groups alive, want %d", len(a.bindGroups), n)
	}

	// An unchanged frame draws again without new uploads.
	st2, err := r.Frame()
	if err != nil {
		t.Fatalf("second Frame: %v", err)
	}
	if st2.BufferWrites != 0 || st2.TextureWrites != 0 {
		t.Errorf("second frame uploaded: %v", st2)
	}
	if _, err := a.Render(target, p, gputypes.Color{}); err != nil {
		t.Fatalf("second Render: %v", err)
	}
}

func TestHALAdapter_EncodeSkipsDestroyedResources(t *testing.T) {
	a := newTestAdapter(t)
	p := newTestPipeline(t, a)
	target := createTarget(t, a)

	buf, err := a.CreateBuffer("b", 16, gpucore.BufferUsageVertex)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	call := gpucore.DrawCall{Label: "gone", Vertices: gpucore.Range{End: 6}, Instances: gpucore.Range{End: 1}, Buffers: []gpucore.BufferID{buf}}
	if err := a.Draw(call); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	a.DestroyBuffer(buf)

	n, err := a.Render(target, p, gputypes.Color{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != 0 {
		t.Errorf("encoded %d draws, want 0", n)
	}
}

// scissorPass records the scissor rects and draws of a render pass.
type scissorPass struct {
	hal.RenderPassEncoder
	scissors []gpucore.Scissor
	draws    int
}

func (r *scissorPass) SetPipeline(hal.RenderPipeline)              {}
func (r *scissorPass) SetBindGroup(uint32, hal.BindGroup, []uint32) {}
func (r *scissorPass) SetVertexBuffer(uint32, hal.Buffer, uint64)   {}
func (r *scissorPass) Draw(_, _, _, _ uint32)                       { r.draws++ }
func (r *scissorPass) SetScissorRect(x, y, width, height uint32) {
	r.scissors = append(r.scissors, gpucore.Scissor{X: x, Y: y, Width: width, Height: height})
}

func TestClampScissor(t *testing.T) {
	tests := []struct {
		name    string
		s       gpucore.Scissor
		want    gpucore.Scissor
		visible bool
	}{
		{"inside", gpucore.Scissor{X: 10, Y: 10, Width: 20, Height: 20}, gpucore.Scissor{X: 10, Y: 10, Width: 20, Height: 20}, true},
		{"past right and bottom", gpucore.Scissor{X: 200, Y: 100, Width: 500, Height: 500}, gpucore.Scissor{X: 200, Y: 100, Width: 56, Height: 28}, true},
		{"whole target", gpucore.Scissor{Width: 4096, Height: 4096}, gpucore.Scissor{Width: 256, Height: 128}, true},
		{"off target", gpucore.Scissor{X: 300, Y: 0, Width: 10, Height: 10}, gpucore.Scissor{}, false},
		{"overflowing extent", gpucore.Scissor{X: 250, Y: 0, Width: ^uint32(0), Height: 8}, gpucore.Scissor{X: 250, Y: 0, Width: 6, Height: 8}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, visible := clampScissor(tt.s, 256, 128)
			if got != tt.want || visible != tt.visible {
				t.Errorf("clampScissor(%+v) = %+v, %v, want %+v, %v", tt.s, got, visible, tt.want, tt.visible)
			}
		})
	}
	if got, ok := clampScissor(gpucore.Scissor{Width: 9000, Height: 9000}, 0, 0); !ok || got.Width != 9000 {
		t.Error("scissor changed without a viewport")
	}
}

func TestHALAdapter_EncodeClampsScissor(t *testing.T) {
	a := newTestAdapter(t)
	p := newTestPipeline(t, a)

	buf, err := a.CreateBuffer("b", 16, gpucore.BufferUsageVertex)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	call := gpucore.DrawCall{Vertices: gpucore.Range{End: 6}, Instances: gpucore.Range{End: 1}, Buffers: []gpucore.BufferID{buf}}
	wide, off, plain := call, call, call
	wide.Label, wide.Scissor = "wide", gpucore.Scissor{X: 100, Y: 0, Width: 1000, Height: 1000}
	off.Label, off.Scissor = "off", gpucore.Scissor{X: 500, Y: 500, Width: 10, Height: 10}
	plain.Label = "plain"
	for _, c := range []gpucore.DrawCall{wide, off, plain} {
		if err := a.Draw(c); err != nil {
			t.Fatalf("Draw %s: %v", c.Label, err)
		}
	}

	rp := &scissorPass{}
	n, err := a.Encode(rp, p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n != 2 || rp.draws != 2 {
		t.Errorf("encoded %d draws (%d in pass), want 2", n, rp.draws)
	}
	want := []gpucore.Scissor{
		{X: 100, Y: 0, Width: 156, Height: 128},
		{X: 0, Y: 0, Width: 256, Height: 128},
	}
	if len(rp.scissors) != len(want) {
		t.Fatalf("scissors = %+v, want %+v", rp.scissors, want)
	}
	for i := range want {
		if rp.scissors[i] != want[i] {
			t.Errorf("scissor %d = %+v, want %+v", i, rp.scissors[i], want[i])
		}
	}
}

func TestHALAdapter_Close(t *testing.T) {
	a := newTestAdapter(t)
	if _, err := a.CreateBuffer("b", 16, gpucore.BufferUsageVertex); err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if _, err := a.CreateTexture("t", 4, 4, gpucore.TextureFormatR8Unorm); err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	a.Close()
	a.Close()
	if a.Buffers() != 0 || a.Textures() != 0 {
		t.Errorf("resources left after Close: %d buffers, %d textures", a.Buffers(), a.Textures())
	}
	if _, err := a.CreateBuffer("b", 16, gpucore.BufferUsageVertex); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateBuffer after Close = %v, want ErrClosed", err)
	}
	if err := a.Draw(gpucore.DrawCall{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Draw after Close = %v, want ErrClosed", err)
	}
}

// halDeviceProvider implements gpucontext.DeviceProvider and exposes HAL
// handles the way gogpu hosts do.
type halDeviceProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p *halDeviceProvider) Device() gpucontext.Device   { return nil }
func (p *halDeviceProvider) Queue() gpucontext.Queue     { return nil }
func (p *halDeviceProvider) Adapter() gpucontext.Adapter { return nil }
func (p *halDeviceProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{}
}
func (p *halDeviceProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}
func (p *halDeviceProvider) HalDevice() any { return p.device }
func (p *halDeviceProvider) HalQueue() any  { return p.queue }

// plainProvider has no HAL handles.
type plainProvider struct{ halDeviceProvider }

func (p *plainProvider) HalDevice() any { return "not a device" }

func TestNewFromProvider(t *testing.T) {
	device, queue := createNoopDevice(t)

	a, err := NewFromProvider(&halDeviceProvider{device: device, queue: queue})
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	defer a.Close()
	if a.Device() != device || a.Queue() != queue {
		t.Error("device or queue not taken from provider")
	}
	if a.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v, want surface format", a.Format())
	}

	if _, err := NewFromProvider(&plainProvider{halDeviceProvider{device: device, queue: queue}}); !errors.Is(err, ErrNotHAL) {
		t.Errorf("NewFromProvider(plain) = %v, want ErrNotHAL", err)
	}
}
