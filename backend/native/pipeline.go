// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"honnef.co/go/safeish"
)

//go:embed shaders/instanced_quad.wgsl
var instancedQuadShaderSource string

// Uniform sizes. Both are a single vec4<f32>.
const (
	placementBytes = 16
	viewportBytes  = 16
)

// InstancePipeline draws render groups as instanced quads. Bindings:
//
//	0: placement uniform (group offset), zero for groups without one
//	1: viewport uniform
//	2: coverage texture, a white texel for groups without one
type InstancePipeline struct {
	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	viewport      hal.Buffer
	zeroPlacement hal.Buffer
	white         hal.Texture
	whiteView     hal.TextureView

	width, height uint32
}

// NewInstancePipeline compiles the instanced quad shader and creates the
// pipeline for color targets of the given format.
func NewInstancePipeline(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*InstancePipeline, error) {
	p := &InstancePipeline{device: device, queue: queue}
	if err := p.createPipeline(format); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.createDefaults(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *InstancePipeline) createPipeline(format gputypes.TextureFormat) error {
	if instancedQuadShaderSource == "" {
		return fmt.Errorf("native: instanced quad shader source is empty")
	}

	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "instanced_quad_shader",
		Source: hal.ShaderSource{WGSL: instancedQuadShaderSource},
	})
	if err != nil {
		return fmt.Errorf("native: compile instanced quad shader: %w", err)
	}
	p.shader = shader

	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "instanced_quad_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("native: create instanced quad layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "instanced_quad_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("native: create instanced quad pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "instanced_quad_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    instanceLayouts(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("native: create instanced quad pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

// createDefaults creates the viewport uniform and the stand-ins bound for
// groups without a placement or a texture.
func (p *InstancePipeline) createDefaults() error {
	var err error
	p.viewport, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "instanced_quad_viewport",
		Size:  viewportBytes,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("native: create viewport uniform: %w", err)
	}

	p.zeroPlacement, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "instanced_quad_zero_placement",
		Size:  placementBytes,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("native: create placement uniform: %w", err)
	}
	if err := p.queue.WriteBuffer(p.zeroPlacement, 0, make([]byte, placementBytes)); err != nil {
		return fmt.Errorf("native: clear placement uniform: %w", err)
	}

	p.white, err = p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "instanced_quad_white",
		Size:          hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("native: create white texture: %w", err)
	}
	p.whiteView, err = p.device.CreateTextureView(p.white, &hal.TextureViewDescriptor{
		Label:         "instanced_quad_white_view",
		Format:        gputypes.TextureFormatR8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("native: create white texture view: %w", err)
	}
	err = p.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: p.white, MipLevel: 0},
		[]byte{0xFF},
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: 1, RowsPerImage: 1},
		&hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("native: upload white texel: %w", err)
	}
	return nil
}

// SetViewport uploads the target size in pixels. It must be called before
// the first Encode and whenever the target is resized. Scissors are
// clamped to this size.
func (p *InstancePipeline) SetViewport(width, height uint32) error {
	if width == p.width && height == p.height {
		return nil
	}
	if err := p.queue.WriteBuffer(p.viewport, 0, viewportUniform(width, height)); err != nil {
		return fmt.Errorf("native: viewport uniform: %w", err)
	}
	p.width, p.height = width, height
	return nil
}

// Viewport returns the size last passed to SetViewport.
func (p *InstancePipeline) Viewport() (width, height uint32) { return p.width, p.height }

func viewportUniform(width, height uint32) []byte {
	v := [4]float32{float32(width), float32(height)}
	return safeish.AsBytes(&v)
}

// Destroy releases all pipeline resources in reverse creation order.
func (p *InstancePipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.whiteView != nil {
		p.device.DestroyTextureView(p.whiteView)
		p.whiteView = nil
	}
	if p.white != nil {
		p.device.DestroyTexture(p.white)
		p.white = nil
	}
	if p.zeroPlacement != nil {
		p.device.DestroyBuffer(p.zeroPlacement)
		p.zeroPlacement = nil
	}
	if p.viewport != nil {
		p.device.DestroyBuffer(p.viewport)
		p.viewport = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// instanceLayouts returns one instance-rate vertex buffer per attribute,
// in binding order.
func instanceLayouts() []gputypes.VertexBufferLayout {
	layout := func(stride uint64, format gputypes.VertexFormat, location uint32) gputypes.VertexBufferLayout {
		return gputypes.VertexBufferLayout{
			ArrayStride: stride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: format, Offset: 0, ShaderLocation: location},
			},
		}
	}
	return []gputypes.VertexBufferLayout{
		layout(8, gputypes.VertexFormatFloat32x2, 0),  // position
		layout(8, gputypes.VertexFormatFloat32x2, 1),  // area
		layout(4, gputypes.VertexFormatFloat32, 2),    // layer
		layout(16, gputypes.VertexFormatFloat32x4, 3), // color
		layout(16, gputypes.VertexFormatFloat32x4, 4), // texcoords
		layout(4, gputypes.VertexFormatUint32, 5),     // null
	}
}
