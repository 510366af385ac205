// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/retained/backend/native"
	"github.com/gogpu/retained/backend/recording"
	"github.com/gogpu/retained/gpucore"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

const (
	targetWidth  = 1024
	targetHeight = 768
)

// host owns the GPU side of a run and presents each frame.
type host interface {
	Adapter() gpucore.Adapter
	Present() error
	Close()
}

func newHost(backend string) (host, error) {
	switch backend {
	case "recording":
		return &recordingHost{rec: recording.New()}, nil
	case "noop":
		return newNoopHost()
	default:
		return nil, fmt.Errorf("unknown backend %q (want recording or noop)", backend)
	}
}

// recordingHost keeps CPU mirrors of every resource and drops the command
// log after each frame.
type recordingHost struct {
	rec *recording.Adapter
}

func (h *recordingHost) Adapter() gpucore.Adapter { return h.rec }
func (h *recordingHost) Present() error           { h.rec.Reset(); return nil }
func (h *recordingHost) Close()                   {}

// noopHost runs the HAL adapter on the wgpu noop device and renders every
// frame into an offscreen target.
type noopHost struct {
	instance hal.Instance
	device   hal.Device
	adapter  *native.HALAdapter
	pipeline *native.InstancePipeline
	target   hal.Texture
	view     hal.TextureView
}

func newNoopHost() (*noopHost, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("noop: no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("noop device: %w", err)
	}

	h := &noopHost{instance: instance, device: openDev.Device}
	h.adapter = native.New(openDev.Device, openDev.Queue, gputypes.TextureFormatBGRA8Unorm)
	h.pipeline, err = native.NewInstancePipeline(openDev.Device, openDev.Queue, h.adapter.Format())
	if err != nil {
		h.Close()
		return nil, err
	}
	if err := h.pipeline.SetViewport(targetWidth, targetHeight); err != nil {
		h.Close()
		return nil, err
	}

	h.target, err = openDev.Device.CreateTexture(&hal.TextureDescriptor{
		Label:         "retainsim_target",
		Size:          hal.Extent3D{Width: targetWidth, Height: targetHeight, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        h.adapter.Format(),
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("create target: %w", err)
	}
	h.view, err = openDev.Device.CreateTextureView(h.target, &hal.TextureViewDescriptor{Label: "retainsim_target_view"})
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("create target view: %w", err)
	}
	return h, nil
}

func (h *noopHost) Adapter() gpucore.Adapter { return h.adapter }

func (h *noopHost) Present() error {
	_, err := h.adapter.Render(h.view, h.pipeline, gputypes.Color{R: 0.1, G: 0.1, B: 0.12, A: 1})
	return err
}

func (h *noopHost) Close() {
	if h.view != nil {
		h.device.DestroyTextureView(h.view)
	}
	if h.target != nil {
		h.device.DestroyTexture(h.target)
	}
	if h.pipeline != nil {
		h.pipeline.Destroy()
	}
	h.adapter.Close()
	h.device.Destroy()
	h.instance.Destroy()
}
