// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package retained

import (
	"errors"
	"fmt"

	"github.com/gogpu/retained/atlas"
	"github.com/gogpu/retained/face"
	"github.com/gogpu/retained/gpucore"
	"github.com/gogpu/retained/group"
	"github.com/gogpu/retained/internal/logx"
)

// Renderer owns the shared glyph atlas and every render group, and runs
// their phases in a fixed order once per frame.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	adapter gpucore.Adapter
	cfg     Config

	fonts    Fonts
	ownFonts *face.Rasterizer
	atlas    *atlas.Cache
	stages   []group.Stage
	frame    uint64
	closed   bool
}

// New creates a renderer on adapter. Without WithFonts the built-in
// backend is used, with Go Regular as face.DefaultFont.
func New(adapter gpucore.Adapter, cfg Config, opts ...Option) (*Renderer, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{adapter: adapter, cfg: cfg, fonts: o.fonts}
	if r.fonts == nil {
		reg, err := face.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("retained: fonts: %w", err)
		}
		for _, fd := range o.fontData {
			if _, err := reg.Register(fd.name, fd.data); err != nil {
				return nil, fmt.Errorf("retained: font %s: %w", fd.name, err)
			}
		}
		r.ownFonts = face.NewRasterizer(reg, o.faceLimit)
		r.fonts = r.ownFonts
	} else if len(o.fontData) > 0 {
		logx.Logger().Warn("retained: font data ignored with custom fonts", "fonts", len(o.fontData))
	}

	cache, err := atlas.New(adapter, r.fonts, cfg.Atlas)
	if err != nil {
		r.closeFonts()
		return nil, fmt.Errorf("retained: atlas: %w", err)
	}
	r.atlas = cache
	logx.Logger().Debug("retained: renderer created",
		"capacity", cfg.InitialCapacity, "growth", cfg.GrowthFactor, "atlas", cache.Dimension())
	return r, nil
}

func (r *Renderer) groupConfig(label string) group.Config {
	if label == "" {
		label = fmt.Sprintf("group%d", len(r.stages))
	}
	return group.Config{Label: label, Capacity: r.cfg.InitialCapacity, GrowthFactor: r.cfg.GrowthFactor}
}

// NewGroup creates a render group keyed by K. Groups are prepared,
// flushed and drawn in the order they were created.
func NewGroup[K comparable](r *Renderer, label string) (*group.Group[K], error) {
	if r.closed {
		return nil, ErrClosed
	}
	g, err := group.New[K](r.adapter, r.groupConfig(label))
	if err != nil {
		return nil, err
	}
	r.stages = append(r.stages, g)
	return g, nil
}

// NewTextGroup creates a text group whose texts are keyed by E.
func NewTextGroup[E comparable](r *Renderer, label string) (*group.TextGroup[E], error) {
	if r.closed {
		return nil, ErrClosed
	}
	g, err := group.NewText[E](r.adapter, r.atlas, r.fonts, r.groupConfig(label))
	if err != nil {
		return nil, err
	}
	r.stages = append(r.stages, g)
	return g, nil
}

// Atlas returns the shared glyph atlas.
func (r *Renderer) Atlas() *atlas.Cache { return r.atlas }

// Fonts returns the font backend.
func (r *Renderer) Fonts() Fonts { return r.fonts }

// Registry returns the registry of the built-in font backend, or nil when
// fonts were supplied with WithFonts.
func (r *Renderer) Registry() *face.Registry {
	if r.ownFonts == nil {
		return nil
	}
	return r.ownFonts.Registry()
}

// Config returns the effective configuration.
func (r *Renderer) Config() Config { return r.cfg }

// Groups returns the number of groups.
func (r *Renderer) Groups() int { return len(r.stages) }

// Frame runs one frame:
//
//  1. prepare every group
//  2. reclaim glyphs no group references any more
//  3. flush every group
//  4. flush atlas texture writes
//  5. draw every group
//
// Producer misuse in any group does not stop the frame; the collected
// *group.MisuseError values are joined and returned with complete stats.
// Any other error aborts the frame.
func (r *Renderer) Frame() (FrameStats, error) {
	if r.closed {
		return FrameStats{}, ErrClosed
	}
	r.frame++
	st := FrameStats{Frame: r.frame}
	gen := r.atlas.Generation()

	var misuse []error
	for _, s := range r.stages {
		ps, err := s.Prepare()
		if ps.Grown {
			st.Grown++
		}
		if err != nil {
			var m *group.MisuseError
			if !errors.As(err, &m) {
				return st, fmt.Errorf("retained: frame %d: prepare %s: %w", r.frame, s.Label(), err)
			}
			misuse = append(misuse, err)
		}
	}

	st.Reclaimed = r.atlas.Reclaim()

	for _, s := range r.stages {
		fs, err := s.Flush()
		if err != nil {
			return st, fmt.Errorf("retained: frame %d: flush %s: %w", r.frame, s.Label(), err)
		}
		st.BufferWrites += fs.Writes
		st.BytesUploaded += fs.Bytes
		if fs.Full {
			st.FullUploads++
		}
	}

	ts, err := r.atlas.Flush()
	if err != nil {
		return st, fmt.Errorf("retained: frame %d: atlas flush: %w", r.frame, err)
	}
	st.TextureWrites = ts.Writes
	st.BytesUploaded += ts.Bytes
	st.AtlasGrown = r.atlas.Generation() != gen

	for _, s := range r.stages {
		ds, err := s.Draw()
		if err != nil {
			return st, fmt.Errorf("retained: frame %d: draw %s: %w", r.frame, s.Label(), err)
		}
		st.Draws += ds.Draws
		st.Instances += ds.Instances
	}

	logx.Logger().Debug("retained: frame", "stats", st.String())
	return st, errors.Join(misuse...)
}

func (r *Renderer) closeFonts() {
	if r.ownFonts != nil {
		r.ownFonts.Close()
		r.ownFonts = nil
	}
}

// Close destroys every group, the atlas and the built-in font backend.
// Close is idempotent.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	for _, s := range r.stages {
		s.Close()
	}
	r.stages = nil
	r.atlas.Close()
	r.closeFonts()
}
