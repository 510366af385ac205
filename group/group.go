// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package group

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/retained/attr"
	"github.com/gogpu/retained/gpucore"
	"github.com/gogpu/retained/internal/logx"
	"github.com/gogpu/retained/slot"
)

// ErrUnknownKey is reported when a producer removes a key the group does
// not hold.
var ErrUnknownKey = errors.New("group: unknown key")

// MisuseError collects producer mistakes found while preparing a frame.
// The frame is still prepared in full; the offending reports are ignored.
type MisuseError struct {
	Group string
	Errs  []error
}

func (e *MisuseError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("group %s: %d producer errors: %s", e.Group, len(e.Errs), strings.Join(msgs, "; "))
}

// Unwrap returns the individual errors.
func (e *MisuseError) Unwrap() []error { return e.Errs }

// PrepareStats describes one Prepare.
type PrepareStats struct {
	Added, Removed, Reported int

	// Grown is set when capacity grew; Capacity is the capacity afterwards.
	Grown    bool
	Capacity int
}

// DrawStats describes one Draw.
type DrawStats struct {
	Draws     int
	Instances int
}

// Stage is one render group as seen by the frame pipeline, which calls the
// three phases of every stage in a fixed order.
type Stage interface {
	Label() string
	Prepare() (PrepareStats, error)
	Flush() (attr.FlushStats, error)
	Draw() (DrawStats, error)
	Close()
}

// Config holds configuration for a render group.
type Config struct {
	// Label prefixes buffer labels and names the draw call.
	Label string

	// Capacity is the initial number of slots.
	// Default: 64
	Capacity int

	// GrowthFactor is the step by which capacity grows.
	// Default: 10
	GrowthFactor int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{Label: "group", Capacity: 64, GrowthFactor: 10}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Label == "" {
		c.Label = d.Label
	}
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.GrowthFactor <= 0 {
		c.GrowthFactor = d.GrowthFactor
	}
	return c
}

// Group is a render group for one category of instanced quads. It owns a
// slot indexer and one attribute store per kind.
//
// Producers report changes into Difference. Each frame Prepare extracts the
// difference and applies it: removals release slots and set the null bit,
// new keys get slots, capacity grows once if needed, and reported values are
// set. Flush uploads, Draw issues one instanced draw over every slot.
//
// Group is not safe for concurrent use.
type Group[K comparable] struct {
	cfg     Config
	adapter gpucore.Adapter
	index   *slot.Indexer[K]
	diff    *Difference[K]

	positions *attr.Store[attr.Position]
	areas     *attr.Store[attr.Area]
	layers    *attr.Store[attr.Layer]
	colors    *attr.Store[attr.Color]
	texcoords *attr.Store[attr.TexCoords]
	nulls     *attr.Store[attr.NullBit]

	texture gpucore.TextureID
	uniform gpucore.BufferID
	scissor gpucore.Scissor
}

var _ Stage = (*Group[int])(nil)

// New creates a group and its attribute buffers.
func New[K comparable](adapter gpucore.Adapter, cfg Config) (*Group[K], error) {
	cfg = cfg.withDefaults()
	g := &Group[K]{
		cfg:     cfg,
		adapter: adapter,
		index:   slot.NewIndexer[K](cfg.Capacity),
		diff:    NewDifference[K](),
	}
	var err error
	label := func(k attr.Kind) string { return cfg.Label + "." + k.String() }
	if g.positions, err = attr.NewStore(adapter, label(attr.KindPosition), cfg.Capacity, attr.Position{}); err != nil {
		return nil, err
	}
	if g.areas, err = attr.NewStore(adapter, label(attr.KindArea), cfg.Capacity, attr.Area{}); err != nil {
		g.Close()
		return nil, err
	}
	if g.layers, err = attr.NewStore(adapter, label(attr.KindLayer), cfg.Capacity, attr.Layer{}); err != nil {
		g.Close()
		return nil, err
	}
	if g.colors, err = attr.NewStore(adapter, label(attr.KindColor), cfg.Capacity, attr.White); err != nil {
		g.Close()
		return nil, err
	}
	if g.texcoords, err = attr.NewStore(adapter, label(attr.KindTexCoords), cfg.Capacity, attr.TexCoords{}); err != nil {
		g.Close()
		return nil, err
	}
	if g.nulls, err = attr.NewStore(adapter, label(attr.KindNull), cfg.Capacity, attr.Null); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

// Label returns the group label.
func (g *Group[K]) Label() string { return g.cfg.Label }

// Difference returns the producer-side difference for the current frame.
// The returned value is replaced by Prepare; fetch it again every frame.
func (g *Group[K]) Difference() *Difference[K] { return g.diff }

// Extract hands over the current difference and starts a new one.
func (g *Group[K]) Extract() *Difference[K] {
	d := g.diff
	g.diff = NewDifference[K]()
	return d
}

// Indexer returns the slot indexer.
func (g *Group[K]) Indexer() *slot.Indexer[K] { return g.index }

// Positions returns the position store.
func (g *Group[K]) Positions() *attr.Store[attr.Position] { return g.positions }

// Areas returns the area store.
func (g *Group[K]) Areas() *attr.Store[attr.Area] { return g.areas }

// Layers returns the layer store.
func (g *Group[K]) Layers() *attr.Store[attr.Layer] { return g.layers }

// Colors returns the color store.
func (g *Group[K]) Colors() *attr.Store[attr.Color] { return g.colors }

// TexCoords returns the texture coordinate store.
func (g *Group[K]) TexCoords() *attr.Store[attr.TexCoords] { return g.texcoords }

// Nulls returns the null bit store.
func (g *Group[K]) Nulls() *attr.Store[attr.NullBit] { return g.nulls }

// SetTexture sets the texture bound by Draw.
func (g *Group[K]) SetTexture(id gpucore.TextureID) { g.texture = id }

// SetUniform sets the uniform buffer bound by Draw.
func (g *Group[K]) SetUniform(id gpucore.BufferID) { g.uniform = id }

// SetScissor sets the scissor rectangle of the draw.
func (g *Group[K]) SetScissor(s gpucore.Scissor) { g.scissor = s }

// resetSlot returns every attribute of a freshly assigned slot to its null
// value so a reused hole carries nothing from its previous owner.
func (g *Group[K]) resetSlot(s int) {
	g.positions.Set(s, attr.Position{})
	g.areas.Set(s, attr.Area{})
	g.layers.Set(s, attr.Layer{})
	g.colors.Set(s, attr.White)
	g.texcoords.Set(s, attr.TexCoords{})
}

func (g *Group[K]) resize(capacity int) error {
	for _, resize := range []func(int) error{
		g.positions.Resize, g.areas.Resize, g.layers.Resize,
		g.colors.Resize, g.texcoords.Resize, g.nulls.Resize,
	} {
		if err := resize(capacity); err != nil {
			return fmt.Errorf("group %s: %w", g.cfg.Label, err)
		}
	}
	return nil
}

// Prepare applies the extracted difference to the indexer and stores.
//
// Producer mistakes do not stop the frame: they are logged and returned
// together as a *MisuseError after everything else has been applied. Any
// other error comes from the GPU adapter and leaves the group unusable.
func (g *Group[K]) Prepare() (PrepareStats, error) {
	d := g.Extract()
	var st PrepareStats
	var misuse []error

	released := make(map[K]struct{}, len(d.removed))
	for _, k := range d.removed {
		s, ok := g.index.Release(k)
		if !ok {
			// Created and removed within the frame.
			if _, twice := released[k]; !twice && d.Dropped(k) {
				continue
			}
			err := fmt.Errorf("%w: remove %v", ErrUnknownKey, k)
			logx.Logger().Warn("group: remove of unknown key", "group", g.cfg.Label, "key", k)
			misuse = append(misuse, err)
			continue
		}
		released[k] = struct{}{}
		g.nulls.Set(s, attr.Null)
		st.Removed++
	}

	fresh := make([]bool, len(d.order))
	for i, k := range d.order {
		if _, ok := g.index.Slot(k); !ok {
			g.index.Allocate(k)
			fresh[i] = true
			st.Added++
		}
	}

	if c, grew := g.index.Grow(g.cfg.GrowthFactor); grew {
		if err := g.resize(c); err != nil {
			return st, err
		}
		st.Grown = true
		logx.Logger().Info("group: capacity grown", "group", g.cfg.Label, "capacity", c)
	}
	st.Capacity = g.index.Capacity()

	for i, k := range d.order {
		s := g.index.MustSlot(k)
		if fresh[i] {
			g.resetSlot(s)
		}
		if v, ok := d.positions[k]; ok {
			g.positions.Set(s, v)
		}
		if v, ok := d.areas[k]; ok {
			g.areas.Set(s, v)
		}
		if v, ok := d.layers[k]; ok {
			g.layers.Set(s, v)
		}
		if v, ok := d.colors[k]; ok {
			g.colors.Set(s, v)
		}
		if v, ok := d.texcoords[k]; ok {
			g.texcoords.Set(s, v)
		}
		g.nulls.Set(s, attr.NotNull)
		st.Reported++
	}

	if len(misuse) > 0 {
		return st, &MisuseError{Group: g.cfg.Label, Errs: misuse}
	}
	return st, nil
}

// Flush uploads every store.
func (g *Group[K]) Flush() (attr.FlushStats, error) {
	var total attr.FlushStats
	for _, flush := range []func() (attr.FlushStats, error){
		g.positions.Flush, g.areas.Flush, g.layers.Flush,
		g.colors.Flush, g.texcoords.Flush, g.nulls.Flush,
	} {
		st, err := flush()
		if err != nil {
			return total, fmt.Errorf("group %s: %w", g.cfg.Label, err)
		}
		total.Add(st)
	}
	return total, nil
}

// Buffers returns the attribute buffers in binding order.
func (g *Group[K]) Buffers() []gpucore.BufferID {
	return []gpucore.BufferID{
		g.positions.Buffer(),
		g.areas.Buffer(),
		g.layers.Buffer(),
		g.colors.Buffer(),
		g.texcoords.Buffer(),
		g.nulls.Buffer(),
	}
}

// Draw issues one instanced draw over slots [0, count). Null slots are part
// of the range and collapse to zero area in the shader. Nothing is drawn
// when the group holds no live key.
func (g *Group[K]) Draw() (DrawStats, error) {
	if g.index.Live() == 0 {
		return DrawStats{}, nil
	}
	count := uint32(g.index.Count()) //nolint:gosec // slot counts fit uint32
	err := g.adapter.Draw(gpucore.DrawCall{
		Label:     g.cfg.Label,
		Vertices:  gpucore.Range{Start: 0, End: 6},
		Instances: gpucore.Range{Start: 0, End: count},
		Buffers:   g.Buffers(),
		Texture:   g.texture,
		Uniform:   g.uniform,
		Scissor:   g.scissor,
	})
	if err != nil {
		return DrawStats{}, fmt.Errorf("group %s: draw: %w", g.cfg.Label, err)
	}
	return DrawStats{Draws: 1, Instances: int(count)}, nil
}

// Close destroys the attribute buffers.
func (g *Group[K]) Close() {
	if g.positions != nil {
		g.positions.Close()
	}
	if g.areas != nil {
		g.areas.Close()
	}
	if g.layers != nil {
		g.layers.Close()
	}
	if g.colors != nil {
		g.colors.Close()
	}
	if g.texcoords != nil {
		g.texcoords.Close()
	}
	if g.nulls != nil {
		g.nulls.Close()
	}
}
