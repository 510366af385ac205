// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package atlas

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/gammazero/deque"

	"github.com/gogpu/retained/attr"
	"github.com/gogpu/retained/gpucore"
	"github.com/gogpu/retained/internal/logx"
)

// FontID identifies a registered font.
type FontID uint16

// GlyphID identifies one rasterization: a character in a font at a pixel
// scale.
type GlyphID struct {
	Rune  rune
	Font  FontID
	Scale float32
}

func (id GlyphID) String() string {
	return fmt.Sprintf("%q/%d@%g", id.Rune, id.Font, id.Scale)
}

// Metrics describes a rasterized glyph in pixels.
type Metrics struct {
	// Width and Height are the bitmap size.
	Width, Height int

	// BearingX and BearingY offset the bitmap from the pen position; BearingY
	// is the distance from the baseline up to the bitmap top.
	BearingX, BearingY float32

	// Advance moves the pen to the next glyph.
	Advance float32
}

// Rasterizer produces 8-bit coverage bitmaps, Width*Height bytes row-major.
type Rasterizer interface {
	Rasterize(r rune, font FontID, scale float32) (Metrics, []byte, error)
}

// Glyph is a cached glyph as seen by render groups.
type Glyph struct {
	ID       GlyphID
	Location Location
	Coords   attr.TexCoords
	Metrics  Metrics
}

// entry is the cache record behind a Glyph.
type entry struct {
	glyph  Glyph
	refs   int
	bitmap []byte
}

// textureWrite is a queued upload of one glyph into its cell.
type textureWrite struct {
	id  GlyphID
	loc Location
}

// FlushStats describes the texture uploads issued by one Flush.
type FlushStats struct {
	Writes int
	Bytes  int
}

// Cache is a reference-counted glyph atlas backed by one R8 texture.
//
// Glyphs are rasterized once while referenced, placed in a grid cell and
// uploaded in a batch by Flush. Releasing the last reference does not free
// the cell at once: Reclaim runs once per frame after every group has
// acquired and released, so a glyph dropped and picked up again within a
// frame is not rasterized twice.
//
// When the grid runs out of cells the atlas grows up to MaxDimension,
// recreating the texture and re-uploading every cached glyph at its existing
// cell. Texture coordinates change on growth; Generation tells callers to
// refresh them.
//
// Cache is not safe for concurrent use.
type Cache struct {
	adapter gpucore.Adapter
	raster  Rasterizer
	cfg     Config

	grid    *Grid
	texture gpucore.TextureID

	entries    map[GlyphID]*entry
	reclaim    map[GlyphID]struct{}
	writes     deque.Deque[textureWrite]
	generation uint64
}

// New creates an atlas cache and its texture.
func New(adapter gpucore.Adapter, raster Rasterizer, cfg Config) (*Cache, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Cache{
		adapter: adapter,
		raster:  raster,
		cfg:     cfg,
		grid:    NewGrid(cfg.Dimension),
		entries: make(map[GlyphID]*entry),
		reclaim: make(map[GlyphID]struct{}),
	}
	tex, err := c.createTexture(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	c.texture = tex
	return c, nil
}

func (c *Cache) createTexture(dim int) (gpucore.TextureID, error) {
	w, h := dim*c.cfg.CellWidth, dim*c.cfg.CellHeight
	tex, err := c.adapter.CreateTexture(c.cfg.Label, w, h, gpucore.TextureFormatR8Unorm)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("atlas: create %dx%d texture: %w", w, h, err)
	}
	return tex, nil
}

// coords returns the normalized rectangle of a bitmap placed at the top-left
// of cell l.
func (c *Cache) coords(l Location, m Metrics) attr.TexCoords {
	dim := c.grid.Dimension()
	tw := float32(dim * c.cfg.CellWidth)
	th := float32(dim * c.cfg.CellHeight)
	x := float32(l.X * c.cfg.CellWidth)
	y := float32(l.Y * c.cfg.CellHeight)
	return attr.TexCoords{
		U0: x / tw,
		V0: y / th,
		U1: (x + float32(m.Width)) / tw,
		V1: (y + float32(m.Height)) / th,
	}
}

// Acquire returns the glyph for id and adds a reference to it.
//
// A cached glyph, including one released to zero earlier in the frame, is
// returned without rasterizing. Otherwise the glyph is rasterized, given a
// cell and queued for upload. If no cell is free the atlas grows; a
// *FullError is returned when it cannot.
func (c *Cache) Acquire(id GlyphID) (Glyph, error) {
	if e, ok := c.entries[id]; ok {
		if e.refs == 0 {
			delete(c.reclaim, id)
		}
		e.refs++
		return e.glyph, nil
	}

	m, bitmap, err := c.raster.Rasterize(id.Rune, id.Font, id.Scale)
	if err != nil {
		return Glyph{}, fmt.Errorf("atlas: rasterize %v: %w", id, err)
	}
	if m.Width < 0 || m.Height < 0 || len(bitmap) != m.Width*m.Height {
		return Glyph{}, fmt.Errorf("%w: %v is %dx%d with %d bytes", ErrBadBitmap, id, m.Width, m.Height, len(bitmap))
	}
	if m.Width > c.cfg.CellWidth || m.Height > c.cfg.CellHeight {
		return Glyph{}, fmt.Errorf("%w: %v is %dx%d, cell is %dx%d",
			ErrGlyphTooLarge, id, m.Width, m.Height, c.cfg.CellWidth, c.cfg.CellHeight)
	}

	loc, ok := c.grid.Allocate()
	if !ok && len(c.reclaim) > 0 {
		// Out of cells: reclaim early rather than grow.
		c.Reclaim()
		loc, ok = c.grid.Allocate()
	}
	if !ok {
		if err := c.grow(1); err != nil {
			return Glyph{}, err
		}
		loc, _ = c.grid.Allocate()
	}

	e := &entry{
		glyph: Glyph{
			ID:       id,
			Location: loc,
			Coords:   c.coords(loc, m),
			Metrics:  m,
		},
		refs:   1,
		bitmap: bitmap,
	}
	c.entries[id] = e
	c.writes.PushBack(textureWrite{id: id, loc: loc})
	return e.glyph, nil
}

// Release drops one reference to id. At zero the glyph stays cached until
// the next Reclaim. Releasing a glyph that holds no reference returns
// ErrNotReferenced and changes nothing.
func (c *Cache) Release(id GlyphID) error {
	e, ok := c.entries[id]
	if !ok || e.refs == 0 {
		return fmt.Errorf("%w: %v", ErrNotReferenced, id)
	}
	e.refs--
	if e.refs == 0 {
		c.reclaim[id] = struct{}{}
	}
	return nil
}

// Reclaim frees the cells of every glyph whose count is still zero and
// drops their entries. It returns the number of glyphs reclaimed.
func (c *Cache) Reclaim() int {
	n := 0
	for id := range c.reclaim {
		e := c.entries[id]
		if e != nil && e.refs == 0 {
			c.grid.Free(e.glyph.Location)
			delete(c.entries, id)
			n++
		}
	}
	clear(c.reclaim)
	return n
}

// grow enlarges the grid so at least need more cells are free, recreates
// the texture and queues every cached glyph for upload again.
func (c *Cache) grow(need int) error {
	dim := c.grid.Dimension()
	next := growDimension(dim, need, c.cfg.MaxDimension)
	if next == dim {
		return &FullError{Dimension: dim}
	}
	tex, err := c.createTexture(next)
	if err != nil {
		return err
	}
	c.adapter.DestroyTexture(c.texture)
	c.texture = tex
	c.grid.Grow(next)

	c.writes.Clear()
	for _, e := range c.sortedEntries() {
		e.glyph.Coords = c.coords(e.glyph.Location, e.glyph.Metrics)
		c.writes.PushBack(textureWrite{id: e.glyph.ID, loc: e.glyph.Location})
	}
	c.generation++
	logx.Logger().Info("atlas: grown", "from", dim, "to", next, "glyphs", len(c.entries), "generation", c.generation)
	return nil
}

// sortedEntries returns entries in row-major cell order.
func (c *Cache) sortedEntries() []*entry {
	out := slices.Collect(maps.Values(c.entries))
	slices.SortFunc(out, func(a, b *entry) int {
		if d := cmp.Compare(a.glyph.Location.Y, b.glyph.Location.Y); d != 0 {
			return d
		}
		return cmp.Compare(a.glyph.Location.X, b.glyph.Location.X)
	})
	return out
}

// Flush uploads queued glyph bitmaps in the order they were queued.
// Writes for glyphs reclaimed since they were queued are dropped.
func (c *Cache) Flush() (FlushStats, error) {
	var st FlushStats
	for c.writes.Len() > 0 {
		w := c.writes.PopFront()
		e, ok := c.entries[w.id]
		if !ok || e.glyph.Location != w.loc {
			continue
		}
		m := e.glyph.Metrics
		if m.Width == 0 || m.Height == 0 {
			continue
		}
		region := gpucore.Region{
			X:      w.loc.X * c.cfg.CellWidth,
			Y:      w.loc.Y * c.cfg.CellHeight,
			Width:  m.Width,
			Height: m.Height,
		}
		c.adapter.WriteTexture(c.texture, region, e.bitmap)
		st.Writes++
		st.Bytes += len(e.bitmap)
	}
	return st, nil
}

// Lookup returns the cached glyph for id without changing its count.
func (c *Cache) Lookup(id GlyphID) (Glyph, bool) {
	e, ok := c.entries[id]
	if !ok {
		return Glyph{}, false
	}
	return e.glyph, true
}

// Refs returns the reference count of id, or 0 when it is not cached.
func (c *Cache) Refs(id GlyphID) int {
	if e, ok := c.entries[id]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of cached glyphs, including those awaiting
// reclamation.
func (c *Cache) Len() int { return len(c.entries) }

// PendingReclaim returns the number of glyphs released to zero since the
// last Reclaim.
func (c *Cache) PendingReclaim() int { return len(c.reclaim) }

// PendingWrites returns the number of queued texture uploads.
func (c *Cache) PendingWrites() int { return c.writes.Len() }

// Free returns the number of free cells.
func (c *Cache) Free() int { return c.grid.Remaining() }

// Dimension returns the current number of cells per side.
func (c *Cache) Dimension() int { return c.grid.Dimension() }

// Texture returns the current atlas texture. It changes when the atlas
// grows.
func (c *Cache) Texture() gpucore.TextureID { return c.texture }

// Generation increments every time texture coordinates change.
func (c *Cache) Generation() uint64 { return c.generation }

// Config returns the effective configuration.
func (c *Cache) Config() Config { return c.cfg }

// Close destroys the atlas texture.
func (c *Cache) Close() {
	if c.texture != gpucore.InvalidID {
		c.adapter.DestroyTexture(c.texture)
		c.texture = gpucore.InvalidID
	}
}
