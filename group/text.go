// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package group

import (
	"errors"
	"fmt"
	"slices"
	"unicode"

	"github.com/chewxy/math32"
	"golang.org/x/text/unicode/norm"
	"honnef.co/go/safeish"

	"github.com/gogpu/retained/atlas"
	"github.com/gogpu/retained/attr"
	"github.com/gogpu/retained/gpucore"
	"github.com/gogpu/retained/internal/logx"
)

// GlyphKey identifies glyph Index of the text owned by Entity.
type GlyphKey[E comparable] struct {
	Entity E
	Index  int
}

// Text is one run of single-line text.
type Text struct {
	Value    string
	Font     atlas.FontID
	Scale    float32
	Position attr.Position
	Layer    float32
	Color    attr.Color
}

// Layout supplies the font measurements text placement needs. Measure must
// agree with the metrics the atlas rasterizer reports for the same glyph.
type Layout interface {
	Advance(font atlas.FontID, scale float32, r rune) (float32, error)
	Ascent(font atlas.FontID, scale float32) (float32, error)
	Measure(font atlas.FontID, scale float32, r rune) (atlas.Metrics, error)
}

// Rect is an axis-aligned rectangle in pixels. The zero Rect means no clip.
type Rect struct {
	X, Y, Width, Height float32
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Overlaps reports whether r and o share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Placement offsets every glyph of a text group. It is uploaded as the
// group's uniform buffer.
type Placement struct {
	X, Y, Z float32
	_       float32
}

// placed is one laid out glyph of a committed text. A blank glyph holds no
// atlas reference and no instance: whitespace, or a glyph outside the clip.
type placed struct {
	id     atlas.GlyphID
	blank  bool
	culled bool
}

type textState struct {
	text   Text
	glyphs []placed
}

// TextGroup renders text as glyph instances that share one atlas.
//
// SetText and RemoveText are buffered until Prepare, which lays out the
// changed texts, acquires their glyphs from the atlas and reports the glyph
// instances into the underlying Group. New glyphs are acquired before the
// old ones are released, so glyphs a text keeps are never dropped.
//
// TextGroup is not safe for concurrent use.
type TextGroup[E comparable] struct {
	g      *Group[GlyphKey[E]]
	atlas  *atlas.Cache
	layout Layout

	texts    map[E]*textState
	entities []E
	pending  map[E]*Text
	queued   map[E]struct{}
	order    []E

	uniform        gpucore.BufferID
	placement      Placement
	placementDirty bool
	clip           Rect
	hidden         bool
	recull         bool
	generation     uint64
}

var _ Stage = (*TextGroup[int])(nil)

// NewText creates a text group drawing glyphs from cache.
func NewText[E comparable](adapter gpucore.Adapter, cache *atlas.Cache, layout Layout, cfg Config) (*TextGroup[E], error) {
	g, err := New[GlyphKey[E]](adapter, cfg)
	if err != nil {
		return nil, err
	}
	var p Placement
	uniform, err := adapter.CreateBuffer(g.cfg.Label+".placement", len(safeish.AsBytes(&p)), gpucore.BufferUsageUniform|gpucore.BufferUsageCopyDst)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("group %s: placement: %w", g.cfg.Label, err)
	}
	g.SetUniform(uniform)
	g.SetTexture(cache.Texture())
	return &TextGroup[E]{
		g:              g,
		atlas:          cache,
		layout:         layout,
		texts:          make(map[E]*textState),
		pending:        make(map[E]*Text),
		queued:         make(map[E]struct{}),
		uniform:        uniform,
		placementDirty: true,
		generation:     cache.Generation(),
	}, nil
}

// Label returns the group label.
func (t *TextGroup[E]) Label() string { return t.g.Label() }

// Group returns the glyph instance group.
func (t *TextGroup[E]) Group() *Group[GlyphKey[E]] { return t.g }

// Uniform returns the placement uniform buffer.
func (t *TextGroup[E]) Uniform() gpucore.BufferID { return t.uniform }

func (t *TextGroup[E]) queue(e E, txt *Text) {
	if _, ok := t.queued[e]; !ok {
		t.queued[e] = struct{}{}
		t.order = append(t.order, e)
	}
	t.pending[e] = txt
}

// SetText sets the text of e, replacing any previous one.
func (t *TextGroup[E]) SetText(e E, txt Text) { t.queue(e, &txt) }

// RemoveText removes the text of e. Removing a text that was only set
// since the last Prepare cancels it.
func (t *TextGroup[E]) RemoveText(e E) {
	if _, committed := t.texts[e]; !committed {
		if txt, ok := t.pending[e]; ok && txt != nil {
			delete(t.pending, e)
			return
		}
	}
	t.queue(e, nil)
}

// Text returns the text of e as of the last Prepare.
func (t *TextGroup[E]) Text(e E) (Text, bool) {
	s, ok := t.texts[e]
	if !ok {
		return Text{}, false
	}
	return s.text, true
}

// Culled returns the number of glyphs of e left out because they lie
// outside the clip, as of the last Prepare.
func (t *TextGroup[E]) Culled(e E) int {
	s, ok := t.texts[e]
	if !ok {
		return 0
	}
	n := 0
	for _, p := range s.glyphs {
		if p.culled {
			n++
		}
	}
	return n
}

// Glyphs returns the number of drawn glyphs of e as of the last Prepare.
func (t *TextGroup[E]) Glyphs(e E) int {
	s, ok := t.texts[e]
	if !ok {
		return 0
	}
	n := 0
	for _, p := range s.glyphs {
		if !p.blank {
			n++
		}
	}
	return n
}

// SetPlacement moves the whole group.
func (t *TextGroup[E]) SetPlacement(x, y, z float32) {
	p := Placement{X: x, Y: y, Z: z}
	if p == t.placement {
		return
	}
	t.placement = p
	t.placementDirty = true
	if t.clip != (Rect{}) {
		t.recull = true
	}
}

// Placement returns the current placement.
func (t *TextGroup[E]) Placement() Placement { return t.placement }

// SetClip limits drawing to the visible section r. The zero Rect disables
// clipping; a clip with no visible pixels hides the group.
//
// Glyphs whose quad lies entirely outside r give up their slot and atlas
// cell at the next Prepare, and get them back once the clip reaches them.
func (t *TextGroup[E]) SetClip(r Rect) {
	if r == t.clip {
		return
	}
	t.clip = r
	t.recull = true
	s, visible := scissorFor(r)
	t.g.SetScissor(s)
	t.hidden = !visible
}

// Clip returns the visible section.
func (t *TextGroup[E]) Clip() Rect { return t.clip }

// scissorFor converts r to the whole pixels covering it.
func scissorFor(r Rect) (gpucore.Scissor, bool) {
	if r == (Rect{}) {
		return gpucore.Scissor{}, true
	}
	if r.Empty() {
		return gpucore.Scissor{}, false
	}
	x0 := math32.Max(0, math32.Floor(r.X))
	y0 := math32.Max(0, math32.Floor(r.Y))
	x1 := math32.Ceil(r.X + r.Width)
	y1 := math32.Ceil(r.Y + r.Height)
	if x1 <= x0 || y1 <= y0 {
		return gpucore.Scissor{}, false
	}
	return gpucore.Scissor{X: uint32(x0), Y: uint32(y0), Width: uint32(x1 - x0), Height: uint32(y1 - y0)}, true
}

// releaseAll drops the atlas references held by glyphs.
func (t *TextGroup[E]) releaseAll(glyphs []placed) {
	for _, p := range glyphs {
		if p.blank {
			continue
		}
		if err := t.atlas.Release(p.id); err != nil {
			// References are balanced by construction.
			logx.Logger().Error("group: glyph release", "group", t.g.cfg.Label, "glyph", p.id, "err", err)
		}
	}
}

// outside reports whether a glyph quad at pos with area a, in group
// coordinates, misses the clip.
func (t *TextGroup[E]) outside(pos attr.Position, a attr.Area) bool {
	if t.clip == (Rect{}) {
		return false
	}
	if t.hidden {
		return true
	}
	quad := Rect{X: pos.X + t.placement.X, Y: pos.Y + t.placement.Y, Width: a.W, Height: a.H}
	return !quad.Overlaps(t.clip)
}

// layoutText acquires the glyphs of txt and reports their instances.
// Glyphs outside the clip are measured but not acquired. On error every
// glyph acquired so far is released and nothing is reported.
func (t *TextGroup[E]) layoutText(e E, txt Text) ([]placed, error) {
	runes := []rune(norm.NFC.String(txt.Value))
	ascent, err := t.layout.Ascent(txt.Font, txt.Scale)
	if err != nil {
		return nil, err
	}

	type instance struct {
		pos    attr.Position
		area   attr.Area
		coords attr.TexCoords
	}
	glyphs := make([]placed, len(runes))
	instances := make([]instance, len(runes))
	var pen float32
	for i, r := range runes {
		id := atlas.GlyphID{Rune: r, Font: txt.Font, Scale: txt.Scale}
		if unicode.IsSpace(r) {
			adv, err := t.layout.Advance(txt.Font, txt.Scale, r)
			if err != nil {
				t.releaseAll(glyphs[:i])
				return nil, err
			}
			glyphs[i] = placed{id: id, blank: true}
			pen += adv
			continue
		}
		m, err := t.layout.Measure(txt.Font, txt.Scale, r)
		if err != nil {
			t.releaseAll(glyphs[:i])
			return nil, err
		}
		pos := attr.Position{
			X: txt.Position.X + pen + m.BearingX,
			Y: txt.Position.Y + ascent - m.BearingY,
		}
		area := attr.Area{W: float32(m.Width), H: float32(m.Height)}
		pen += m.Advance
		if t.outside(pos, area) {
			glyphs[i] = placed{id: id, blank: true, culled: true}
			continue
		}

		g, err := t.atlas.Acquire(id)
		if err != nil {
			t.releaseAll(glyphs[:i])
			return nil, err
		}
		glyphs[i] = placed{id: id}
		instances[i] = instance{pos: pos, area: area, coords: g.Coords}
	}

	d := t.g.Difference()
	for i, p := range glyphs {
		if p.blank {
			continue
		}
		k := GlyphKey[E]{Entity: e, Index: i}
		d.ReportPosition(k, instances[i].pos)
		d.ReportArea(k, instances[i].area)
		d.ReportLayer(k, attr.Layer{Z: txt.Layer})
		d.ReportColor(k, txt.Color)
		d.ReportTexCoords(k, instances[i].coords)
	}
	return glyphs, nil
}

// removeStale reports removal of glyph instances in old that next no
// longer draws at the same index.
func (t *TextGroup[E]) removeStale(e E, old, next []placed) {
	d := t.g.Difference()
	for i, p := range old {
		if p.blank {
			continue
		}
		if i < len(next) && !next[i].blank {
			continue
		}
		d.ReportRemoved(GlyphKey[E]{Entity: e, Index: i})
	}
}

// Prepare lays out every text changed since the last frame and prepares
// the glyph instances.
//
// A text that cannot be laid out, for example because the atlas is full,
// keeps its previous content; the failure is returned in a *MisuseError
// and the rest of the frame proceeds.
func (t *TextGroup[E]) Prepare() (PrepareStats, error) {
	if t.recull {
		// Lay every committed text out again against the new clip.
		for _, e := range t.entities {
			if _, ok := t.queued[e]; !ok {
				t.queue(e, &t.texts[e].text)
			}
		}
		t.recull = false
	}

	var failed []error
	for _, e := range t.order {
		txt, ok := t.pending[e]
		if !ok {
			continue
		}
		old := t.texts[e]
		var oldGlyphs []placed
		if old != nil {
			oldGlyphs = old.glyphs
		}

		if txt == nil {
			if old == nil {
				failed = append(failed, fmt.Errorf("%w: remove text %v", ErrUnknownKey, e))
				continue
			}
			t.removeStale(e, oldGlyphs, nil)
			t.releaseAll(oldGlyphs)
			delete(t.texts, e)
			if i := slices.Index(t.entities, e); i >= 0 {
				t.entities = slices.Delete(t.entities, i, i+1)
			}
			continue
		}

		glyphs, err := t.layoutText(e, *txt)
		if err != nil {
			logx.Logger().Warn("group: text layout failed", "group", t.g.cfg.Label, "entity", e, "err", err)
			failed = append(failed, fmt.Errorf("text %v: %w", e, err))
			continue
		}
		t.removeStale(e, oldGlyphs, glyphs)
		t.releaseAll(oldGlyphs)
		if old == nil {
			t.entities = append(t.entities, e)
		}
		t.texts[e] = &textState{text: *txt, glyphs: glyphs}
	}
	clear(t.pending)
	clear(t.queued)
	t.order = t.order[:0]

	st, err := t.g.Prepare()
	if err != nil {
		var m *MisuseError
		if !errors.As(err, &m) {
			return st, err
		}
		failed = append(failed, m.Errs...)
	}
	if len(failed) > 0 {
		return st, &MisuseError{Group: t.g.cfg.Label, Errs: failed}
	}
	return st, nil
}

// refreshCoords rewrites the texture coordinates of every live glyph after
// the atlas was rebuilt.
func (t *TextGroup[E]) refreshCoords() {
	idx := t.g.Indexer()
	tc := t.g.TexCoords()
	for e, s := range t.texts {
		for i, p := range s.glyphs {
			if p.blank {
				continue
			}
			g, ok := t.atlas.Lookup(p.id)
			if !ok {
				continue
			}
			if slot, ok := idx.Slot(GlyphKey[E]{Entity: e, Index: i}); ok {
				tc.Set(slot, g.Coords)
			}
		}
	}
	t.g.SetTexture(t.atlas.Texture())
	t.generation = t.atlas.Generation()
}

// Flush refreshes texture coordinates if the atlas grew, uploads the
// placement uniform when it changed and flushes the glyph attributes.
func (t *TextGroup[E]) Flush() (attr.FlushStats, error) {
	if t.atlas.Generation() != t.generation {
		t.refreshCoords()
	}
	var st attr.FlushStats
	if t.placementDirty {
		data := safeish.AsBytes(&t.placement)
		t.g.adapter.WriteBuffer(t.uniform, 0, data)
		st.Writes++
		st.Bytes += len(data)
		t.placementDirty = false
	}
	gst, err := t.g.Flush()
	st.Add(gst)
	return st, err
}

// Draw issues the glyph draw call unless the clip hides the group.
func (t *TextGroup[E]) Draw() (DrawStats, error) {
	if t.hidden {
		return DrawStats{}, nil
	}
	return t.g.Draw()
}

// Close releases every glyph and destroys the group's buffers.
func (t *TextGroup[E]) Close() {
	for _, s := range t.texts {
		t.releaseAll(s.glyphs)
	}
	clear(t.texts)
	t.entities = nil
	t.g.Close()
	if t.uniform != gpucore.InvalidID {
		t.g.adapter.DestroyBuffer(t.uniform)
		t.uniform = gpucore.InvalidID
	}
}
