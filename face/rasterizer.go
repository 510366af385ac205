// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package face

import (
	"fmt"
	"image"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/retained/atlas"
	"github.com/gogpu/retained/internal/cache"
	"github.com/gogpu/retained/internal/logx"
)

// DefaultFaceLimit is the number of sized faces kept open.
const DefaultFaceLimit = 32

// faceKey identifies one sized face.
type faceKey struct {
	font  atlas.FontID
	scale float32
}

// Rasterizer renders glyphs of registered fonts to 8-bit coverage bitmaps.
// It implements atlas.Rasterizer.
type Rasterizer struct {
	reg   *Registry
	faces *cache.Cache[faceKey, font.Face]

	// Fallback replaces runes the font does not cover.
	// Default: '?'
	Fallback rune
}

var _ atlas.Rasterizer = (*Rasterizer)(nil)

// NewRasterizer creates a rasterizer over reg keeping up to faceLimit sized
// faces open. A faceLimit of 0 uses DefaultFaceLimit.
func NewRasterizer(reg *Registry, faceLimit int) *Rasterizer {
	if faceLimit <= 0 {
		faceLimit = DefaultFaceLimit
	}
	faces := cache.New[faceKey, font.Face](faceLimit)
	faces.OnEvict(func(_ faceKey, f font.Face) {
		_ = f.Close()
	})
	return &Rasterizer{reg: reg, faces: faces, Fallback: '?'}
}

// Registry returns the font registry.
func (z *Rasterizer) Registry() *Registry { return z.reg }

func (z *Rasterizer) face(id atlas.FontID, scale float32) (font.Face, error) {
	return z.faces.GetOrCreate(faceKey{id, scale}, func() (font.Face, error) {
		src, err := z.reg.lookup(id)
		if err != nil {
			return nil, err
		}
		f, err := opentype.NewFace(src.ot, &opentype.FaceOptions{
			Size:    float64(scale),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("face: open %s at %g: %w", src.name, scale, err)
		}
		logx.Logger().Debug("face: opened", "font", src.name, "scale", scale)
		return f, nil
	})
}

// resolve maps r to a rune the font can draw.
func (z *Rasterizer) resolve(id atlas.FontID, r rune) (rune, error) {
	if z.reg.Covers(id, r) {
		return r, nil
	}
	if z.Fallback != 0 && z.reg.Covers(id, z.Fallback) {
		return z.Fallback, nil
	}
	return 0, fmt.Errorf("%w: %q in font %d", ErrNoGlyph, r, id)
}

// Rasterize renders r at scale pixels per em. Blank glyphs such as spaces
// return metrics with a zero-size bitmap.
func (z *Rasterizer) Rasterize(r rune, id atlas.FontID, scale float32) (atlas.Metrics, []byte, error) {
	f, err := z.face(id, scale)
	if err != nil {
		return atlas.Metrics{}, nil, err
	}
	ch, err := z.resolve(id, r)
	if err != nil {
		return atlas.Metrics{}, nil, err
	}
	m, ok := glyphMetrics(f, ch)
	if !ok {
		return atlas.Metrics{}, nil, fmt.Errorf("%w: %q in font %d", ErrNoGlyph, ch, id)
	}
	if m.Width == 0 || m.Height == 0 {
		return m, nil, nil
	}
	minX, minY := int(m.BearingX), -int(m.BearingY)

	mask := image.NewAlpha(image.Rect(0, 0, m.Width, m.Height))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: f,
		Dot:  fixed.Point26_6{X: -fixed.I(minX), Y: -fixed.I(minY)},
	}
	d.DrawString(string(ch))
	return m, mask.Pix, nil
}

// Measure returns the metrics Rasterize would report for r without
// drawing the bitmap.
func (z *Rasterizer) Measure(id atlas.FontID, scale float32, r rune) (atlas.Metrics, error) {
	f, err := z.face(id, scale)
	if err != nil {
		return atlas.Metrics{}, err
	}
	ch, err := z.resolve(id, r)
	if err != nil {
		return atlas.Metrics{}, err
	}
	m, ok := glyphMetrics(f, ch)
	if !ok {
		return atlas.Metrics{}, fmt.Errorf("%w: %q in font %d", ErrNoGlyph, ch, id)
	}
	return m, nil
}

// glyphMetrics converts the bounds of ch to whole-pixel bitmap metrics.
func glyphMetrics(f font.Face, ch rune) (atlas.Metrics, bool) {
	bounds, advance, ok := f.GlyphBounds(ch)
	if !ok {
		return atlas.Metrics{}, false
	}
	minX, minY := bounds.Min.X.Floor(), bounds.Min.Y.Floor()
	maxX, maxY := bounds.Max.X.Ceil(), bounds.Max.Y.Ceil()
	m := atlas.Metrics{
		BearingX: float32(minX),
		BearingY: float32(-minY),
		Advance:  fixedToFloat32(advance),
	}
	if maxX > minX && maxY > minY {
		m.Width, m.Height = maxX-minX, maxY-minY
	}
	return m, true
}

// Advance returns the horizontal advance of r in pixels.
func (z *Rasterizer) Advance(id atlas.FontID, scale float32, r rune) (float32, error) {
	f, err := z.face(id, scale)
	if err != nil {
		return 0, err
	}
	ch, err := z.resolve(id, r)
	if err != nil {
		if unicode.IsSpace(r) {
			return fixedToFloat32(f.Metrics().Height) / 4, nil
		}
		return 0, err
	}
	adv, ok := f.GlyphAdvance(ch)
	if !ok {
		return 0, fmt.Errorf("%w: %q in font %d", ErrNoGlyph, ch, id)
	}
	return fixedToFloat32(adv), nil
}

// Ascent returns the distance from the top of a line to its baseline.
func (z *Rasterizer) Ascent(id atlas.FontID, scale float32) (float32, error) {
	f, err := z.face(id, scale)
	if err != nil {
		return 0, err
	}
	return fixedToFloat32(f.Metrics().Ascent), nil
}

// Close closes every open face.
func (z *Rasterizer) Close() { z.faces.Clear() }

func fixedToFloat32(v fixed.Int26_6) float32 { return float32(v) / 64 }
