// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package face

import (
	"errors"
	"testing"

	"github.com/gogpu/retained/atlas"
)

func newTestRasterizer(t *testing.T) *Rasterizer {
	t.Helper()
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	z := NewRasterizer(reg, 0)
	t.Cleanup(z.Close)
	return z
}

func TestRegistry_Default(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	if name, _ := reg.Name(DefaultFont); name != "Go Regular" {
		t.Errorf("Name(DefaultFont) = %q", name)
	}
	if !reg.Covers(DefaultFont, 'A') {
		t.Error("Go Regular should cover 'A'")
	}
	if reg.Covers(DefaultFont, '\U0001F600') {
		t.Error("Go Regular should not cover emoji")
	}
	if reg.Covers(7, 'A') {
		t.Error("unknown font should cover nothing")
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	reg, _ := NewRegistry()
	if _, err := reg.Register("junk", []byte("not a font")); err == nil {
		t.Error("Register of junk data should fail")
	}
	if reg.Len() != 1 {
		t.Errorf("failed Register changed Len to %d", reg.Len())
	}
}

func TestRasterizer_Glyph(t *testing.T) {
	z := newTestRasterizer(t)
	m, bitmap, err := z.Rasterize('A', DefaultFont, 16)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if m.Width <= 0 || m.Height <= 0 || m.Width > 16 || m.Height > 20 {
		t.Fatalf("metrics %+v out of range for a 16px 'A'", m)
	}
	if len(bitmap) != m.Width*m.Height {
		t.Fatalf("bitmap %d bytes, want %d", len(bitmap), m.Width*m.Height)
	}
	ink := 0
	for _, b := range bitmap {
		if b != 0 {
			ink++
		}
	}
	if ink == 0 {
		t.Error("bitmap has no coverage")
	}
	if m.Advance <= 0 || m.BearingY <= 0 {
		t.Errorf("Advance=%v BearingY=%v, want positive", m.Advance, m.BearingY)
	}
}

func TestRasterizer_MeasureMatchesRasterize(t *testing.T) {
	z := newTestRasterizer(t)
	for _, r := range "Agj ." {
		want, _, err := z.Rasterize(r, DefaultFont, 16)
		if err != nil {
			t.Fatalf("Rasterize(%q): %v", r, err)
		}
		got, err := z.Measure(DefaultFont, 16, r)
		if err != nil {
			t.Fatalf("Measure(%q): %v", r, err)
		}
		if got != want {
			t.Errorf("Measure(%q) = %+v, want %+v", r, got, want)
		}
	}
}

func TestRasterizer_Space(t *testing.T) {
	z := newTestRasterizer(t)
	m, bitmap, err := z.Rasterize(' ', DefaultFont, 16)
	if err != nil {
		t.Fatalf("Rasterize(' '): %v", err)
	}
	if m.Width != 0 || m.Height != 0 || len(bitmap) != 0 {
		t.Errorf("space rasterized to %+v with %d bytes", m, len(bitmap))
	}
	if m.Advance <= 0 {
		t.Errorf("space Advance = %v, want positive", m.Advance)
	}
}

func TestRasterizer_Fallback(t *testing.T) {
	z := newTestRasterizer(t)
	want, _, err := z.Rasterize('?', DefaultFont, 12)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := z.Rasterize('\U0001F600', DefaultFont, 12)
	if err != nil {
		t.Fatalf("Rasterize of uncovered rune: %v", err)
	}
	if got != want {
		t.Errorf("fallback metrics = %+v, want those of '?' %+v", got, want)
	}

	z.Fallback = 0
	if _, _, err := z.Rasterize('\U0001F600', DefaultFont, 12); !errors.Is(err, ErrNoGlyph) {
		t.Errorf("err = %v, want ErrNoGlyph", err)
	}
}

func TestRasterizer_UnknownFont(t *testing.T) {
	z := newTestRasterizer(t)
	if _, _, err := z.Rasterize('A', 3, 12); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("err = %v, want ErrUnknownFont", err)
	}
}

func TestRasterizer_Layout(t *testing.T) {
	z := newTestRasterizer(t)
	adv, err := z.Advance(DefaultFont, 16, 'M')
	if err != nil || adv <= 0 {
		t.Errorf("Advance('M') = %v, %v", adv, err)
	}
	asc, err := z.Ascent(DefaultFont, 16)
	if err != nil || asc <= 0 || asc > 32 {
		t.Errorf("Ascent = %v, %v", asc, err)
	}
}

func TestRasterizer_FaceCacheLimit(t *testing.T) {
	reg, _ := NewRegistry()
	z := NewRasterizer(reg, 2)
	defer z.Close()
	for _, s := range []float32{10, 12, 14, 16} {
		if _, _, err := z.Rasterize('x', DefaultFont, s); err != nil {
			t.Fatal(err)
		}
	}
	if n := z.faces.Len(); n != 2 {
		t.Errorf("open faces = %d, want 2", n)
	}
}

func TestRasterizer_FeedsAtlas(t *testing.T) {
	z := newTestRasterizer(t)
	var _ atlas.Rasterizer = z
	_, bitmap, _ := z.Rasterize('g', DefaultFont, 32)
	if len(bitmap) == 0 {
		t.Fatal("empty bitmap for 'g'")
	}
}
