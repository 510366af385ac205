// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package retained

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/retained/atlas"
	"github.com/gogpu/retained/attr"
	"github.com/gogpu/retained/backend/recording"
	"github.com/gogpu/retained/face"
	"github.com/gogpu/retained/group"
)

func newTestRenderer(t *testing.T, cfg Config) (*Renderer, *recording.Adapter) {
	t.Helper()
	rec := recording.New()
	r, err := New(rec, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return r, rec
}

func mustFrame(t *testing.T, r *Renderer) FrameStats {
	t.Helper()
	st, err := r.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	return st
}

func slotOf[K comparable](t *testing.T, g *group.Group[K], k K) int {
	t.Helper()
	s, ok := g.Indexer().Slot(k)
	if !ok {
		t.Fatalf("key %v has no slot", k)
	}
	return s
}

func assertMirrored[K comparable](t *testing.T, g *group.Group[K], rec *recording.Adapter) {
	t.Helper()
	cpu := [][]byte{
		g.Positions().Bytes(),
		g.Areas().Bytes(),
		g.Layers().Bytes(),
		g.Colors().Bytes(),
		g.TexCoords().Bytes(),
		g.Nulls().Bytes(),
	}
	for i, id := range g.Buffers() {
		if !bytes.Equal(cpu[i], rec.Bytes(id)) {
			t.Errorf("%s %v: GPU buffer differs from CPU array", g.Label(), attr.Kinds[i])
		}
	}
}

// Keys allocated in order take consecutive slots; a released slot is null
// and is the next one handed out.
func TestRenderer_SlotLifecycle(t *testing.T) {
	r, rec := newTestRenderer(t, Config{InitialCapacity: 8})
	g, err := NewGroup[string](r, "icons")
	if err != nil {
		t.Fatal(err)
	}

	for i, k := range []string{"k1", "k2", "k3"} {
		g.Difference().ReportPosition(k, attr.Position{X: float32(i)})
	}
	mustFrame(t, r)
	for want, k := range []string{"k1", "k2", "k3"} {
		if got := slotOf(t, g, k); got != want {
			t.Errorf("slot(%s) = %d, want %d", k, got, want)
		}
	}

	g.Difference().ReportRemoved("k2")
	mustFrame(t, r)
	if !g.Nulls().Get(1).IsNull() {
		t.Error("slot 1 not null after releasing k2")
	}
	if holes := g.Indexer().Holes(); len(holes) != 1 || holes[0] != 1 {
		t.Errorf("holes = %v, want [1]", holes)
	}

	g.Difference().ReportPosition("k4", attr.Position{X: 9})
	mustFrame(t, r)
	if got := slotOf(t, g, "k4"); got != 1 {
		t.Errorf("slot(k4) = %d, want hole 1", got)
	}
	if g.Nulls().Get(1).IsNull() {
		t.Error("slot 1 still null after reuse")
	}
	assertMirrored(t, g, rec)
}

func TestRenderer_Growth(t *testing.T) {
	r, rec := newTestRenderer(t, Config{InitialCapacity: 8, GrowthFactor: 10})
	g, _ := NewGroup[int](r, "icons")
	for k := range 8 {
		g.Difference().ReportPosition(k, attr.Position{X: float32(k), Y: 1})
	}
	mustFrame(t, r)
	before := slices.Clone(g.Positions().Values()[:8])

	g.Difference().ReportPosition(8, attr.Position{X: 8, Y: 1})
	rec.Reset()
	st := mustFrame(t, r)

	if g.Indexer().Capacity() != 18 || g.Positions().Capacity() != 18 {
		t.Errorf("capacity = %d/%d, want 18", g.Indexer().Capacity(), g.Positions().Capacity())
	}
	if st.Grown != 1 || st.FullUploads != 1 {
		t.Errorf("stats = %v, want one grown group with a full upload", st)
	}
	for i, p := range before {
		if g.Positions().Get(i) != p {
			t.Errorf("slot %d changed across growth: %v -> %v", i, p, g.Positions().Get(i))
		}
	}
	for _, id := range g.Buffers() {
		writes := rec.BufferWrites(id)
		if len(writes) != 1 || writes[0].Offset != 0 || writes[0].Len != len(rec.Bytes(id)) {
			t.Errorf("buffer %d writes = %v, want one full write", id, writes)
		}
	}
	if n := len(rec.Filter(recording.CmdDestroyBuffer)); n != len(attr.Kinds) {
		t.Errorf("%d buffers destroyed, want %d", n, len(attr.Kinds))
	}
	assertMirrored(t, g, rec)
}

func TestRenderer_Coalescing(t *testing.T) {
	r, rec := newTestRenderer(t, Config{InitialCapacity: 8})
	g, _ := NewGroup[int](r, "icons")
	for k := range 6 {
		g.Difference().ReportPosition(k, attr.Position{X: float32(k)})
	}
	mustFrame(t, r)

	tests := []struct {
		name    string
		slots   []int
		offsets []uint64
		lens    []int
	}{
		{"separate", []int{2, 5}, []uint64{16, 40}, []int{8, 8}},
		{"run", []int{2, 3, 4}, []uint64{16}, []int{24}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.slots {
				g.Difference().ReportPosition(s, attr.Position{X: float32(100 * (i + 1)), Y: float32(s)})
			}
			rec.Reset()
			mustFrame(t, r)
			writes := rec.BufferWrites(g.Positions().Buffer())
			if len(writes) != len(tt.lens) {
				t.Fatalf("%d writes, want %d: %v", len(writes), len(tt.lens), writes)
			}
			for j, w := range writes {
				if w.Offset != tt.offsets[j] || w.Len != tt.lens[j] {
					t.Errorf("write %d = %v, want offset %d len %d", j, w, tt.offsets[j], tt.lens[j])
				}
			}
			if n := len(rec.Filter(recording.CmdWriteBuffer)); n != len(tt.lens) {
				t.Errorf("%d writes in total, want only position writes", n)
			}
			assertMirrored(t, g, rec)
		})
	}
}

func TestRenderer_GlyphSharedAcrossTexts(t *testing.T) {
	r, _ := newTestRenderer(t, Config{})
	tg, err := NewTextGroup[string](r, "labels")
	if err != nil {
		t.Fatal(err)
	}
	id := atlas.GlyphID{Rune: 'G', Font: face.DefaultFont, Scale: 16}
	tg.SetText("a", group.Text{Value: "G", Scale: 16, Color: attr.White})
	tg.SetText("b", group.Text{Value: "G", Scale: 16, Color: attr.White})
	st := mustFrame(t, r)
	if st.TextureWrites != 1 {
		t.Errorf("TextureWrites = %d, want 1 for a shared glyph", st.TextureWrites)
	}
	if refs := r.Atlas().Refs(id); refs != 2 {
		t.Fatalf("refs = %d, want 2", refs)
	}
	before, _ := r.Atlas().Lookup(id)

	tg.RemoveText("b")
	st = mustFrame(t, r)
	after, ok := r.Atlas().Lookup(id)
	if !ok || r.Atlas().Refs(id) != 1 {
		t.Fatalf("glyph lost after one release: ok=%v refs=%d", ok, r.Atlas().Refs(id))
	}
	if after != before {
		t.Errorf("glyph moved: %+v -> %+v", before, after)
	}
	if st.Reclaimed != 0 || st.TextureWrites != 0 {
		t.Errorf("stats = %v, want nothing reclaimed or uploaded", st)
	}

	tg.RemoveText("a")
	st = mustFrame(t, r)
	if st.Reclaimed != 1 {
		t.Errorf("Reclaimed = %d, want 1", st.Reclaimed)
	}
	if _, ok := r.Atlas().Lookup(id); ok {
		t.Error("unreferenced glyph still cached")
	}
}

func TestRenderer_TextDrawn(t *testing.T) {
	r, rec := newTestRenderer(t, Config{})
	icons, _ := NewGroup[int](r, "icons")
	labels, _ := NewTextGroup[int](r, "labels")
	icons.Difference().ReportArea(1, attr.Area{W: 16, H: 16})
	labels.SetText(1, group.Text{Value: "Hi there", Scale: 14, Position: attr.Position{X: 20}, Color: attr.White})

	st := mustFrame(t, r)
	if st.Draws != 2 || st.Instances != 1+7 {
		t.Errorf("stats = %v, want 2 draws over 8 instances", st)
	}
	draws := rec.Filter(recording.CmdDraw)
	if len(draws) != 2 || draws[0].Draw.Label != "icons" || draws[1].Draw.Label != "labels" {
		t.Fatalf("draws = %v, want icons then labels", draws)
	}
	if draws[1].Draw.Texture != r.Atlas().Texture() || draws[1].Draw.Uniform != labels.Uniform() {
		t.Error("text draw does not bind the atlas texture and placement uniform")
	}
	assertMirrored(t, icons, rec)
	assertMirrored(t, labels.Group(), rec)
}

func TestRenderer_MisuseDoesNotStopFrame(t *testing.T) {
	r, _ := newTestRenderer(t, Config{})
	g, _ := NewGroup[int](r, "icons")
	g.Difference().ReportRemoved(42)
	g.Difference().ReportPosition(1, attr.Position{})

	st, err := r.Frame()
	if !errors.Is(err, group.ErrUnknownKey) {
		t.Fatalf("err = %v, want ErrUnknownKey", err)
	}
	var misuse *group.MisuseError
	if !errors.As(err, &misuse) || misuse.Group != "icons" {
		t.Errorf("err = %v, want a MisuseError from icons", err)
	}
	if st.Draws != 1 || st.Instances != 1 {
		t.Errorf("stats = %v, want the frame completed", st)
	}
}

func TestRenderer_AdapterErrorAbortsFrame(t *testing.T) {
	r, rec := newTestRenderer(t, Config{InitialCapacity: 1})
	g, _ := NewGroup[int](r, "icons")
	g.Difference().ReportPosition(1, attr.Position{})
	g.Difference().ReportPosition(2, attr.Position{})

	injected := errors.New("device lost")
	rec.FailCreate = injected
	_, err := r.Frame()
	if !errors.Is(err, injected) {
		t.Fatalf("err = %v, want the adapter error", err)
	}
	var misuse *group.MisuseError
	if errors.As(err, &misuse) {
		t.Error("adapter error reported as misuse")
	}
	if len(rec.Filter(recording.CmdDraw)) != 0 {
		t.Error("aborted frame still drew")
	}
}

func TestRenderer_Close(t *testing.T) {
	rec := recording.New()
	r, err := New(rec, Config{})
	if err != nil {
		t.Fatal(err)
	}
	NewGroup[int](r, "icons")
	tg, _ := NewTextGroup[int](r, "labels")
	tg.SetText(1, group.Text{Value: "x", Scale: 12})
	if _, err := r.Frame(); err != nil {
		t.Fatal(err)
	}

	r.Close()
	r.Close()
	if rec.Buffers() != 0 || rec.Textures() != 0 {
		t.Errorf("%d buffers and %d textures left after Close", rec.Buffers(), rec.Textures())
	}
	if _, err := r.Frame(); !errors.Is(err, ErrClosed) {
		t.Errorf("Frame after Close = %v, want ErrClosed", err)
	}
	if _, err := NewGroup[int](r, "late"); !errors.Is(err, ErrClosed) {
		t.Errorf("NewGroup after Close = %v, want ErrClosed", err)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil, Config{}); !errors.Is(err, ErrNilAdapter) {
		t.Errorf("New(nil) = %v, want ErrNilAdapter", err)
	}
	var cerr *ConfigError
	if _, err := New(recording.New(), Config{GrowthFactor: -1}); !errors.As(err, &cerr) || cerr.Field != "GrowthFactor" {
		t.Errorf("err = %v, want GrowthFactor ConfigError", err)
	}
	var aerr *atlas.ConfigError
	if _, err := New(recording.New(), Config{Atlas: atlas.Config{CellWidth: 5000}}); !errors.As(err, &aerr) {
		t.Errorf("err = %v, want atlas ConfigError", err)
	}
	if _, err := New(recording.New(), Config{}, WithFontData("junk", []byte("junk"))); err == nil {
		t.Error("invalid font data accepted")
	}
}

func TestNew_CustomFonts(t *testing.T) {
	reg, err := face.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	fonts := face.NewRasterizer(reg, 4)
	defer fonts.Close()

	r, err := New(recording.New(), Config{}, WithFonts(fonts))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Fonts() != Fonts(fonts) || r.Registry() != nil {
		t.Error("custom fonts not used")
	}
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{}.withDefaults()
	if c.InitialCapacity != 64 || c.GrowthFactor != 10 {
		t.Errorf("withDefaults() = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestFrameStats_String(t *testing.T) {
	s := FrameStats{Frame: 3, BufferWrites: 2, Draws: 1}.String()
	if !strings.HasPrefix(s, "frame 3:") || !strings.Contains(s, "2 buffer writes") {
		t.Errorf("String() = %q", s)
	}
}
