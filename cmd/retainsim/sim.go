// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/retained"
	"github.com/gogpu/retained/atlas"
	"github.com/gogpu/retained/attr"
	"github.com/gogpu/retained/gpucore"
	"github.com/gogpu/retained/group"
)

type simConfig struct {
	Frames   int
	Boxes    int
	Labels   int
	Churn    float64
	Seed     uint64
	Backend  string
	Fonts    []string
	LogLevel string

	Capacity       int
	Growth         int
	AtlasDimension int
	AtlasMax       int

	// Every selects the frames shown in the report table.
	Every int
}

func (c simConfig) Validate() error {
	switch {
	case c.Frames < 1:
		return errors.New("frames must be positive")
	case c.Boxes < 0 || c.Labels < 0:
		return errors.New("boxes and labels must not be negative")
	case c.Churn < 0 || c.Churn > 1:
		return errors.New("churn must be in [0, 1]")
	case c.Every < 1:
		return errors.New("every must be positive")
	}
	return nil
}

func (c simConfig) rendererConfig() retained.Config {
	cfg := retained.DefaultConfig()
	cfg.InitialCapacity = c.Capacity
	cfg.GrowthFactor = c.Growth
	cfg.Atlas = atlas.DefaultConfig()
	cfg.Atlas.Dimension = c.AtlasDimension
	cfg.Atlas.MaxDimension = c.AtlasMax
	if c.AtlasDimension == 0 {
		cfg.Atlas.ExpectedGlyphs = c.expectedGlyphs()
		if atlas.DimensionFor(cfg.Atlas.ExpectedGlyphs) > c.AtlasMax {
			cfg.Atlas.Dimension = c.AtlasMax
		}
	}
	return cfg
}

// expectedGlyphs counts the glyphs labels can use: every letter of the
// vocabulary and the digits, at each label scale in each font.
func (c simConfig) expectedGlyphs() int {
	runes := make(map[rune]struct{})
	for _, w := range words {
		for _, r := range norm.NFC.String(w) {
			if !unicode.IsSpace(r) {
				runes[r] = struct{}{}
			}
		}
	}
	for r := '0'; r <= '9'; r++ {
		runes[r] = struct{}{}
	}
	return len(runes) * labelScales * (len(c.Fonts) + 1)
}

// labelScales is the number of distinct label sizes.
const labelScales = 6

var words = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
	"hotel", "india", "juliett", "kilo", "lima", "mike", "november",
	"Ünïcödé", "naïve café", "ΑΒΓΔ", "привет",
}

// simulation moves boxes and rewrites labels at random, with a fixed seed
// so two runs with the same configuration upload the same bytes.
type simulation struct {
	cfg    simConfig
	rng    *rand.Rand
	r      *retained.Renderer
	boxes  *group.Group[int]
	labels *group.TextGroup[int]
	fonts  []atlas.FontID

	live    []int
	nextKey int
}

// result holds the stats of every frame and the misuse seen along the way.
type result struct {
	Frames []retained.FrameStats
	Misuse int
}

func newSimulation(adapter gpucore.Adapter, cfg simConfig) (*simulation, error) {
	var opts []retained.Option
	for _, path := range cfg.Fonts {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("font: %w", err)
		}
		opts = append(opts, retained.WithFontData(filepath.Base(path), data))
	}

	r, err := retained.New(adapter, cfg.rendererConfig(), opts...)
	if err != nil {
		return nil, err
	}
	s := &simulation{
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		r:     r,
		fonts: []atlas.FontID{0},
	}
	for i := range cfg.Fonts {
		s.fonts = append(s.fonts, atlas.FontID(i+1))
	}
	if s.boxes, err = retained.NewGroup[int](r, "boxes"); err != nil {
		r.Close()
		return nil, err
	}
	if s.labels, err = retained.NewTextGroup[int](r, "labels"); err != nil {
		r.Close()
		return nil, err
	}
	for range cfg.Boxes {
		s.addBox()
	}
	for i := range cfg.Labels {
		s.setLabel(i)
	}
	return s, nil
}

func (s *simulation) addBox() {
	k := s.nextKey
	s.nextKey++
	s.live = append(s.live, k)

	d := s.boxes.Difference()
	d.ReportPosition(k, s.randomPosition())
	d.ReportArea(k, attr.Area{W: 4 + s.rng.Float32()*28, H: 4 + s.rng.Float32()*28})
	d.ReportLayer(k, attr.Layer{Z: float32(s.rng.IntN(8))})
	d.ReportColor(k, attr.RGBA(uint8(s.rng.IntN(256)), uint8(s.rng.IntN(256)), uint8(s.rng.IntN(256)), 255))
}

func (s *simulation) randomPosition() attr.Position {
	return attr.Position{X: s.rng.Float32() * 1024, Y: s.rng.Float32() * 768}
}

func (s *simulation) setLabel(i int) {
	s.labels.SetText(i, group.Text{
		Value:    fmt.Sprintf("%s %d", words[s.rng.IntN(len(words))], s.rng.IntN(1000)),
		Font:     s.fonts[s.rng.IntN(len(s.fonts))],
		Scale:    float32(12 + 2*s.rng.IntN(labelScales)),
		Position: attr.Position{X: 8, Y: float32(8 + 24*i)},
		Color:    attr.White,
	})
}

// step applies one frame of changes.
func (s *simulation) step() {
	churn := s.cfg.Churn
	d := s.boxes.Difference()
	for _, k := range s.live {
		if s.rng.Float64() < churn {
			d.ReportPosition(k, s.randomPosition())
		}
	}

	removed := 0
	for i := 0; i < len(s.live); {
		if s.rng.Float64() < churn/4 {
			d.ReportRemoved(s.live[i])
			s.live[i] = s.live[len(s.live)-1]
			s.live = s.live[:len(s.live)-1]
			removed++
			continue
		}
		i++
	}
	for range s.rng.IntN(2*removed + 2) {
		s.addBox()
	}

	for i := range s.cfg.Labels {
		if s.rng.Float64() < churn {
			s.setLabel(i)
		}
	}
}

// Run runs every frame and presents it on h.
func (s *simulation) Run(h host) (result, error) {
	var res result
	for range s.cfg.Frames {
		s.step()
		st, err := s.r.Frame()
		if err != nil {
			var m *group.MisuseError
			if !errors.As(err, &m) {
				return res, err
			}
			res.Misuse++
		}
		res.Frames = append(res.Frames, st)
		if err := h.Present(); err != nil {
			return res, fmt.Errorf("present frame %d: %w", st.Frame, err)
		}
	}
	return res, nil
}

// Live returns the number of live boxes.
func (s *simulation) Live() int { return len(s.live) }

func (s *simulation) Close() { s.r.Close() }
