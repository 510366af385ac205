// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package face

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	gotext "github.com/go-text/typesetting/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/gogpu/retained/atlas"
)

// Errors returned by the face package.
var (
	// ErrUnknownFont is returned for a FontID that was never registered.
	ErrUnknownFont = errors.New("face: unknown font")

	// ErrNoGlyph is returned when neither a rune nor the fallback rune has a
	// glyph in the font.
	ErrNoGlyph = errors.New("face: no glyph for rune")

	// ErrTooManyFonts is returned when the FontID space is exhausted.
	ErrTooManyFonts = errors.New("face: too many fonts")
)

// DefaultFont is the FontID of Go Regular, registered by NewRegistry.
const DefaultFont atlas.FontID = 0

// source is one registered font, parsed twice: by x/image for
// rasterization and by go-text for cmap coverage.
type source struct {
	name  string
	ot    *opentype.Font
	cover *gotext.Font
}

// Registry assigns FontIDs to parsed fonts.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	fonts []*source
}

// NewRegistry creates a registry holding Go Regular as DefaultFont.
func NewRegistry() (*Registry, error) {
	r := &Registry{}
	if _, err := r.Register("Go Regular", goregular.TTF); err != nil {
		return nil, err
	}
	return r, nil
}

// Register parses a TrueType or OpenType font and returns its FontID.
func (r *Registry) Register(name string, data []byte) (atlas.FontID, error) {
	ot, err := opentype.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("face: parse %s: %w", name, err)
	}
	gt, err := gotext.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("face: parse %s cmap: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fonts) > int(^atlas.FontID(0)) {
		return 0, ErrTooManyFonts
	}
	id := atlas.FontID(len(r.fonts))
	r.fonts = append(r.fonts, &source{name: name, ot: ot, cover: gt.Font})
	return id, nil
}

func (r *Registry) lookup(id atlas.FontID) (*source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.fonts) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFont, id)
	}
	return r.fonts[id], nil
}

// Name returns the name a font was registered under.
func (r *Registry) Name(id atlas.FontID) (string, error) {
	s, err := r.lookup(id)
	if err != nil {
		return "", err
	}
	return s.name, nil
}

// Covers reports whether the font maps ch to a glyph.
func (r *Registry) Covers(id atlas.FontID, ch rune) bool {
	s, err := r.lookup(id)
	if err != nil {
		return false
	}
	_, ok := s.cover.NominalGlyph(ch)
	return ok
}

// Len returns the number of registered fonts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fonts)
}
