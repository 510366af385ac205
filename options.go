// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package retained

import (
	"github.com/gogpu/retained/atlas"
	"github.com/gogpu/retained/group"
)

// Fonts rasterizes glyphs for the atlas and measures them for text layout.
// face.Rasterizer is the standard implementation.
type Fonts interface {
	atlas.Rasterizer
	group.Layout
}

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := retained.New(adapter, retained.DefaultConfig(),
//	    retained.WithFontData("Inter", interTTF))
type Option func(*options)

type fontData struct {
	name string
	data []byte
}

type options struct {
	fonts     Fonts
	fontData  []fontData
	faceLimit int
}

// WithFonts replaces the built-in font backend. The caller keeps ownership
// of f; Close does not close it.
func WithFonts(f Fonts) Option {
	return func(o *options) {
		o.fonts = f
	}
}

// WithFontData registers a TrueType or OpenType font with the built-in
// backend. Fonts get consecutive IDs after face.DefaultFont in the order the
// options are given. Ignored when WithFonts is used.
func WithFontData(name string, data []byte) Option {
	return func(o *options) {
		o.fontData = append(o.fontData, fontData{name: name, data: data})
	}
}

// WithFaceLimit sets how many sized faces the built-in backend keeps open.
func WithFaceLimit(n int) Option {
	return func(o *options) {
		o.faceLimit = n
	}
}
