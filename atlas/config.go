// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package atlas

// Config holds configuration for a glyph atlas cache.
type Config struct {
	// CellWidth and CellHeight are the pixel size of one grid cell. A glyph
	// bitmap must fit a cell.
	// Default: 32x32
	CellWidth, CellHeight int

	// Dimension is the initial number of cells per side.
	// Default: 8, or DimensionFor(ExpectedGlyphs) when that is set
	Dimension int

	// ExpectedGlyphs sizes the initial grid when Dimension is zero.
	ExpectedGlyphs int

	// MaxDimension caps growth. Past it, Acquire fails with a FullError.
	// Default: 64
	MaxDimension int

	// Label is the debug label of the atlas texture.
	// Default: "glyph_atlas"
	Label string
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		CellWidth:    32,
		CellHeight:   32,
		Dimension:    8,
		MaxDimension: 64,
		Label:        "glyph_atlas",
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CellWidth == 0 {
		c.CellWidth = d.CellWidth
	}
	if c.CellHeight == 0 {
		c.CellHeight = d.CellHeight
	}
	if c.Dimension == 0 {
		c.Dimension = d.Dimension
		if c.ExpectedGlyphs > 0 {
			c.Dimension = DimensionFor(c.ExpectedGlyphs)
		}
	}
	if c.MaxDimension == 0 {
		c.MaxDimension = max(d.MaxDimension, c.Dimension)
	}
	if c.Label == "" {
		c.Label = d.Label
	}
	return c
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.CellWidth < 1 || c.CellWidth > 1024 {
		return &ConfigError{Field: "CellWidth", Reason: "must be in [1, 1024]"}
	}
	if c.CellHeight < 1 || c.CellHeight > 1024 {
		return &ConfigError{Field: "CellHeight", Reason: "must be in [1, 1024]"}
	}
	if c.ExpectedGlyphs < 0 {
		return &ConfigError{Field: "ExpectedGlyphs", Reason: "must not be negative"}
	}
	if c.Dimension < 1 {
		return &ConfigError{Field: "Dimension", Reason: "must be at least 1"}
	}
	if c.MaxDimension < c.Dimension {
		return &ConfigError{Field: "MaxDimension", Reason: "must be at least Dimension"}
	}
	if c.MaxDimension*max(c.CellWidth, c.CellHeight) > 16384 {
		return &ConfigError{Field: "MaxDimension", Reason: "texture would exceed 16384 pixels per side"}
	}
	return nil
}
