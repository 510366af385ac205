// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package atlas

import (
	"errors"
	"fmt"
)

// Errors returned by the atlas cache.
var (
	// ErrAtlasFull is matched by FullError.
	ErrAtlasFull = errors.New("atlas: no free cell")

	// ErrNotReferenced is returned when a glyph is released more often than
	// it was acquired.
	ErrNotReferenced = errors.New("atlas: glyph not referenced")

	// ErrGlyphTooLarge is returned when a rasterized bitmap does not fit a
	// cell.
	ErrGlyphTooLarge = errors.New("atlas: glyph larger than cell")

	// ErrBadBitmap is returned when a rasterizer returns a bitmap whose
	// length does not match its metrics.
	ErrBadBitmap = errors.New("atlas: bitmap size does not match metrics")
)

// FullError is returned when the atlas is at MaxDimension and has no free
// cell.
type FullError struct {
	Dimension int
}

func (e *FullError) Error() string {
	return fmt.Sprintf("atlas: all %dx%d cells in use", e.Dimension, e.Dimension)
}

// Is reports whether target is ErrAtlasFull.
func (e *FullError) Is(target error) bool { return target == ErrAtlasFull }

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}
