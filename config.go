// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package retained

import (
	"errors"
	"fmt"

	"github.com/gogpu/retained/atlas"
)

// Errors returned by the renderer.
var (
	// ErrClosed is returned by operations on a closed Renderer.
	ErrClosed = errors.New("retained: renderer closed")

	// ErrNilAdapter is returned by New without a GPU adapter.
	ErrNilAdapter = errors.New("retained: nil adapter")
)

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("retained: invalid config %s: %s", e.Field, e.Reason)
}

// Config holds configuration for a Renderer.
type Config struct {
	// InitialCapacity is the number of slots each new group starts with.
	// Default: 64
	InitialCapacity int

	// GrowthFactor is the step by which a group grows when it overflows.
	// Capacity always grows by a multiple of it.
	// Default: 10
	GrowthFactor int

	// Atlas configures the shared glyph atlas.
	Atlas atlas.Config
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		InitialCapacity: 64,
		GrowthFactor:    10,
		Atlas:           atlas.DefaultConfig(),
	}
}

// withDefaults fills zero fields with defaults. The atlas applies its own.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialCapacity == 0 {
		c.InitialCapacity = d.InitialCapacity
	}
	if c.GrowthFactor == 0 {
		c.GrowthFactor = d.GrowthFactor
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.InitialCapacity < 1 {
		return &ConfigError{Field: "InitialCapacity", Reason: "must be positive"}
	}
	if c.GrowthFactor < 1 {
		return &ConfigError{Field: "GrowthFactor", Reason: "must be positive"}
	}
	return nil
}
