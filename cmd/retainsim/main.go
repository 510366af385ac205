// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command retainsim drives a retained renderer with a deterministic
// workload of moving boxes and changing labels, and prints per-frame upload
// statistics.
//
// Usage:
//
//	retainsim --frames 120 --boxes 500 --labels 40 --churn 0.1
//	retainsim --config sim.yaml --backend noop
//
// Every flag can also be set in the YAML config file or through an
// environment variable with the RETAINSIM_ prefix (RETAINSIM_FRAMES=60).
package main

import (
	"os"

	"github.com/pterm/pterm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
