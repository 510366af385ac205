// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package retained

import (
	"log/slog"

	"github.com/gogpu/retained/internal/logx"
)

// SetLogger configures the logger for retained and all its sub-packages.
// By default, retained produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by retained:
//   - [slog.LevelDebug]: per-frame statistics, buffer and face creation
//   - [slog.LevelInfo]: capacity and atlas growth
//   - [slog.LevelWarn]: producer misuse (unknown keys, failed text layout)
//   - [slog.LevelError]: broken internal bookkeeping
//
// Example:
//
//	retained.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) { logx.SetLogger(l) }

// Logger returns the current logger used by retained.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger { return logx.Logger() }
