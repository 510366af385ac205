// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package logx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNopHandler_Enabled(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
}

func TestSetLogger_RoundTrip(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Info("atlas grown", "dimension", 8)

	if !strings.Contains(buf.String(), "atlas grown") {
		t.Errorf("log output %q does not contain message", buf.String())
	}
}

func TestSetLogger_NilRestoresNop(t *testing.T) {
	SetLogger(slog.Default())
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("Logger() after SetLogger(nil) should be disabled")
	}
}
