// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gogpu/retained"
	"github.com/pterm/pterm"
)

// totals sums the per-frame counters of res.
func totals(res result) retained.FrameStats {
	var t retained.FrameStats
	for _, st := range res.Frames {
		t.Frame = st.Frame
		t.BufferWrites += st.BufferWrites
		t.BytesUploaded += st.BytesUploaded
		t.FullUploads += st.FullUploads
		t.TextureWrites += st.TextureWrites
		t.Draws += st.Draws
		t.Instances += st.Instances
		t.Grown += st.Grown
		t.Reclaimed += st.Reclaimed
		t.AtlasGrown = t.AtlasGrown || st.AtlasGrown
	}
	return t
}

func statsRow(label string, st retained.FrameStats) []string {
	grown := strconv.Itoa(st.Grown)
	if st.AtlasGrown {
		grown += " +atlas"
	}
	return []string{
		label,
		strconv.Itoa(st.BufferWrites),
		strconv.Itoa(st.FullUploads),
		strconv.Itoa(st.TextureWrites),
		strconv.Itoa(st.BytesUploaded),
		strconv.Itoa(st.Draws),
		strconv.Itoa(st.Instances),
		grown,
		strconv.Itoa(st.Reclaimed),
	}
}

// tableData builds the report table: a header, every cfg.Every-th frame
// and a totals row.
func tableData(cfg simConfig, res result) pterm.TableData {
	data := pterm.TableData{{
		"Frame", "Writes", "Full", "Glyphs", "Bytes", "Draws", "Instances", "Grown", "Reclaimed",
	}}
	for i, st := range res.Frames {
		if i%cfg.Every == 0 || i == len(res.Frames)-1 {
			data = append(data, statsRow(strconv.FormatUint(st.Frame, 10), st))
		}
	}
	return append(data, statsRow("total", totals(res)))
}

func report(out io.Writer, cfg simConfig, res result) error {
	table, err := pterm.DefaultTable.WithHasHeader().WithData(tableData(cfg, res)).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	pterm.Fprintln(out, table)

	t := totals(res)
	if n := len(res.Frames); n > 0 {
		pterm.Fprintln(out, fmt.Sprintf("%d frames, %.1f bytes/frame, %.1f writes/frame, %d frames with producer errors",
			n, float64(t.BytesUploaded)/float64(n), float64(t.BufferWrites)/float64(n), res.Misuse))
	}
	return nil
}
