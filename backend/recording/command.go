// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"fmt"

	"github.com/gogpu/retained/gpucore"
)

// CommandType identifies the kind of a recorded adapter call.
type CommandType uint8

const (
	// Resource commands
	CmdCreateBuffer   CommandType = iota // Create a buffer
	CmdDestroyBuffer                     // Destroy a buffer
	CmdCreateTexture                     // Create a texture
	CmdDestroyTexture                    // Destroy a texture

	// Upload commands
	CmdWriteBuffer  // Write a byte range into a buffer
	CmdWriteTexture // Write a region into a texture

	// Draw commands
	CmdDraw // Instanced draw
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdCreateBuffer:   "CreateBuffer",
	CmdDestroyBuffer:  "DestroyBuffer",
	CmdCreateTexture:  "CreateTexture",
	CmdDestroyTexture: "DestroyTexture",
	CmdWriteBuffer:    "WriteBuffer",
	CmdWriteTexture:   "WriteTexture",
	CmdDraw:           "Draw",
}

// String returns the name of the command type.
func (t CommandType) String() string {
	if int(t) < len(commandTypeNames) {
		return commandTypeNames[t]
	}
	return fmt.Sprintf("CommandType(%d)", t)
}

// Command is one recorded adapter call.
//
// Only the fields relevant to Type are set. Payload bytes are not kept in the
// log; read them back through Adapter.Bytes and Adapter.TextureBytes.
type Command struct {
	Type    CommandType
	Label   string
	Buffer  gpucore.BufferID
	Texture gpucore.TextureID

	// Offset and Len describe a buffer write or a buffer size.
	Offset uint64
	Len    int

	// Region is the texture region of a texture write.
	Region gpucore.Region

	// Draw is set for CmdDraw.
	Draw gpucore.DrawCall
}

func (c Command) String() string {
	switch c.Type {
	case CmdWriteBuffer:
		return fmt.Sprintf("WriteBuffer(%d, off=%d, len=%d)", c.Buffer, c.Offset, c.Len)
	case CmdWriteTexture:
		return fmt.Sprintf("WriteTexture(%d, %+v)", c.Texture, c.Region)
	case CmdDraw:
		return fmt.Sprintf("Draw(%q, instances=%v)", c.Draw.Label, c.Draw.Instances)
	case CmdCreateBuffer, CmdDestroyBuffer:
		return fmt.Sprintf("%s(%d, %q)", c.Type, c.Buffer, c.Label)
	default:
		return fmt.Sprintf("%s(%d, %q)", c.Type, c.Texture, c.Label)
	}
}
