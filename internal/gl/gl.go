// SPDX-License-Identifier: Unlicense OR MIT

// Package gl defines the OpenGL ES 2 subset the compositor and
// the render thread issue, independent of the backing driver.
package gl

type (
	Attrib uint
	Enum   uint
)

const (
	ARRAY_BUFFER           = 0x8892
	CLAMP_TO_EDGE          = 0x812f
	COLOR_ATTACHMENT0      = 0x8ce0
	COLOR_BUFFER_BIT       = 0x4000
	COMPILE_STATUS         = 0x8b81
	DEPTH_ATTACHMENT       = 0x8d00
	DEPTH_BUFFER_BIT       = 0x100
	DEPTH_COMPONENT16      = 0x81a5
	DEPTH_TEST             = 0xb71
	EXTENSIONS             = 0x1f03
	FALSE                  = 0
	FLOAT                  = 0x1406
	FRAGMENT_SHADER        = 0x8b30
	FRAMEBUFFER            = 0x8d40
	FRAMEBUFFER_BINDING    = 0x8ca6
	FRAMEBUFFER_COMPLETE   = 0x8cd5
	FRAMEBUFFER_INCOMPLETE = 0x8cd6
	INFO_LOG_LENGTH        = 0x8b84
	INVALID_OPERATION      = 0x502
	INVALID_VALUE          = 0x501
	LINEAR                 = 0x2601
	LINK_STATUS            = 0x8b82
	NEAREST                = 0x2600
	NO_ERROR               = 0x0
	RENDERBUFFER           = 0x8d41
	RENDERBUFFER_BINDING   = 0x8ca7
	RENDERER               = 0x1f01
	RGBA                   = 0x1908
	STATIC_DRAW            = 0x88e4
	TEXTURE_2D             = 0xde1
	TEXTURE_BINDING_2D     = 0x8069
	TEXTURE_MAG_FILTER     = 0x2800
	TEXTURE_MIN_FILTER     = 0x2801
	TEXTURE_WRAP_S         = 0x2802
	TEXTURE_WRAP_T         = 0x2803
	TEXTURE0               = 0x84c0
	TRIANGLE_STRIP         = 0x5
	TRUE                   = 1
	UNSIGNED_BYTE          = 0x1401
	VERSION                = 0x1f02
	VERTEX_SHADER          = 0x8b31
	VIEWPORT               = 0xba2
)
