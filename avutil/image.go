/*
NAME
  image.go

DESCRIPTION
  image.go provides ImageDescriptor, which names the shape of an image
  buffer the pipeline should allocate: width, height, row alignment, and
  pixel format.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package avutil

import "golang.org/x/sys/cpu"

// ImageDescriptor names the shape of an image buffer: its width, height,
// row alignment, and pixel format. Align is the row-buffer alignment in
// bytes; if Align <= 0, DefaultAlign() is used instead.
type ImageDescriptor struct {
	Width  int
	Height int
	Align  int
	Format PixelFormat
}

// Valid reports whether d describes an allocatable image: positive
// dimensions and a pixel format other than none.
func (d ImageDescriptor) Valid() bool {
	return d.Width > 0 && d.Height > 0 && d.Format != PixFmtNone
}

// ResolvedAlign returns d.Align if positive, or DefaultAlign() otherwise.
func (d ImageDescriptor) ResolvedAlign() int {
	if d.Align > 0 {
		return d.Align
	}
	return DefaultAlign()
}

// DefaultAlign returns the row-buffer alignment the pipeline should use
// when the caller does not specify one, derived from the widest SIMD
// vector register the running CPU supports: 64 bytes for AVX-512, 32 for
// AVX/AVX2, 16 for SSE2, and 32 otherwise.
func DefaultAlign() int {
	switch {
	case cpu.X86.HasAVX512F:
		return 64
	case cpu.X86.HasAVX2 || cpu.X86.HasAVX:
		return 32
	case cpu.X86.HasSSE2:
		return 16
	default:
		return 32
	}
}
