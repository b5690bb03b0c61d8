/*
NAME
  pixfmt.go

DESCRIPTION
  pixfmt.go provides the closed PixelFormat enumeration and the bidirectional
  mapping between it and the codec backend's own pixel format codes. The
  numeric values below are chosen to match the backend directly, so mapping
  is constant-time identity plus a range/membership check.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package avutil

import "github.com/ausocean/pollux/pollog"

// PixelFormat is the closed pixel format enumeration. Values are chosen to
// match the codec backend's own enumeration numerically, so conversion in
// either direction never requires a lookup table for the values we know
// about.
type PixelFormat int32

// The closed set of pixel formats pollux understands. Values match the
// backend's numbering exactly.
const (
	PixFmtNone     PixelFormat = -1
	PixFmtYUV420P  PixelFormat = 0
	PixFmtYUYV422  PixelFormat = 1
	PixFmtRGB24    PixelFormat = 2
	PixFmtBGR24    PixelFormat = 3
	PixFmtYUV444P  PixelFormat = 5
	PixFmtPal8     PixelFormat = 11
	PixFmtYUVJ420P PixelFormat = 12
	PixFmtYUVJ422P PixelFormat = 13
	PixFmtYUVJ444P PixelFormat = 14
	PixFmtBGR8     PixelFormat = 19
	PixFmtBGR4     PixelFormat = 20
	PixFmtBGR4Byte PixelFormat = 21
	PixFmtRGB8     PixelFormat = 22
	PixFmtRGB4     PixelFormat = 23
	PixFmtRGB4Byte PixelFormat = 24
	PixFmtNV12     PixelFormat = 25
	PixFmtNV21     PixelFormat = 26

	// pixFmtMax is the sentinel used to bound the "library→backend" legal
	// range; it is not itself a valid pixel format.
	pixFmtMax PixelFormat = 27
)

var knownPixFmts = map[PixelFormat]bool{
	PixFmtYUV420P: true, PixFmtYUYV422: true, PixFmtRGB24: true, PixFmtBGR24: true,
	PixFmtYUV444P: true, PixFmtPal8: true, PixFmtYUVJ420P: true, PixFmtYUVJ422P: true,
	PixFmtYUVJ444P: true, PixFmtBGR8: true, PixFmtBGR4: true, PixFmtBGR4Byte: true,
	PixFmtRGB8: true, PixFmtRGB4: true, PixFmtRGB4Byte: true, PixFmtNV12: true, PixFmtNV21: true,
}

func (f PixelFormat) String() string {
	switch f {
	case PixFmtNone:
		return "none"
	case PixFmtYUV420P:
		return "yuv420p"
	case PixFmtYUYV422:
		return "yuyv422"
	case PixFmtRGB24:
		return "rgb24"
	case PixFmtBGR24:
		return "bgr24"
	case PixFmtYUV444P:
		return "yuv444p"
	case PixFmtPal8:
		return "pal8"
	case PixFmtYUVJ420P:
		return "yuvj420p"
	case PixFmtYUVJ422P:
		return "yuvj422p"
	case PixFmtYUVJ444P:
		return "yuvj444p"
	case PixFmtBGR8:
		return "bgr8"
	case PixFmtBGR4:
		return "bgr4"
	case PixFmtBGR4Byte:
		return "bgr4_byte"
	case PixFmtRGB8:
		return "rgb8"
	case PixFmtRGB4:
		return "rgb4"
	case PixFmtRGB4Byte:
		return "rgb4_byte"
	case PixFmtNV12:
		return "nv12"
	case PixFmtNV21:
		return "nv21"
	default:
		return "unknown"
	}
}

// PixelFormatToBackend maps a library pixel format to the backend's numeric
// code. This direction is permissive: a format outside the set of named
// constants is passed through verbatim (with a logged warning) as long as
// it lies within the backend's legal range (none < f < max); values outside
// that range are reported invalid. This lets a caller ask the decoder to
// convert into any backend pixel format, not just the ones pollux names.
func PixelFormatToBackend(f PixelFormat, log pollog.Logger) (int32, bool) {
	if f <= PixFmtNone || f >= pixFmtMax {
		return 0, false
	}
	if !knownPixFmts[f] {
		log.Warning("pixel format not in the named set, passing through raw value", "format", int32(f))
	}
	return int32(f), true
}

// PixelFormatFromBackend maps a backend numeric pixel format code to the
// library's enumeration. This direction is strict: unmapped backend values
// fail, since pollux will not publish an unknown pixel format upward to a
// caller.
func PixelFormatFromBackend(v int32, log pollog.Logger) (PixelFormat, bool) {
	f := PixelFormat(v)
	if f == PixFmtNone {
		return PixFmtNone, true
	}
	if !knownPixFmts[f] {
		log.Error("unmapped backend pixel format", "value", v)
		return PixFmtNone, false
	}
	return f, true
}
