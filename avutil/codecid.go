/*
NAME
  codecid.go

DESCRIPTION
  codecid.go provides the closed CodecID enumeration and its bidirectional
  mapping to the codec backend's codec ID codes.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package avutil

import "github.com/ausocean/pollux/pollog"

// CodecID is the closed codec identifier enumeration. Values match the
// backend's own codec ID numbering.
type CodecID int32

// The closed set of codec IDs pollux understands.
const (
	CodecIDNone  CodecID = 0
	CodecIDMJPEG CodecID = 7
	CodecIDH264  CodecID = 27
	CodecIDPNG   CodecID = 61
	CodecIDGIF   CodecID = 97
	CodecIDHEVC  CodecID = 173
	CodecIDAV1   CodecID = 225

	// codecIDMax is a reserved sentinel; it names no actual codec.
	codecIDMax CodecID = 1 << 30
)

var knownCodecIDs = map[CodecID]bool{
	CodecIDMJPEG: true, CodecIDH264: true, CodecIDPNG: true,
	CodecIDGIF: true, CodecIDHEVC: true, CodecIDAV1: true,
}

func (c CodecID) String() string {
	switch c {
	case CodecIDNone:
		return "none"
	case CodecIDMJPEG:
		return "mjpeg"
	case CodecIDH264:
		return "h264"
	case CodecIDPNG:
		return "png"
	case CodecIDGIF:
		return "gif"
	case CodecIDHEVC:
		return "hevc"
	case CodecIDAV1:
		return "av1"
	default:
		return "unknown"
	}
}

// CodecIDToBackend maps a library codec ID to the backend's numeric code.
// Permissive: anything above none passes through verbatim, with a logged
// warning if it isn't one of the named constants; anything at or below
// none is invalid.
func CodecIDToBackend(c CodecID, log pollog.Logger) (int32, bool) {
	if c <= CodecIDNone {
		return 0, false
	}
	if !knownCodecIDs[c] {
		log.Warning("codec ID not in the named set, passing through raw value", "codec_id", int32(c))
	}
	return int32(c), true
}

// CodecIDFromBackend maps a backend numeric codec ID to the library's
// enumeration. Strict: unmapped backend values fail.
func CodecIDFromBackend(v int32, log pollog.Logger) (CodecID, bool) {
	c := CodecID(v)
	if c == CodecIDNone {
		return CodecIDNone, true
	}
	if !knownCodecIDs[c] {
		log.Error("unmapped backend codec ID", "value", v)
		return CodecIDNone, false
	}
	return c, true
}
