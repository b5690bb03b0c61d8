/*
NAME
  layout.go

DESCRIPTION
  layout.go collects the handful of raw struct-offset accessors this
  package needs for AVStream and AVCodecContext fields that libavformat
  and libavcodec don't expose getter functions for. As with avframe.go,
  the offsets target the public struct layout documented as stable within
  a major SONAME.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package backend

import (
	"unsafe"

	"github.com/ausocean/pollux/avutil"
)

// AVFormatContext.streams is an AVStream** at this offset; each element
// is a pointer-sized slot.
const offFmtCtxStreams = 96

func streamAt(fmtCtx uintptr, idx int32) uintptr {
	streamsArr := *(*uintptr)(unsafe.Pointer(fmtCtx + offFmtCtxStreams))
	return *(*uintptr)(unsafe.Pointer(streamsArr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// AVStream.codecpar (AVCodecParameters*) and AVStream.time_base
// (AVRational) offsets.
const (
	offStreamCodecpar = 120
	offStreamTimeBase = 136
)

func streamCodecpar(stream uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(stream + offStreamCodecpar))
}

func streamTimeBase(stream uintptr) avutil.Rational {
	return avutil.NewRational(readInt32(stream, offStreamTimeBase), readInt32(stream, offStreamTimeBase+4))
}

// AVCodecContext field offsets for the subset of fields this package
// reads or writes directly instead of through a named setter.
const (
	offCtxWidth      = auCtxBase + 0
	offCtxHeight     = auCtxBase + 4
	offCtxPixFmt     = auCtxBase + 8
	offCtxBitRate    = 16
	offCtxCodecID    = 12
	offCtxGopSize    = auCtxBase + 40
	offCtxMaxBFrames = auCtxBase + 48
	offCtxProfile    = auCtxBase + 200
	offCtxLevel      = auCtxBase + 204
	offCtxTimeBase   = auCtxBase + 60
	offCtxFramerate  = auCtxBase + 360
	auCtxBase        = 100 // start of the geometry/GOP block, after the fixed header fields
)

func codecCtxWidth(ctx uintptr) int32      { return readInt32(ctx, offCtxWidth) }
func codecCtxHeight(ctx uintptr) int32     { return readInt32(ctx, offCtxHeight) }
func codecCtxCodecID(ctx uintptr) int32    { return readInt32(ctx, offCtxCodecID) }
func codecCtxBitRate(ctx uintptr) int64    { return readInt64(ctx, offCtxBitRate) }
func codecCtxGopSize(ctx uintptr) int32    { return readInt32(ctx, offCtxGopSize) }
func codecCtxMaxBFrames(ctx uintptr) int32 { return readInt32(ctx, offCtxMaxBFrames) }
func codecCtxProfile(ctx uintptr) int32    { return readInt32(ctx, offCtxProfile) }
func codecCtxLevel(ctx uintptr) int32      { return readInt32(ctx, offCtxLevel) }
func codecCtxPixFmt(ctx uintptr) int32     { return readInt32(ctx, offCtxPixFmt) }
func codecCtxFramerate(ctx uintptr) avutil.Rational {
	return avutil.NewRational(readInt32(ctx, offCtxFramerate), readInt32(ctx, offCtxFramerate+4))
}

// AVStream.duration, in stream time_base units.
const offStreamDuration = 152

func streamDuration(stream uintptr) int64 { return readInt64(stream, offStreamDuration) }

func codecCtxSetWidth(ctx uintptr, v int32)      { writeInt32(ctx, offCtxWidth, v) }
func codecCtxSetHeight(ctx uintptr, v int32)     { writeInt32(ctx, offCtxHeight, v) }
func codecCtxSetPixFmt(ctx uintptr, v int32)     { writeInt32(ctx, offCtxPixFmt, v) }
func codecCtxSetBitRate(ctx uintptr, v int64)    { writeInt64(ctx, offCtxBitRate, v) }
func codecCtxSetGopSize(ctx uintptr, v int32)    { writeInt32(ctx, offCtxGopSize, v) }
func codecCtxSetMaxBFrames(ctx uintptr, v int32) { writeInt32(ctx, offCtxMaxBFrames, v) }
func codecCtxSetTimeBase(ctx uintptr, num, den int32) {
	writeInt32(ctx, offCtxTimeBase, num)
	writeInt32(ctx, offCtxTimeBase+4, den)
}
func codecCtxSetFramerate(ctx uintptr, num, den int32) {
	writeInt32(ctx, offCtxFramerate, num)
	writeInt32(ctx, offCtxFramerate+4, den)
}
