/*
NAME
  scale.go

DESCRIPTION
  scale.go implements Scaler: a software pixel-format/resolution
  converter used by the decoder when a decoded frame's geometry doesn't
  already match the caller's requested ImageDescriptor.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package backend

import (
	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/perr"
)

var (
	swsGetContext func(int32, int32, int32, int32, int32, int32, int32, uintptr, uintptr, uintptr) uintptr
	swsScale      func(uintptr, uintptr, uintptr, int32, int32, uintptr, uintptr) int32
	swsFreeContext func(uintptr)
)

func registerSWScale() {
	registerLibFunc(&swsGetContext, libswscale, "sws_getContext")
	registerLibFunc(&swsScale, libswscale, "sws_scale")
	registerLibFunc(&swsFreeContext, libswscale, "sws_freeContext")
}

const swsBilinear = 2

// Scaler wraps an opaque software-scale context converting one fixed
// source geometry/format into one fixed destination geometry/format.
type Scaler struct {
	ctx uintptr
}

// NewScaler allocates a scaler context converting from src to dst using
// bilinear filtering, per spec's scaler_alloc. src/dst's Align fields are
// ignored; only width, height, and format drive sws_getContext.
func NewScaler(src, dst avutil.ImageDescriptor) (*Scaler, error) {
	if err := Load(); err != nil {
		return nil, perr.Wrap(perr.ResourceAlloc, "NewScaler", err)
	}
	ctx := swsGetContext(
		int32(src.Width), int32(src.Height), int32(src.Format),
		int32(dst.Width), int32(dst.Height), int32(dst.Format),
		swsBilinear, 0, 0, 0,
	)
	if ctx == 0 {
		return nil, perr.New(perr.ResourceAlloc, "NewScaler")
	}
	return &Scaler{ctx: ctx}, nil
}

// Scale converts src into dst, writing dst.Data/Linesize and setting
// dst.Height to the scaler's returned row count, then copying src's
// timing fields across. Both src and dst must already carry an allocated
// Native frame handle (dst typically a pool slot's frame). Either
// endpoint, or either frame's plane 0, being unallocated is a
// null-pointer error.
func (s *Scaler) Scale(src, dst *avutil.Frame) error {
	if src == nil || dst == nil || src.Native == 0 || dst.Native == 0 {
		return perr.New(perr.NullPointer, "Scale")
	}
	if *(*uintptr)(framePtr(src.Native, offData)) == 0 || *(*uintptr)(framePtr(dst.Native, offData)) == 0 {
		return perr.New(perr.NullPointer, "Scale")
	}
	ret := swsScale(s.ctx, dataPtrArray(src), linesizeArray(src), 0, int32(src.Height),
		dataPtrArray(dst), linesizeArray(dst))
	if ret <= 0 {
		return perr.New(perr.StreamFlush, "Scale")
	}
	syncFromNative(dst)
	dst.Height = int(ret)
	dst.PTS = src.PTS
	dst.PktDTS = src.PktDTS
	dst.TimeBase = src.TimeBase
	return nil
}

// Close releases the scaler's backend context.
func (s *Scaler) Close() {
	if s.ctx != 0 {
		swsFreeContext(s.ctx)
		s.ctx = 0
	}
}

// dataPtrArray and linesizeArray hand sws_scale pointers to f's own
// Native frame's data/linesize arrays, so the call operates on the same
// memory syncFromNative will read back afterwards.
func dataPtrArray(f *avutil.Frame) uintptr    { return f.Native + offData }
func linesizeArray(f *avutil.Frame) uintptr   { return f.Native + offLinesize }
