/*
NAME
  avframe.go

DESCRIPTION
  avframe.go implements FrameAlloc and FrameFree: the allocation lifecycle
  for backend-owned frame memory referenced by an avutil.Frame. The backend
  frame struct's public fields (width, height, format, pts, pkt_dts,
  time_base, linesize, data) sit at byte offsets that are stable within a
  major libavutil SONAME; this package pokes them directly via unsafe
  pointer arithmetic rather than generating cgo accessors, the same
  approach other no-cgo FFmpeg bindings use for AVFrame.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package backend

import (
	"unsafe"

	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/perr"
)

// AVFrame field byte offsets for libavutil's public struct layout (58.x
// ABI). These mirror the struct fields explicitly documented as stable in
// avutil/frame.h: data/linesize come first, then width/height/format,
// then the packet/sample metadata, then pts and pkt_dts, then time_base.
const (
	offData      = 0   // uint8_t *data[AV_NUM_DATA_POINTERS]
	offLinesize  = 64  // int linesize[AV_NUM_DATA_POINTERS]
	offWidth     = 68 + 4*8 // int width
	offHeight    = offWidth + 4
	offFormat    = offHeight + 4
	offPts       = 120
	offPktDts    = 128
	offTimeBase  = 168 // AVRational time_base {num int32; den int32}
)

var (
	avFrameAlloc      func() uintptr
	avFrameFree       func(*uintptr)
	avFrameGetBuffer  func(uintptr, int32) int32
	avFrameUnref      func(uintptr)
	avFrameMakeWriteable func(uintptr) int32
)

func registerAVUtilFrame() {
	registerLibFunc(&avFrameAlloc, libavutil, "av_frame_alloc")
	registerLibFunc(&avFrameFree, libavutil, "av_frame_free")
	registerLibFunc(&avFrameGetBuffer, libavutil, "av_frame_get_buffer")
	registerLibFunc(&avFrameUnref, libavutil, "av_frame_unref")
	registerLibFunc(&avFrameMakeWriteable, libavutil, "av_frame_make_writable")
}

func framePtr(native uintptr, off uintptr) unsafe.Pointer {
	return unsafe.Pointer(native + off)
}

func readInt32(native uintptr, off uintptr) int32 {
	return *(*int32)(framePtr(native, off))
}

func writeInt32(native uintptr, off uintptr, v int32) {
	*(*int32)(framePtr(native, off)) = v
}

func readInt64(native uintptr, off uintptr) int64 {
	return *(*int64)(framePtr(native, off))
}

func writeInt64(native uintptr, off uintptr, v int64) {
	*(*int64)(framePtr(native, off)) = v
}

func writeUintptr(native uintptr, off uintptr, v uintptr) {
	*(*uintptr)(framePtr(native, off)) = v
}

// FrameAlloc allocates a new backend frame handle and, when d is valid,
// backing image memory sized and aligned per d. On success f.Native and,
// when image memory was requested, f.HasImgMem are populated.
func FrameAlloc(f *avutil.Frame, d avutil.ImageDescriptor) error {
	if err := Load(); err != nil {
		return perr.Wrap(perr.ResourceAlloc, "FrameAlloc", err)
	}
	native := avFrameAlloc()
	if native == 0 {
		return perr.New(perr.MemoryAlloc, "FrameAlloc")
	}
	if d.Valid() {
		writeInt32(native, offWidth, int32(d.Width))
		writeInt32(native, offHeight, int32(d.Height))
		writeInt32(native, offFormat, int32(d.Format))
		if ret := avFrameGetBuffer(native, int32(d.ResolvedAlign())); ret < 0 {
			avFrameFree(&native)
			return perr.WrapBackend(perr.MemoryAlloc, "FrameAlloc", errString(ret))
		}
		f.HasImgMem = true
	}
	f.Native = native
	syncFromNative(f)
	return nil
}

// FrameFree releases f's backend frame handle (and any image memory it
// owns) and clears f.Native. Calling FrameFree on a Frame with a zero
// Native is a no-op, so release paths don't need their own guard.
func FrameFree(f *avutil.Frame) {
	if f.Native == 0 {
		return
	}
	native := f.Native
	avFrameFree(&native)
	f.Native = 0
	f.HasImgMem = false
}

// FrameUnref drops f's reference to backend-owned plane data (if any)
// without freeing the frame handle itself, readying it for reuse by the
// next decode.
func FrameUnref(f *avutil.Frame) {
	if f.Native == 0 {
		return
	}
	avFrameUnref(f.Native)
}

// syncFromNative copies the backend frame's current geometry, timing, and
// plane pointers into f's public fields. Called after every decode,
// allocation, or scale that may have changed f.Native's contents.
func syncFromNative(f *avutil.Frame) {
	if f.Native == 0 {
		return
	}
	n := f.Native
	f.Width = int(readInt32(n, offWidth))
	f.Height = int(readInt32(n, offHeight))
	f.Format = avutil.PixelFormat(readInt32(n, offFormat))
	f.PTS = readInt64(n, offPts)
	f.PktDTS = readInt64(n, offPktDts)
	f.TimeBase = avutil.NewRational(readInt32(n, offTimeBase), readInt32(n, offTimeBase+4))
	for i := 0; i < avutil.MaxPlanes; i++ {
		f.Linesize[i] = readInt32(n, offLinesize+uintptr(i*4))
		f.Data[i] = *(*uintptr)(framePtr(n, offData+uintptr(i*8)))
	}
}

// syncToNative writes f's geometry, format, plane pointers, and PTS back
// onto the backend frame, the mirror image of syncFromNative. Used before
// handing a frame to the encoder so avcodec_send_frame sees the same
// width/height/format/data the caller set on f, and so the packet
// timestamps it emits match what the caller set.
func syncToNative(f *avutil.Frame) {
	if f.Native == 0 {
		return
	}
	n := f.Native
	writeInt32(n, offWidth, int32(f.Width))
	writeInt32(n, offHeight, int32(f.Height))
	writeInt32(n, offFormat, int32(f.Format))
	for i := 0; i < avutil.MaxPlanes; i++ {
		writeInt32(n, offLinesize+uintptr(i*4), f.Linesize[i])
		writeUintptr(n, offData+uintptr(i*8), f.Data[i])
	}
	writeInt64(n, offPts, f.PTS)
}
