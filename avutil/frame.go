/*
NAME
  frame.go

DESCRIPTION
  frame.go provides Frame, the decoded/encode-input frame object that flows
  through the free/ready queues and between the decoder, scaler, and
  encoder. Frame owns an optional backend-allocated image buffer and an
  optional backend frame handle; see backend.FrameAlloc / backend.FrameFree
  for the allocation lifecycle.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package avutil provides the data types shared across the pollux pipeline:
// rationals, the pixel format and codec ID maps, image descriptors, and the
// Frame object that circulates through the decoder and encoder queues.
package avutil

// MaxPlanes is the maximum number of planar data pointers a Frame carries.
const MaxPlanes = 8

// SlotState tunnels out-of-band signalling through the same ready queue
// that carries normal decoded frames. A pool slot is in exactly one of
// these states at a time.
type SlotState int

const (
	// SlotNone means the slot carries an ordinary decoded frame.
	SlotNone SlotState = iota
	// SlotEndOfURL signals that the demuxer has reached the end of the
	// current input and is waiting for a seek (or release).
	SlotEndOfURL
)

// Frame is a decoded, or encoder-input, video frame. It carries geometry
// and timing fields mirrored from the backend frame after each decode or
// scale operation, plus the bookkeeping needed to free backend-owned
// memory exactly once.
type Frame struct {
	Width, Height int
	Format        PixelFormat
	PTS, PktDTS   int64
	TimeBase      Rational

	// Linesize and Data mirror the backend frame's plane strides and data
	// pointers after an allocation, decode, or scale. Data holds raw
	// pointers into backend-owned memory when HasImgMem (or when borrowed
	// from the backend decoder/encoder); pollux code must never retain
	// these past the frame's next reuse.
	Linesize [MaxPlanes]int32
	Data     [MaxPlanes]uintptr

	// Native is the backend's own frame handle (e.g. an AVFrame*), opaque
	// to everything outside package backend.
	Native uintptr

	// HasImgMem is true iff this Frame owns backend-allocated plane memory
	// that must be released (via the backend's plane-free primitive) on
	// destruction.
	HasImgMem bool

	// State tunnels control signals (end-of-url) through the ready queue
	// alongside ordinary frames.
	State SlotState

	// Priv carries per-slot metadata private to whichever pipeline (decoder
	// or encoder) owns this frame; pollux itself never inspects it.
	Priv interface{}
}

// Reset clears the publicly-visible decode result fields of f, without
// touching Native/HasImgMem (ownership bookkeeping survives a reset).
func (f *Frame) Reset() {
	f.Width, f.Height = 0, 0
	f.Format = PixFmtNone
	f.PTS, f.PktDTS = 0, 0
	f.TimeBase = Rational{}
	f.Linesize = [MaxPlanes]int32{}
	f.Data = [MaxPlanes]uintptr{}
	f.State = SlotNone
}

// MatchesImage reports whether f's currently-decoded geometry and format
// match d, and f's width is a multiple of d's resolved row alignment. This
// is the test the decoder uses to decide whether to disable scaling: if it
// already matches, no image conversion is necessary.
func (f *Frame) MatchesImage(d ImageDescriptor) bool {
	return f.Width == d.Width && f.Height == d.Height && f.Format == d.Format &&
		f.Width%d.ResolvedAlign() == 0
}
