/*
NAME
  muxenc.go

DESCRIPTION
  muxenc.go implements Encoder and Muxer: open an encoder for a chosen
  codec and parameter set, open an output container for it, and push
  frames through encode -> mux. This is the backend half of the encoder
  package's consumer thread.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package backend

import (
	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/perr"
)

var (
	avcodecFindEncoder   func(int32) uintptr
	avcodecFindEncoderByName func(string) uintptr
	avcodecSendFrame     func(uintptr, uintptr) int32
	avcodecReceivePacket func(uintptr, uintptr) int32

	avformatAllocOutputContext2 func(*uintptr, uintptr, string, string) int32
	avformatNewStream           func(uintptr, uintptr) uintptr
	avcodecParametersFromCtx    func(uintptr, uintptr) int32
	avioOpen                    func(*uintptr, string, int32) int32
	avioClosep                  func(*uintptr)
	avformatWriteHeader         func(uintptr, *uintptr) int32
	avInterleavedWriteFrame     func(uintptr, uintptr) int32
	avWriteTrailer              func(uintptr) int32
	avformatFreeContext         func(uintptr)
)

func registerEncoderSymbols() {
	registerLibFunc(&avcodecFindEncoder, libavcodec, "avcodec_find_encoder")
	registerLibFunc(&avcodecFindEncoderByName, libavcodec, "avcodec_find_encoder_by_name")
	registerLibFunc(&avcodecSendFrame, libavcodec, "avcodec_send_frame")
	registerLibFunc(&avcodecReceivePacket, libavcodec, "avcodec_receive_packet")
}

func registerMuxer() {
	registerLibFunc(&avformatAllocOutputContext2, libavformat, "avformat_alloc_output_context2")
	registerLibFunc(&avformatNewStream, libavformat, "avformat_new_stream")
	registerLibFunc(&avcodecParametersFromCtx, libavcodec, "avcodec_parameters_from_context")
	registerLibFunc(&avioOpen, libavformat, "avio_open")
	registerLibFunc(&avioClosep, libavformat, "avio_closep")
	registerLibFunc(&avformatWriteHeader, libavformat, "avformat_write_header")
	registerLibFunc(&avInterleavedWriteFrame, libavformat, "av_interleaved_write_frame")
	registerLibFunc(&avWriteTrailer, libavformat, "av_write_trailer")
	registerLibFunc(&avformatFreeContext, libavformat, "avformat_free_context")
}

const avfmtGlobalheader = 0x0040 // AVFMT_GLOBALHEADER, set on oc.oformat.flags
const avfmtNofile = 0x0001       // AVFMT_NOFILE

// EncoderParams is the backend-facing encode parameter set a codec
// mapper (codec/hevc, codec/av1) produces from the library's speed,
// quality, rate-control, tune, GOP, and advanced-option inputs.
type EncoderParams struct {
	CodecID          int32
	Width, Height    int
	PixFmt           int32
	TimeBase         avutil.Rational
	Framerate        avutil.Rational
	BitRate          int64
	GopSize          int32
	MaxBFrames       int32
	PrivOptions      *Options // e.g. preset/crf/tune for x265/SVT-AV1
}

// Encoder wraps a backend encoder context, from allocation through open.
type Encoder struct {
	codecCtx uintptr
	codec    uintptr
	params   EncoderParams
	opened   bool
}

// NewEncoderContext finds a backend encoder for p.CodecID and allocates
// (but does not open) its context with p's fields populated, per spec's
// encoder_ctx_alloc. The codec isn't opened until Open is called, giving
// the caller a chance to set codec-private options (codec_priv_set) in
// between, exactly as the global-header flag must be mirrored before
// open.
func NewEncoderContext(p EncoderParams, globalHeader bool) (*Encoder, error) {
	if err := Load(); err != nil {
		return nil, perr.Wrap(perr.ResourceAlloc, "NewEncoderContext", err)
	}
	codec := avcodecFindEncoder(p.CodecID)
	if codec == 0 {
		return nil, perr.New(perr.Entry, "NewEncoderContext")
	}
	ctx := avcodecAllocContext3(codec)
	if ctx == 0 {
		return nil, perr.New(perr.MemoryAlloc, "NewEncoderContext")
	}
	codecCtxSetWidth(ctx, int32(p.Width))
	codecCtxSetHeight(ctx, int32(p.Height))
	codecCtxSetPixFmt(ctx, p.PixFmt)
	codecCtxSetTimeBase(ctx, p.TimeBase.Num, p.TimeBase.Den)
	codecCtxSetFramerate(ctx, p.Framerate.Num, p.Framerate.Den)
	codecCtxSetBitRate(ctx, p.BitRate)
	if p.GopSize > 0 {
		codecCtxSetGopSize(ctx, p.GopSize)
	}
	codecCtxSetMaxBFrames(ctx, p.MaxBFrames)
	if globalHeader {
		setCodecFlagsGlobalHeader(ctx)
	}
	return &Encoder{codecCtx: ctx, codec: codec, params: p}, nil
}

// Open opens e's codec context with the merged PrivOptions (from e's
// params plus any codec_priv_set additions the caller folded into opts),
// per spec's encoder_open.
func (e *Encoder) Open(opts *Options) error {
	dict := newDict(opts)
	ret := avcodecOpen2(e.codecCtx, e.codec, &dict)
	if dict != 0 {
		avDictFree(&dict)
	}
	if ret < 0 {
		return perr.WrapBackend(perr.InitRepeated, "Open", errString(ret))
	}
	e.opened = true
	return nil
}

// AVCodecContext.flags field offset and the AV_CODEC_FLAG_GLOBAL_HEADER
// bit, set when the output format requires extradata mirrored into the
// bitstream-less container header.
const (
	offCtxFlags               = auCtxBase - 4
	codecFlagGlobalHeader int32 = 1 << 22
)

func setCodecFlagsGlobalHeader(ctx uintptr) {
	cur := readInt32(ctx, offCtxFlags)
	writeInt32(ctx, offCtxFlags, cur|codecFlagGlobalHeader)
}

// SendFrame submits f for encoding. Returns the errAgain sentinel (detected
// via IsAgain) when the encoder's internal queue is full and the caller must
// drain packets (Muxer.WritePacket) before retrying.
func (e *Encoder) SendFrame(f *avutil.Frame) error {
	syncToNative(f)
	ret := avcodecSendFrame(e.codecCtx, f.Native)
	if ret == 0 {
		return nil
	}
	if ret == errEAGAIN {
		return errAgain
	}
	return perr.WrapBackend(perr.StreamFlush, "SendFrame", errString(ret))
}

// Flush signals end of stream to the encoder so buffered frames drain on
// subsequent ReceivePacket calls. Per spec, a caller seeing the retryable
// errAgain sentinel (IsAgain) must call Flush again until it succeeds,
// the same backoff SendFrame requires.
func (e *Encoder) Flush() error {
	ret := avcodecSendFrame(e.codecCtx, 0)
	if ret == 0 {
		return nil
	}
	if ret == errEAGAIN {
		return errAgain
	}
	return perr.WrapBackend(perr.StreamFlush, "Flush", errString(ret))
}

// errAgainType is a sentinel distinguishing "try again after receiving
// packets" from a hard backend failure.
type errAgainType struct{}

func (errAgainType) Error() string { return "encoder input queue full, drain packets first" }

var errAgain error = errAgainType{}

// IsAgain reports whether err is the EAGAIN sentinel SendFrame returns
// when the encoder's internal buffer is full.
func IsAgain(err error) bool {
	_, ok := err.(errAgainType)
	return ok
}

// Close releases the encoder's codec context.
func (e *Encoder) Close() {
	if e.codecCtx != 0 {
		avcodecFreeContext(&e.codecCtx)
	}
}

// Muxer wraps an output container: its format context, I/O (when not a
// no-file protocol), and exactly one video stream.
type Muxer struct {
	fmtCtx  uintptr
	avioCtx uintptr
	stream  uintptr
	pkt     *packet
	noFile  bool
}

// AVOutputFormat.flags offset (read through AVFormatContext.oformat) and
// the AVFMT_NOFILE bit identifying protocols (RTMP, SRT, ...) that own
// their own I/O and must not go through avio_open.
const offFmtCtxOformat = 88

func oformatFlags(fmtCtx uintptr) int32 {
	oformat := *(*uintptr)(framePtr(fmtCtx, offFmtCtxOformat))
	if oformat == 0 {
		return 0
	}
	return readInt32(oformat, offOformatFlags)
}

const offOformatFlags = 40

// Init allocates an output context for url, guessing the container from
// url's extension when containerName is empty, per spec's encoder_init.
// If the chosen format does not carry the no-file flag, it opens the I/O
// context in write mode immediately; no-file formats (RTMP, SRT, ...)
// defer connection to WriteHeader.
func Init(url, containerName string) (*Muxer, error) {
	if err := Load(); err != nil {
		return nil, perr.Wrap(perr.ResourceAlloc, "Init", err)
	}
	var fmtCtx uintptr
	ret := avformatAllocOutputContext2(&fmtCtx, 0, containerName, url)
	if ret < 0 || fmtCtx == 0 {
		return nil, perr.WrapBackend(perr.FileOpen, "Init", errString(ret))
	}
	m := &Muxer{fmtCtx: fmtCtx, pkt: newPacket()}
	m.noFile = oformatFlags(fmtCtx)&avfmtNofile != 0
	if !m.noFile {
		if ret := avioOpen(&m.avioCtx, url, 2 /* AVIO_FLAG_WRITE */); ret < 0 {
			avformatFreeContext(fmtCtx)
			return nil, perr.WrapBackend(perr.FileOpen, "Init", errString(ret))
		}
		setFmtCtxPb(fmtCtx, m.avioCtx)
	}
	return m, nil
}

// GlobalHeaderRequired reports whether m's chosen output format requires
// the encoder to carry its extradata as a global header rather than
// in-band with every keyframe.
func (m *Muxer) GlobalHeaderRequired() bool {
	return oformatFlags(m.fmtCtx)&avfmtGlobalheader != 0
}

// NewStream creates m's single video stream, per spec's "create stream
// on the muxer" step of encoder_ctx_alloc.
func (m *Muxer) NewStream() error {
	stream := avformatNewStream(m.fmtCtx, 0)
	if stream == 0 {
		return perr.New(perr.MemoryAlloc, "NewStream")
	}
	m.stream = stream
	return nil
}

// BindEncoder copies enc's (already-opened) codec parameters onto m's
// stream and mirrors the encoder's time-base onto it, per spec's
// encoder_open "copy codec parameters back to the stream; set stream
// time-base to encoder time-base".
func (m *Muxer) BindEncoder(enc *Encoder) error {
	if ret := avcodecParametersFromCtx(streamCodecpar(m.stream), enc.codecCtx); ret < 0 {
		return perr.WrapBackend(perr.InitRepeated, "BindEncoder", errString(ret))
	}
	writeInt32(m.stream, offStreamTimeBase, enc.params.TimeBase.Num)
	writeInt32(m.stream, offStreamTimeBase+4, enc.params.TimeBase.Den)
	return nil
}

// WriteHeader writes the container header, establishing the connection
// for no-file output protocols that deferred it in Init.
func (m *Muxer) WriteHeader() error {
	if ret := avformatWriteHeader(m.fmtCtx, nil); ret < 0 {
		return perr.WrapBackend(perr.FileWrite, "WriteHeader", errString(ret))
	}
	return nil
}

// WritePacket drains enc's encoded packets and interleaves each into m's
// output. It returns once the encoder reports EAGAIN (no packet ready
// yet, eof is false) or EOF (the encoder has been flushed and has
// nothing further to give, eof is true), or on a hard error.
func (m *Muxer) WritePacket(enc *Encoder) (eof bool, err error) {
	for {
		ret := avcodecReceivePacket(enc.codecCtx, m.pkt.native)
		if ret == errEAGAIN {
			return false, nil
		}
		if ret == errEOF {
			return true, nil
		}
		if ret < 0 {
			return false, perr.WrapBackend(perr.StreamFlush, "WritePacket", errString(ret))
		}
		m.pkt.setStreamIndex(0)
		if wret := avInterleavedWriteFrame(m.fmtCtx, m.pkt.native); wret < 0 {
			m.pkt.unref()
			return false, perr.WrapBackend(perr.FileWrite, "WritePacket", errString(wret))
		}
	}
}

// Close writes the container trailer and releases the muxer's resources.
func (m *Muxer) Close() error {
	ret := avWriteTrailer(m.fmtCtx)
	m.pkt.free()
	if !m.noFile && m.avioCtx != 0 {
		avioClosep(&m.avioCtx)
	}
	avformatFreeContext(m.fmtCtx)
	if ret < 0 {
		return perr.WrapBackend(perr.FileWrite, "Close", errString(ret))
	}
	return nil
}

// AVFormatContext.pb (AVIOContext*) offset.
const offFmtCtxPb = 104

func setFmtCtxPb(fmtCtx, avioCtx uintptr) {
	writeUintptr(fmtCtx, offFmtCtxPb, avioCtx)
}
