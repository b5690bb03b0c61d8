/*
NAME
  demux.go

DESCRIPTION
  demux.go implements Demuxer: open an input URL, locate its best video
  stream, open a matching decoder, and pull decoded frames one at a time.
  This is the backend half of the decoder package's producer thread.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package backend

import (
	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/perr"
)

var (
	avformatAllocContext   func() uintptr
	avformatOpenInput      func(*uintptr, string, uintptr, *uintptr) int32
	avformatCloseInput     func(*uintptr)
	avformatFindStreamInfo func(uintptr, uintptr) int32
	avFindBestStream       func(uintptr, int32, int32, int32, *uintptr, int32) int32
	avReadFrame            func(uintptr, uintptr) int32
	avSeekFrame            func(uintptr, int32, int64, int32) int32

	avcodecFindDecoder     func(int32) uintptr
	avcodecAllocContext3   func(uintptr) uintptr
	avcodecFreeContext     func(*uintptr)
	avcodecParametersToCtx func(uintptr, uintptr) int32
	avcodecOpen2           func(uintptr, uintptr, *uintptr) int32
	avcodecSendPacket      func(uintptr, uintptr) int32
	avcodecReceiveFrame    func(uintptr, uintptr) int32
	avcodecFlushBuffers    func(uintptr)
)

func registerAVFormat() {
	registerLibFunc(&avformatAllocContext, libavformat, "avformat_alloc_context")
	registerLibFunc(&avformatOpenInput, libavformat, "avformat_open_input")
	registerLibFunc(&avformatCloseInput, libavformat, "avformat_close_input")
	registerLibFunc(&avformatFindStreamInfo, libavformat, "avformat_find_stream_info")
	registerLibFunc(&avFindBestStream, libavformat, "av_find_best_stream")
	registerLibFunc(&avReadFrame, libavformat, "av_read_frame")
	registerLibFunc(&avSeekFrame, libavformat, "av_seek_frame")
	registerPacket()
	registerMuxer()
}

func registerAVCodec() {
	registerLibFunc(&avcodecFindDecoder, libavcodec, "avcodec_find_decoder")
	registerLibFunc(&avcodecAllocContext3, libavcodec, "avcodec_alloc_context3")
	registerLibFunc(&avcodecFreeContext, libavcodec, "avcodec_free_context")
	registerLibFunc(&avcodecParametersToCtx, libavcodec, "avcodec_parameters_to_context")
	registerLibFunc(&avcodecOpen2, libavcodec, "avcodec_open2")
	registerLibFunc(&avcodecSendPacket, libavcodec, "avcodec_send_packet")
	registerLibFunc(&avcodecReceiveFrame, libavcodec, "avcodec_receive_frame")
	registerLibFunc(&avcodecFlushBuffers, libavcodec, "avcodec_flush_buffers")
	registerEncoderSymbols()
}

const avMediaTypeVideo = 0
const errEAGAIN = -11
const errEOF = -541478725 // AVERROR_EOF

// Demuxer wraps an open input plus its selected video stream's decoder
// context. One Demuxer serves one decoder instance's producer thread.
type Demuxer struct {
	fmtCtx    uintptr
	codecCtx  uintptr
	streamIdx int32
	timeBase  avutil.Rational
	duration  int64
	pkt       *packet
}

// Open opens url (a file path, device, or protocol URL the backend
// understands) and locates its best video stream, per spec's
// decoder_open_stream. opts carries demuxer-level options (e.g. a forced
// input format); it may be nil.
func Open(url string, opts *Options) (*Demuxer, error) {
	if err := Load(); err != nil {
		return nil, perr.Wrap(perr.ResourceAlloc, "Open", err)
	}
	var fmtCtx uintptr
	dict := newDict(opts)
	ret := avformatOpenInput(&fmtCtx, url, 0, &dict)
	if dict != 0 {
		avDictFree(&dict)
	}
	if ret < 0 {
		return nil, perr.WrapBackend(perr.FileOpen, "Open", errString(ret))
	}
	if ret := avformatFindStreamInfo(fmtCtx, 0); ret < 0 {
		avformatCloseInput(&fmtCtx)
		return nil, perr.WrapBackend(perr.StreamEnd, "Open", errString(ret))
	}
	var decoder uintptr
	streamIdx := avFindBestStream(fmtCtx, avMediaTypeVideo, -1, -1, &decoder, 0)
	if streamIdx < 0 {
		avformatCloseInput(&fmtCtx)
		return nil, perr.WrapBackend(perr.Entry, "Open", "no video stream found")
	}
	codecCtx := avcodecAllocContext3(decoder)
	if codecCtx == 0 {
		avformatCloseInput(&fmtCtx)
		return nil, perr.New(perr.MemoryAlloc, "Open")
	}
	streamPtr := streamAt(fmtCtx, streamIdx)
	if ret := avcodecParametersToCtx(codecCtx, streamCodecpar(streamPtr)); ret < 0 {
		avcodecFreeContext(&codecCtx)
		avformatCloseInput(&fmtCtx)
		return nil, perr.WrapBackend(perr.InitRepeated, "Open", errString(ret))
	}
	if ret := avcodecOpen2(codecCtx, decoder, nil); ret < 0 {
		avcodecFreeContext(&codecCtx)
		avformatCloseInput(&fmtCtx)
		return nil, perr.WrapBackend(perr.InitRepeated, "Open", errString(ret))
	}
	// AVStream.duration is in stream time_base units and negative
	// (AV_NOPTS_VALUE) when unknown; it is kept in microseconds, 0 if unknown.
	timeBase := streamTimeBase(streamPtr)
	duration := streamDuration(streamPtr)
	if duration < 0 || timeBase.Den == 0 {
		duration = 0
	} else {
		duration = duration * int64(timeBase.Num) * 1_000_000 / int64(timeBase.Den)
	}
	return &Demuxer{
		fmtCtx:    fmtCtx,
		codecCtx:  codecCtx,
		streamIdx: streamIdx,
		timeBase:  timeBase,
		duration:  duration,
		pkt:       newPacket(),
	}, nil
}

// StreamInfo is the subset of stream metadata surfaced to decoder.StreamInfo.
type StreamInfo struct {
	Width, Height int
	CodecID       int32
	PixFmt        int32
	TimeBase      avutil.Rational
	BitRate       int64
	FrameRate     avutil.Rational
	GopSize       int32
	MaxBFrames    int32
	Profile       int32
	Level         int32
	Duration      int64
}

// Info reports the opened video stream's decode parameters.
func (d *Demuxer) Info() StreamInfo {
	return StreamInfo{
		Width:      int(codecCtxWidth(d.codecCtx)),
		Height:     int(codecCtxHeight(d.codecCtx)),
		CodecID:    codecCtxCodecID(d.codecCtx),
		PixFmt:     codecCtxPixFmt(d.codecCtx),
		TimeBase:   d.timeBase,
		BitRate:    codecCtxBitRate(d.codecCtx),
		FrameRate:  codecCtxFramerate(d.codecCtx),
		GopSize:    codecCtxGopSize(d.codecCtx),
		MaxBFrames: codecCtxMaxBFrames(d.codecCtx),
		Profile:    codecCtxProfile(d.codecCtx),
		Level:      codecCtxLevel(d.codecCtx),
		Duration:   d.duration,
	}
}

// NextFrame decodes the next video frame from the stream into f, draining
// the decoder's internal reorder buffer across however many input packets
// it takes. It returns perr.Kind StreamEnd (wrapped) once the input is
// exhausted and the decoder has flushed its last buffered frames.
func (d *Demuxer) NextFrame(f *avutil.Frame) error {
	if f.Native == 0 {
		if err := FrameAlloc(f, avutil.ImageDescriptor{}); err != nil {
			return err
		}
	}
	for {
		ret := avcodecReceiveFrame(d.codecCtx, f.Native)
		if ret == 0 {
			syncFromNative(f)
			return nil
		}
		if ret != errEAGAIN {
			if ret == errEOF {
				return perr.New(perr.StreamEnd, "NextFrame")
			}
			return perr.WrapBackend(perr.StreamFlush, "NextFrame", errString(ret))
		}
		if err := d.feedPacket(); err != nil {
			return err
		}
	}
}

// feedPacket reads one demuxed packet (skipping packets from streams
// other than the selected video stream) and sends it to the decoder. At
// end of input it sends a flush packet (nil) so the decoder starts
// draining its reorder buffer.
func (d *Demuxer) feedPacket() error {
	for {
		ret := avReadFrame(d.fmtCtx, d.pkt.native)
		if ret < 0 {
			if ret == errEOF {
				avcodecSendPacket(d.codecCtx, 0)
				return nil
			}
			return perr.WrapBackend(perr.StreamFlush, "feedPacket", errString(ret))
		}
		if d.pkt.streamIndex() != d.streamIdx {
			d.pkt.unref()
			continue
		}
		sret := avcodecSendPacket(d.codecCtx, d.pkt.native)
		d.pkt.unref()
		if sret < 0 && sret != errEAGAIN {
			return perr.WrapBackend(perr.StreamFlush, "feedPacket", errString(sret))
		}
		return nil
	}
}

// Seek repositions the demuxer to timestamp ts (in stream time_base units)
// and flushes the decoder's internal state, per spec's decoder_seek.
func (d *Demuxer) Seek(ts int64) error {
	const avseekFlagBackward = 1 << 0
	if ret := avSeekFrame(d.fmtCtx, d.streamIdx, ts, avseekFlagBackward); ret < 0 {
		return perr.WrapBackend(perr.FileRead, "Seek", errString(ret))
	}
	avcodecFlushBuffers(d.codecCtx)
	return nil
}

// Close releases the demuxer's codec context, packet, and input context.
func (d *Demuxer) Close() {
	if d.pkt != nil {
		d.pkt.free()
	}
	if d.codecCtx != 0 {
		avcodecFreeContext(&d.codecCtx)
	}
	if d.fmtCtx != 0 {
		avformatCloseInput(&d.fmtCtx)
	}
}
