/*
NAME
  encoder.go

DESCRIPTION
  encoder implements the Encoder core: param_set/codec_priv_set/start/
  send_frame/stop/release, and the consumer thread draining encoded
  packets into the muxer while the foreground feeds raw frames.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package encoder implements the pollux Encoder: accept raw frames,
// packetize them via a chosen codec into a chosen container, and write
// to a destination URL.
package encoder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/backend"
	"github.com/ausocean/pollux/codec/av1"
	"github.com/ausocean/pollux/codec/hevc"
	"github.com/ausocean/pollux/perr"
	"github.com/ausocean/pollux/pollog"
)

// Args configures an Encoder's param_set call.
type Args struct {
	ContainerFmt avutil.ContainerFormat
	BitRate      int64 // bits per second
	Img          avutil.ImageDescriptor // Align is ignored
	FrameRate    avutil.Rational
	GopSize      int
	MaxBFrames   int
	ThreadCount  int
	CodecID      avutil.CodecID

	// PaceToFrameRate is an opt-in caller policy reviving the source's
	// dropped wall-clock pacing mechanism: when true, SendFrame sleeps in
	// the foreground to keep roughly one call per frame interval. It is
	// never applied inside the consumer thread.
	PaceToFrameRate bool
}

// Encoder is a handle to one encode pipeline: a consumer goroutine that
// drains encoded packets into the muxer while the foreground feeds raw
// frames via SendFrame.
//
// An Encoder must not be used concurrently from multiple goroutines
// except for Release, which is safe to call at any time and is
// idempotent.
type Encoder struct {
	log pollog.Logger

	ctxMu sync.Mutex // guards muxer/enc; acquisition order is always ctxMu first, released before sendMu.Wait
	muxer *backend.Muxer
	enc   *backend.Encoder

	reusable avutil.Frame
	args     Args
	opts     *backend.Options

	sendMu   sync.Mutex
	sendCond *sync.Cond

	paramSetFlag atomic.Bool
	isRunning    atomic.Bool
	exitFlag     atomic.Bool
	encoderEOF   atomic.Bool

	frameIndex int64
	basePTS    int64
	frameDur   time.Duration // PaceToFrameRate sleep interval, 1/frame_rate

	wg sync.WaitGroup
}

// New returns an Encoder that logs through log. Pass pollog.Noop() if no
// logging is wanted.
func New(log pollog.Logger) *Encoder {
	e := &Encoder{log: log}
	e.sendCond = sync.NewCond(&e.sendMu)
	return e
}

// ParamSet opens the muxer and allocates the encoder context for url and
// args, per spec's encoder param_set. If the Encoder was already
// configured, it is torn down first.
func (e *Encoder) ParamSet(url string, args Args) error {
	if e.paramSetFlag.Load() {
		e.teardown()
	}
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()

	muxer, err := backend.Init(url, args.ContainerFmt.Name())
	if err != nil {
		return err
	}

	backendCodecID, ok := avutil.CodecIDToBackend(args.CodecID, e.log)
	if !ok {
		muxer.Close()
		return perr.New(perr.Args, "ParamSet")
	}
	backendPixFmt, ok := avutil.PixelFormatToBackend(args.Img.Format, e.log)
	if !ok {
		muxer.Close()
		return perr.New(perr.Args, "ParamSet")
	}

	timeBase := avutil.NewRational(1, args.FrameRate.Num)
	encParams := backend.EncoderParams{
		CodecID:    backendCodecID,
		Width:      args.Img.Width,
		Height:     args.Img.Height,
		PixFmt:     backendPixFmt,
		TimeBase:   timeBase,
		Framerate:  args.FrameRate,
		BitRate:    args.BitRate,
		GopSize:    int32(args.GopSize),
		MaxBFrames: int32(args.MaxBFrames),
	}

	if err := muxer.NewStream(); err != nil {
		muxer.Close()
		return err
	}
	enc, err := backend.NewEncoderContext(encParams, muxer.GlobalHeaderRequired())
	if err != nil {
		muxer.Close()
		return err
	}

	if err := backend.FrameAlloc(&e.reusable, args.Img); err != nil {
		enc.Close()
		muxer.Close()
		return err
	}

	e.muxer = muxer
	e.enc = enc
	e.args = args
	e.opts = backend.NewOptions()
	if args.FrameRate.Num > 0 {
		e.frameDur = time.Second * time.Duration(args.FrameRate.Den) / time.Duration(args.FrameRate.Num)
	}
	e.exitFlag.Store(false)
	e.encoderEOF.Store(false)
	e.frameIndex = 0

	e.paramSetFlag.Store(true)
	return nil
}

// CodecPrivSet validates codecID against the configured codec and, on
// match, dispatches hevcArgs/av1Args (whichever is non-nil and matches)
// to its mapper, writing the resolved options for Start to apply. It
// must be called after ParamSet and before Start.
func (e *Encoder) CodecPrivSet(codecID avutil.CodecID, hevcArgs *hevc.Args, av1Args *av1.Args) error {
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()
	if !e.paramSetFlag.Load() {
		return perr.New(perr.NotInit, "CodecPrivSet")
	}
	if codecID != e.args.CodecID {
		return perr.New(perr.Args, "CodecPrivSet")
	}
	switch codecID {
	case avutil.CodecIDHEVC:
		if hevcArgs == nil {
			return perr.New(perr.Args, "CodecPrivSet")
		}
		hevc.Apply(*hevcArgs, e.opts, e.log)
	case avutil.CodecIDAV1:
		if av1Args == nil {
			return perr.New(perr.Args, "CodecPrivSet")
		}
		av1.Apply(*av1Args, e.opts, e.log)
	default:
		return perr.New(perr.Args, "CodecPrivSet")
	}
	return nil
}

// Start opens the encoder, writes the container header, synthesizes the
// pts base, and starts the consumer thread.
func (e *Encoder) Start() error {
	e.ctxMu.Lock()
	if !e.paramSetFlag.Load() {
		e.ctxMu.Unlock()
		return perr.New(perr.NotInit, "Start")
	}
	if err := e.enc.Open(e.opts); err != nil {
		e.ctxMu.Unlock()
		return err
	}
	if err := e.muxer.BindEncoder(e.enc); err != nil {
		e.ctxMu.Unlock()
		return err
	}
	if err := e.muxer.WriteHeader(); err != nil {
		e.ctxMu.Unlock()
		return err
	}
	e.basePTS = basePTS(e.args.FrameRate)
	e.ctxMu.Unlock()

	e.isRunning.Store(true)
	e.wg.Add(1)
	go e.runConsumer()
	return nil
}

// basePTS computes the per-frame pts increment from the stream's
// nominal frame rate, per spec's "base_pts = time_base.den/time_base.num
// / codec.framerate.num * codec.framerate.den" with time_base set to
// 1/frame_rate.num by ParamSet (so time_base.den/time_base.num ==
// frame_rate.num), which reduces to frame_rate.den.
func basePTS(frameRate avutil.Rational) int64 {
	if frameRate.Num == 0 {
		return 0
	}
	return int64(frameRate.Den)
}

// sendFrameTimeout bounds how long SendFrame waits on the consumer to
// drain the encoder's queue before giving up with a retryable error.
const sendFrameTimeout = 2 * time.Second

// SendFrame copies src into the Encoder's reusable backend frame,
// synthesizes its pts from the frame counter and base_pts, and feeds it
// to the encoder, bouncing off the consumer's condition variable while
// the encoder reports EAGAIN.
func (e *Encoder) SendFrame(src *avutil.Frame) error {
	if !e.paramSetFlag.Load() || !e.isRunning.Load() {
		return perr.New(perr.NotInit, "SendFrame")
	}
	if src.Width != e.args.Img.Width || src.Height != e.args.Img.Height || src.Format != e.args.Img.Format {
		return perr.New(perr.Args, "SendFrame")
	}

	e.reusable.Width = src.Width
	e.reusable.Height = src.Height
	e.reusable.Format = src.Format
	e.reusable.Linesize = src.Linesize
	e.reusable.Data = src.Data
	e.reusable.PTS = e.frameIndex * e.basePTS
	e.reusable.TimeBase = avutil.NewRational(1, e.args.FrameRate.Num)

	deadline := time.Now().Add(sendFrameTimeout)
	for {
		e.ctxMu.Lock()
		err := e.enc.SendFrame(&e.reusable)
		e.ctxMu.Unlock()

		if err == nil {
			e.frameIndex++
			if e.args.PaceToFrameRate && e.frameDur > 0 {
				time.Sleep(e.frameDur)
			}
			return nil
		}
		if !backend.IsAgain(err) {
			return err
		}

		e.sendMu.Lock()
		if time.Now().After(deadline) {
			e.sendMu.Unlock()
			return perr.New(perr.StreamFlush, "SendFrame")
		}
		e.sendCond.Wait()
		e.sendMu.Unlock()

		if e.exitFlag.Load() || !e.isRunning.Load() {
			return perr.New(perr.StreamFlush, "SendFrame")
		}
	}
}

// Stop flushes the encoder, waits for the consumer to drain and observe
// end-of-stream, writes the container trailer, and joins the consumer
// thread. It does not release the encoder's resources; call Release for
// that.
func (e *Encoder) Stop() error {
	if !e.paramSetFlag.Load() {
		return perr.New(perr.NotInit, "Stop")
	}

	deadline := time.Now().Add(sendFrameTimeout)
	var err error
	for {
		e.ctxMu.Lock()
		err = e.enc.Flush()
		e.ctxMu.Unlock()

		if err == nil || !backend.IsAgain(err) {
			break
		}

		e.sendMu.Lock()
		if time.Now().After(deadline) {
			e.sendMu.Unlock()
			break
		}
		e.sendCond.Wait()
		e.sendMu.Unlock()

		if e.exitFlag.Load() || !e.isRunning.Load() {
			break
		}
	}
	if err != nil {
		e.exitFlag.Store(true)
	}

	for !e.encoderEOF.Load() && e.isRunning.Load() {
		time.Sleep(2 * time.Millisecond)
	}
	e.exitFlag.Store(true)
	e.wg.Wait()

	e.ctxMu.Lock()
	closeErr := e.muxer.Close()
	e.muxer = nil
	e.ctxMu.Unlock()

	if err != nil {
		return err
	}
	return closeErr
}

// Release idempotently tears down the Encoder, freeing the encoder
// context, the reusable frame, and the muxer if still open.
func (e *Encoder) Release() error {
	e.teardown()
	return nil
}

func (e *Encoder) teardown() {
	if !e.paramSetFlag.Load() {
		return
	}
	e.exitFlag.Store(true)
	for e.isRunning.Load() {
		e.wakeSender()
		time.Sleep(2 * time.Millisecond)
	}
	e.wg.Wait()

	if e.enc != nil {
		e.enc.Close()
		e.enc = nil
	}
	if e.muxer != nil {
		e.muxer.Close()
		e.muxer = nil
	}
	if e.reusable.Native != 0 {
		backend.FrameFree(&e.reusable)
	}
	e.paramSetFlag.Store(false)
}
