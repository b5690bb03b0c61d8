/*
NAME
  decoder.go

DESCRIPTION
  decoder implements the Decoder core: param_set/release lifecycle, the
  producer thread draining the backend demuxer into a bounded frame pool,
  seek coordination via a condition variable, and the result_get/
  result_free foreground API.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decoder implements the pollux Decoder: ingest a URL, produce
// decoded frames in a chosen pixel format, buffer them in a bounded
// cache, and support seeking.
package decoder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/backend"
	"github.com/ausocean/pollux/framequeue"
	"github.com/ausocean/pollux/perr"
	"github.com/ausocean/pollux/pollog"
)

// Args configures a Decoder's param_set call.
type Args struct {
	// CacheCount is the number of pool slots to allocate, clamped into
	// [1,1024]; the zero value defaults to 1.
	CacheCount uint16
	// ThreadCount is not passed to the backend: ParamSet ignores it, and
	// the decoder context keeps the backend's default thread count.
	ThreadCount int
	// FmtCvtImg, if non-nil, requests that decoded frames be delivered in
	// this image shape; if nil, frames are delivered in the stream's
	// native geometry and pixel format with no scaling.
	FmtCvtImg *avutil.ImageDescriptor
}

// StreamInfo is the decode parameter set published after a successful
// ParamSet.
type StreamInfo struct {
	Width, Height int
	BitRate       int64
	FrameRate     avutil.Rational
	MaxBFrames    int
	GopSize       int
	PixFmt        avutil.PixelFormat
	CodecID       avutil.CodecID
	Profile       int
	Level         int
	Duration      int64 // microseconds, 0 if unknown
}

type decoderState int

const (
	stateInit decoderState = iota
	stateRunning
	stateSeekWait
	stateExiting
)

// Decoder is a handle to one decode pipeline: a producer goroutine that
// drains the backend demuxer into a bounded frame pool, and the
// result_get/result_free/seek_file/release foreground operations.
//
// A Decoder must not be used concurrently from multiple goroutines except
// for Release, which is safe to call at any time and is idempotent.
type Decoder struct {
	log pollog.Logger

	mu    sync.Mutex // guards the fields below, set up by ParamSet and torn down by teardown
	demux *backend.Demuxer
	pool  *framequeue.Pool
	scaler *backend.Scaler
	scaleEnabled bool
	scratch avutil.Frame
	targetDesc avutil.ImageDescriptor
	info  StreamInfo

	seekMu   sync.Mutex
	seekCond *sync.Cond
	state    decoderState

	paramSetFlag atomic.Bool
	isRunning    atomic.Bool
	exitFlag     atomic.Bool

	wg sync.WaitGroup
}

// New returns a Decoder that logs through log. Pass pollog.Noop() if no
// logging is wanted.
func New(log pollog.Logger) *Decoder {
	d := &Decoder{log: log}
	d.seekCond = sync.NewCond(&d.seekMu)
	return d
}

// Info returns the stream info published by the most recent successful
// ParamSet.
func (d *Decoder) Info() StreamInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info
}

// ParamSet opens url and starts the producer thread. If the Decoder was
// already configured, it is torn down first (teardown is not optional:
// spec requires a fresh param_set to fully replace the previous one).
func (d *Decoder) ParamSet(url string, args Args) error {
	if d.paramSetFlag.Load() {
		d.teardown()
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	demux, err := backend.Open(url, nil)
	if err != nil {
		return err
	}
	info := demux.Info()

	desc, scaleEnabled, err := sanitizeTarget(args.FmtCvtImg, info)
	if err != nil {
		demux.Close()
		return err
	}

	var scaler *backend.Scaler
	if scaleEnabled {
		srcDesc := avutil.ImageDescriptor{Width: info.Width, Height: info.Height, Format: avutil.PixelFormat(info.PixFmt)}
		scaler, err = backend.NewScaler(srcDesc, desc)
		if err != nil {
			demux.Close()
			return err
		}
	}

	n := framequeue.Clamp(int(args.CacheCount))
	allocDesc := avutil.ImageDescriptor{}
	if scaleEnabled {
		allocDesc = desc
	}
	pool, err := framequeue.NewPool(n,
		func() (*avutil.Frame, error) {
			f := &avutil.Frame{}
			if err := backend.FrameAlloc(f, allocDesc); err != nil {
				return nil, err
			}
			return f, nil
		},
		backend.FrameFree,
	)
	if err != nil {
		if scaler != nil {
			scaler.Close()
		}
		demux.Close()
		return err
	}

	if scaleEnabled {
		if err := backend.FrameAlloc(&d.scratch, avutil.ImageDescriptor{}); err != nil {
			pool.Close()
			scaler.Close()
			demux.Close()
			return err
		}
	}

	d.demux = demux
	d.pool = pool
	d.scaler = scaler
	d.scaleEnabled = scaleEnabled
	d.targetDesc = desc
	d.info = toStreamInfo(info, d.log)
	d.exitFlag.Store(false)
	d.state = stateRunning

	d.wg.Add(1)
	d.isRunning.Store(true)
	go d.runProducer()

	d.paramSetFlag.Store(true)
	return nil
}

// sanitizeTarget resolves the caller's requested image descriptor against
// the stream's native geometry, falling back to native values for an
// invalid pixel format, width, or height, and the CPU-driven default for
// an invalid alignment. It returns the resolved descriptor and whether
// scaling is required to reach it.
func sanitizeTarget(req *avutil.ImageDescriptor, info backend.StreamInfo) (avutil.ImageDescriptor, bool, error) {
	native := avutil.ImageDescriptor{Width: info.Width, Height: info.Height, Format: avutil.PixelFormat(info.PixFmt)}
	if req == nil {
		return native, false, nil
	}
	desc := *req
	if desc.Format == avutil.PixFmtNone {
		desc.Format = native.Format
	}
	if desc.Width <= 0 {
		desc.Width = native.Width
	}
	if desc.Height <= 0 {
		desc.Height = native.Height
	}
	if !desc.Valid() {
		return avutil.ImageDescriptor{}, false, perr.New(perr.Args, "ParamSet")
	}
	var scratch avutil.Frame
	scratch.Width, scratch.Height, scratch.Format = native.Width, native.Height, native.Format
	if scratch.MatchesImage(desc) {
		return desc, false, nil
	}
	return desc, true, nil
}

func toStreamInfo(info backend.StreamInfo, log pollog.Logger) StreamInfo {
	codecID, _ := avutil.CodecIDFromBackend(info.CodecID, log)
	pixFmt, _ := avutil.PixelFormatFromBackend(info.PixFmt, log)
	return StreamInfo{
		Width: info.Width, Height: info.Height,
		BitRate: info.BitRate, FrameRate: info.FrameRate,
		MaxBFrames: int(info.MaxBFrames), GopSize: int(info.GopSize),
		PixFmt: pixFmt, CodecID: codecID,
		Profile: int(info.Profile), Level: int(info.Level),
		Duration: info.Duration,
	}
}

// ResultGet blocks up to timeout for the next decoded frame. timeout==0
// polls without blocking; timeout<0 blocks indefinitely. It returns
// perr.Kind Timeout if no frame arrived within timeout and the worker is
// still running, perr.Kind NotInit if the worker is not running, or
// perr.Kind StreamEnd at each end-of-url sentinel (the caller must still
// call ResultFree... no: StreamEnd slots are recycled automatically and
// carry no frame for the caller to free).
func (d *Decoder) ResultGet(timeout time.Duration) (*avutil.Frame, error) {
	d.mu.Lock()
	pool := d.pool
	d.mu.Unlock()
	if pool == nil {
		return nil, perr.New(perr.NotInit, "ResultGet")
	}
	slot, ok := pool.Ready.Get(timeout)
	if !ok {
		if d.isRunning.Load() {
			return nil, perr.New(perr.Timeout, "ResultGet")
		}
		return nil, perr.New(perr.NotInit, "ResultGet")
	}
	if slot.Frame.State == avutil.SlotEndOfURL {
		slot.Frame.State = avutil.SlotNone
		pool.Free.Put(slot)
		return nil, perr.New(perr.StreamEnd, "ResultGet")
	}
	return slot.Frame, nil
}

// ResultFree returns a frame obtained from ResultGet to the free queue.
func (d *Decoder) ResultFree(f *avutil.Frame) error {
	d.mu.Lock()
	pool := d.pool
	d.mu.Unlock()
	if pool == nil {
		return perr.New(perr.NotInit, "ResultFree")
	}
	for _, s := range pool.Slots {
		if s.Frame == f {
			pool.Free.Put(s)
			return nil
		}
	}
	return perr.New(perr.Args, "ResultFree")
}

// SeekFile performs a backward seek to ts (demuxer time-base units) and
// wakes the producer out of seek-wait. minTS/maxTS are accepted for
// interface compatibility with the backend's ranged-seek primitive but
// are not independently enforced beyond what the backend's seek call
// does.
func (d *Decoder) SeekFile(minTS, ts, maxTS int64) error {
	d.mu.Lock()
	demux := d.demux
	d.mu.Unlock()
	if demux == nil {
		return perr.New(perr.NotInit, "SeekFile")
	}
	if err := demux.Seek(ts); err != nil {
		d.exitFlag.Store(true)
		return err
	}
	d.seekMu.Lock()
	d.state = stateRunning
	d.seekCond.Signal()
	d.seekMu.Unlock()
	return nil
}

// Release stops the producer thread and frees every resource acquired by
// ParamSet. It is idempotent and safe to call while the producer is
// running or after a previous Release.
func (d *Decoder) Release() error {
	d.teardown()
	return nil
}

func (d *Decoder) teardown() {
	if !d.paramSetFlag.Load() {
		return
	}
	d.exitFlag.Store(true)

	const retries = 20
	const retryDelay = 200 * time.Millisecond
	for i := 0; i < retries; i++ {
		d.seekMu.Lock()
		d.seekCond.Broadcast()
		d.seekMu.Unlock()
		if !d.isRunning.Load() {
			break
		}
		time.Sleep(retryDelay)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool != nil {
		d.pool.Close()
	}
	d.wg.Wait()

	if d.pool != nil {
		for _, s := range d.pool.Slots {
			backend.FrameFree(s.Frame)
		}
		d.pool = nil
	}
	if d.scaleEnabled {
		backend.FrameFree(&d.scratch)
	}
	if d.scaler != nil {
		d.scaler.Close()
		d.scaler = nil
	}
	if d.demux != nil {
		d.demux.Close()
		d.demux = nil
	}
	d.scaleEnabled = false
	d.info = StreamInfo{}
	d.paramSetFlag.Store(false)
}
