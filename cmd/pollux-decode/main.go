/*
NAME
  pollux-decode

DESCRIPTION
  pollux-decode is a CLI harness exercising the Decoder: open a media
  file or stream URL, decode frames (optionally converting pixel format
  and scaling), and report throughput, or optionally dump raw frame
  data to a file.

AUTHORS
  pollux contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pollux-decode drives the decoder package from the command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"
	"unsafe"

	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/decoder"
	"github.com/ausocean/pollux/perr"
	"github.com/ausocean/pollux/pollog"
)

// Logging configuration, mirroring the rotating-file convention pollux's
// other CLI harnesses use.
const (
	logPath      = "pollux-decode.log"
	logMaxSizeMB = 100
	logMaxBackup = 5
	logMaxAgeDays = 28
)

func main() {
	url := flag.String("url", "", "input media URL or file path")
	width := flag.Int("width", 0, "target width; 0 keeps the source width")
	height := flag.Int("height", 0, "target height; 0 keeps the source height")
	pixFmt := flag.String("pixfmt", "", "target pixel format (yuv420p, rgb24, bgr24, ...); empty keeps the source format")
	outPath := flag.String("out", "", "dump raw decoded frame bytes to this path; empty discards frames")
	cacheCount := flag.Uint("cache", 8, "decoder frame pool size")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "pollux-decode: -url is required")
		os.Exit(2)
	}

	level := pollog.Info
	if *verbose {
		level = pollog.Debug
	}
	log := pollog.New(level, pollog.Config{
		Path:       logPath,
		MaxSizeMB:  logMaxSizeMB,
		MaxBackups: logMaxBackup,
		MaxAgeDays: logMaxAgeDays,
	})
	defer log.Sync()

	var out *os.File
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Error("failed to create output file", "path", *outPath, "error", err.Error())
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	var fmtCvt *avutil.ImageDescriptor
	if *width > 0 || *height > 0 || *pixFmt != "" {
		fmtCvt = &avutil.ImageDescriptor{Width: *width, Height: *height, Format: parsePixFmt(*pixFmt)}
	}

	dec := decoder.New(log)
	args := decoder.Args{CacheCount: uint16(*cacheCount), FmtCvtImg: fmtCvt}
	if err := dec.ParamSet(*url, args); err != nil {
		log.Error("param_set failed", "error", err.Error())
		os.Exit(1)
	}
	defer dec.Release()

	info := dec.Info()
	log.Info("stream opened", "width", info.Width, "height", info.Height,
		"codec", info.CodecID.String(), "pix_fmt", info.PixFmt.String())

	var frames, bytes int64
	start := time.Now()
	for {
		f, err := dec.ResultGet(2 * time.Second)
		if err != nil {
			if perr.Is(err, perr.StreamEnd) {
				log.Info("end of stream reached")
				break
			}
			if perr.Is(err, perr.Timeout) {
				log.Warning("decode timed out waiting for a frame")
				continue
			}
			log.Error("result_get failed", "error", err.Error())
			break
		}

		frames++
		if out != nil {
			n, err := writeFrame(out, f)
			if err != nil {
				log.Error("failed writing frame", "error", err.Error())
				dec.ResultFree(f)
				break
			}
			bytes += int64(n)
		}
		if err := dec.ResultFree(f); err != nil {
			log.Error("result_free failed", "error", err.Error())
			break
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("decoded %d frames (%d bytes) in %s (%.1f fps)\n",
		frames, bytes, elapsed.Round(time.Millisecond), float64(frames)/elapsed.Seconds())
}

func parsePixFmt(s string) avutil.PixelFormat {
	switch s {
	case "", "none":
		return avutil.PixFmtNone
	case "yuv420p":
		return avutil.PixFmtYUV420P
	case "yuyv422":
		return avutil.PixFmtYUYV422
	case "rgb24":
		return avutil.PixFmtRGB24
	case "bgr24":
		return avutil.PixFmtBGR24
	case "nv12":
		return avutil.PixFmtNV12
	default:
		return avutil.PixFmtNone
	}
}

// writeFrame writes f's plane data to w in plane order, returning the
// number of bytes written. This is a raw, headerless dump intended for
// piping into another tool (ffplay -f rawvideo, a numpy reader, ...),
// not a container.
func writeFrame(w *os.File, f *avutil.Frame) (int, error) {
	total := 0
	for i := 0; i < avutil.MaxPlanes; i++ {
		if f.Data[i] == 0 || f.Linesize[i] == 0 {
			continue
		}
		rows := f.Height
		if i > 0 {
			rows = planeRows(f.Format, f.Height, i)
		}
		b := planeBytes(f.Data[i], int(f.Linesize[i])*rows)
		n, err := w.Write(b)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// planeBytes views n bytes starting at the backend-owned address ptr as a
// Go byte slice. The slice is only valid until the frame is next reused
// or freed; callers must not retain it past writeFrame's call to Write.
func planeBytes(ptr uintptr, n int) []byte {
	if ptr == 0 || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
}

// planeRows returns the row count of plane i for a chroma-subsampled
// format, halving for the 4:2:0 chroma planes and leaving luma/4:4:4
// planes untouched.
func planeRows(format avutil.PixelFormat, height, plane int) int {
	if plane == 0 {
		return height
	}
	switch format {
	case avutil.PixFmtYUV420P, avutil.PixFmtYUVJ420P, avutil.PixFmtNV12, avutil.PixFmtNV21:
		return (height + 1) / 2
	default:
		return height
	}
}
