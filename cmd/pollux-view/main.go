//go:build withcv
// +build withcv

/*
NAME
  pollux-view

DESCRIPTION
  pollux-view is an optional live preview harness: decode a source URL
  with the decoder package, convert each frame to BGR24, and display it
  in a gocv window. Built only with the withcv build tag, since gocv
  requires a local OpenCV install.

AUTHORS
  pollux contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pollux-view previews decoded frames in a gocv window.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"
	"unsafe"

	"gocv.io/x/gocv"

	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/decoder"
	"github.com/ausocean/pollux/perr"
	"github.com/ausocean/pollux/pollog"
)

func main() {
	url := flag.String("url", "", "input media URL or file path")
	flag.Parse()
	if *url == "" {
		fmt.Fprintln(os.Stderr, "pollux-view: -url is required")
		os.Exit(2)
	}

	log := pollog.New(pollog.Info, pollog.Config{})
	defer log.Sync()

	dec := decoder.New(log)
	fmtCvt := avutil.ImageDescriptor{Format: avutil.PixFmtBGR24}
	if err := dec.ParamSet(*url, decoder.Args{CacheCount: 4, FmtCvtImg: &fmtCvt}); err != nil {
		log.Error("param_set failed", "error", err.Error())
		os.Exit(1)
	}
	defer dec.Release()

	info := dec.Info()
	window := gocv.NewWindow("pollux-view: " + *url)
	defer window.Close()

	mat := gocv.NewMatWithSize(info.Height, info.Width, gocv.MatTypeCV8UC3)
	defer mat.Close()

	for {
		f, err := dec.ResultGet(2 * time.Second)
		if err != nil {
			if perr.Is(err, perr.StreamEnd) {
				log.Info("end of stream reached")
				break
			}
			if perr.Is(err, perr.Timeout) {
				continue
			}
			log.Error("result_get failed", "error", err.Error())
			break
		}

		if err := copyIntoMat(&mat, f); err != nil {
			log.Error("frame copy failed", "error", err.Error())
			dec.ResultFree(f)
			break
		}
		window.IMShow(mat)
		if window.WaitKey(1) == 27 { // Esc
			dec.ResultFree(f)
			break
		}
		if err := dec.ResultFree(f); err != nil {
			log.Error("result_free failed", "error", err.Error())
			break
		}
	}
}

// copyIntoMat copies f's single packed BGR24 plane into mat's backing
// buffer, row by row to respect f's linesize stride (which may exceed
// mat's tightly-packed row width).
func copyIntoMat(mat *gocv.Mat, f *avutil.Frame) error {
	rowBytes := f.Width * 3
	stride := int(f.Linesize[0])
	src := unsafe.Slice((*byte)(unsafe.Pointer(f.Data[0])), stride*f.Height)
	dst, err := mat.DataPtrUint8()
	if err != nil {
		return err
	}
	for row := 0; row < f.Height; row++ {
		copy(dst[row*rowBytes:(row+1)*rowBytes], src[row*stride:row*stride+rowBytes])
	}
	return nil
}
