/*
NAME
  pollux-encode

DESCRIPTION
  pollux-encode is a CLI harness exercising the Encoder: decode a source
  URL with the decoder package and re-encode its frames into a chosen
  codec/container pair, reporting progress on the terminal.

AUTHORS
  pollux contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pollux-encode drives the encoder package from the command line,
// sourcing frames from the decoder package.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/codec/av1"
	"github.com/ausocean/pollux/codec/hevc"
	"github.com/ausocean/pollux/decoder"
	"github.com/ausocean/pollux/encoder"
	"github.com/ausocean/pollux/perr"
	"github.com/ausocean/pollux/pollog"
)

const (
	logPath       = "pollux-encode.log"
	logMaxSizeMB  = 100
	logMaxBackup  = 5
	logMaxAgeDays = 28
)

func main() {
	in := flag.String("in", "", "input media URL or file path")
	out := flag.String("out", "", "output media URL or file path")
	codecName := flag.String("codec", "hevc", "output codec: hevc or av1")
	container := flag.String("container", "", "output container; empty guesses from -out's extension")
	bitRate := flag.Int64("bitrate", 4_000_000, "target bit rate, bits per second")
	speed := flag.Int("speed", 8, "encoder speed level, 1 (slowest) to 16 (fastest)")
	quality := flag.Int("quality", 8, "encoder quality level, 1 (lowest) to 16 (highest)")
	gop := flag.Int("gop", 60, "GOP size in frames")
	pace := flag.Bool("pace", false, "pace sends to the source frame rate instead of running flat out")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "pollux-encode: -in and -out are required")
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

	codecID, err := parseCodec(*codecName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pollux-encode:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dec := decoder.New(log)
	if err := dec.ParamSet(*in, decoder.Args{CacheCount: 8}); err != nil {
		log.Error("decoder param_set failed", "error", err.Error())
		os.Exit(1)
	}
	defer dec.Release()
	srcInfo := dec.Info()

	enc := encoder.New(log)
	encArgs := encoder.Args{
		ContainerFmt: parseContainer(*container),
		BitRate:      *bitRate,
		Img:          avutil.ImageDescriptor{Width: srcInfo.Width, Height: srcInfo.Height, Format: srcInfo.PixFmt},
		FrameRate:    srcInfo.FrameRate,
		GopSize:      *gop,
		CodecID:      codecID,
		PaceToFrameRate: *pace,
	}
	if err := enc.ParamSet(*out, encArgs); err != nil {
		log.Error("encoder param_set failed", "error", err.Error())
		os.Exit(1)
	}
	defer enc.Release()

	if err := applyCodecPriv(enc, codecID, *speed, *quality, *gop); err != nil {
		log.Error("codec_priv_set failed", "error", err.Error())
		os.Exit(1)
	}

	if err := enc.Start(); err != nil {
		log.Error("encoder start failed", "error", err.Error())
		os.Exit(1)
	}

	bold := color.New(color.Bold)
	bold.Printf("encoding %s -> %s (%s, %d bps)\n", *in, *out, codecID.String(), *bitRate)

	var bar *progressbar.ProgressBar
	if srcInfo.Duration > 0 && srcInfo.FrameRate.Num > 0 {
		totalFrames := int64(float64(srcInfo.Duration) / 1e6 * float64(srcInfo.FrameRate.Num) / float64(srcInfo.FrameRate.Den))
		bar = progressbar.Default(totalFrames, "encoding")
	} else {
		bar = progressbar.DefaultBytes(-1, "encoding")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pump(gctx, dec, enc, bar, log) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("pump failed", "error", err.Error())
		color.New(color.FgRed).Fprintln(os.Stderr, "encoding failed:", err)
		os.Exit(1)
	}

	if err := enc.Stop(); err != nil {
		log.Error("encoder stop failed", "error", err.Error())
		os.Exit(1)
	}
	bar.Finish()
	color.New(color.FgGreen).Println("done")
}

func pump(ctx context.Context, dec *decoder.Decoder, enc *encoder.Encoder, bar *progressbar.ProgressBar, log pollog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		f, err := dec.ResultGet(2 * time.Second)
		if err != nil {
			if perr.Is(err, perr.StreamEnd) {
				return nil
			}
			if perr.Is(err, perr.Timeout) {
				continue
			}
			return err
		}

		sendErr := enc.SendFrame(f)
		freeErr := dec.ResultFree(f)
		if sendErr != nil {
			return sendErr
		}
		if freeErr != nil {
			return freeErr
		}
		bar.Add(1)
	}
}

func parseCodec(s string) (avutil.CodecID, error) {
	switch s {
	case "hevc", "h265":
		return avutil.CodecIDHEVC, nil
	case "av1":
		return avutil.CodecIDAV1, nil
	default:
		return avutil.CodecIDNone, fmt.Errorf("unsupported -codec %q (want hevc or av1)", s)
	}
}

// parseContainer resolves the -container flag to a ContainerFormat. If
// the flag is empty, the container is left unresolved (ContainerNone)
// so the backend guesses it from the output URL's extension.
func parseContainer(name string) avutil.ContainerFormat {
	switch name {
	case "mp4":
		return avutil.ContainerMP4
	case "mpegts":
		return avutil.ContainerMPEGTS
	case "avi":
		return avutil.ContainerAVI
	case "gif":
		return avutil.ContainerGIF
	default:
		return avutil.ContainerNone
	}
}

func applyCodecPriv(enc *encoder.Encoder, codecID avutil.CodecID, speed, quality, gop int) error {
	switch codecID {
	case avutil.CodecIDHEVC:
		return enc.CodecPrivSet(codecID, &hevc.Args{
			SpeedLevel: speed, QualityLevel: quality, GopSize: gop,
		}, nil)
	case avutil.CodecIDAV1:
		return enc.CodecPrivSet(codecID, nil, &av1.Args{
			SpeedLevel: speed, QualityLevel: quality, GopSize: gop,
		})
	default:
		return nil
	}
}
