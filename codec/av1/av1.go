/*
NAME
  av1.go

DESCRIPTION
  av1 maps the library's uniform speed/quality/rate-control/tune/gop
  parameter vocabulary onto SVT-AV1's option set, via backend.Options,
  for the encoder's codec_priv_set entry point.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package av1 implements the SVT-AV1 parameter mapper.
package av1

import (
	"fmt"

	"github.com/ausocean/pollux/backend"
	"github.com/ausocean/pollux/pollog"
)

// RCMode is the rate-control mode a caller selects for an AV1 encode.
type RCMode int

const (
	RCNone RCMode = iota
	RCCQ
	RCCBR
	RCVBR
)

// TuneMode is the SVT-AV1 tuning hint a caller selects.
type TuneMode int

const (
	TuneNone TuneMode = iota
	TuneVisualQuality
	TunePSNR
)

// Args is the uniform codec-private parameter set for an AV1 encode.
type Args struct {
	SpeedLevel      int
	QualityLevel    int
	RCMode          RCMode
	BitRateKbps     int64
	TuneMode        TuneMode
	GopSize         int
	AdvancedOptions string
}

// presetTable maps the piecewise speed_level thresholds to SVT-AV1
// numeric presets (lower = slower/better, higher = faster).
var presetTable = []struct {
	min    int
	preset int
}{
	{16, 13}, {15, 12}, {14, 11}, {13, 10}, {11, 9}, {9, 8}, {7, 7},
	{6, 6}, {5, 5}, {4, 4}, {3, 3}, {2, 2},
}

// Preset returns the SVT-AV1 preset integer for a clamped speed_level.
func Preset(speedLevel int) int {
	q := clamp(speedLevel)
	for _, e := range presetTable {
		if q >= e.min {
			return e.preset
		}
	}
	return 1
}

// CRF computes the SVT-AV1 CRF value for a clamped quality_level: crf =
// 40 + (q-1)*(20-40)/15 (q=1 -> 40, q=16 -> 20), clamped into [20,40] by
// construction of the formula's endpoints.
func CRF(qualityLevel int) int {
	q := clamp(qualityLevel)
	return 40 + (q-1)*(20-40)/15
}

func clamp(v int) int {
	if v < 1 {
		return 1
	}
	if v > 16 {
		return 16
	}
	return v
}

// Apply builds the SVT-AV1 option set for args into opts, logging any
// unsupported rc_mode/tune_mode combination at warn rather than failing.
func Apply(args Args, opts *backend.Options, log pollog.Logger) {
	if args.SpeedLevel > 0 {
		opts.Set("preset", fmt.Sprintf("%d", Preset(args.SpeedLevel)))
	}
	if args.QualityLevel > 0 {
		opts.Set("crf", fmt.Sprintf("%d", CRF(args.QualityLevel)))
	}
	switch args.RCMode {
	case RCNone:
	case RCCQ:
	case RCCBR, RCVBR:
		opts.Set("b", fmt.Sprintf("%dK", args.BitRateKbps))
	default:
		log.Warning("av1: unsupported rc_mode, ignoring", "rc_mode", int(args.RCMode))
	}
	switch args.TuneMode {
	case TuneNone:
	case TuneVisualQuality:
		opts.Set("tune", "0")
	case TunePSNR:
		opts.Set("tune", "1")
	default:
		log.Warning("av1: unsupported tune_mode, ignoring", "tune_mode", int(args.TuneMode))
	}
	if args.GopSize > 0 {
		opts.Set("g", fmt.Sprintf("%d", args.GopSize))
	}
	opts.ParseAdvanced(args.AdvancedOptions)
}
