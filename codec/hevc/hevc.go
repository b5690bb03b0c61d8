/*
NAME
  hevc.go

DESCRIPTION
  hevc maps the library's uniform speed/quality/rate-control/tune/gop
  parameter vocabulary onto x265's option set, via backend.Options, for
  the encoder's codec_priv_set entry point.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package hevc implements the x265 parameter mapper.
package hevc

import (
	"fmt"

	"github.com/ausocean/pollux/backend"
	"github.com/ausocean/pollux/pollog"
)

// RCMode is the rate-control mode a caller selects for an HEVC encode.
type RCMode int

const (
	RCNone RCMode = iota // no change
	RCCQ                 // constant quality / CRF
	RCCBR
	RCVBR
)

// TuneMode is the x265 tuning hint a caller selects.
type TuneMode int

const (
	TuneNone TuneMode = iota
	TuneZeroLatency
	TuneFastDecode
)

// Args is the uniform codec-private parameter set for an HEVC encode.
type Args struct {
	SpeedLevel      int // 1..16, 0 = no change
	QualityLevel    int // 1..16, 0 = no change
	RCMode          RCMode
	BitRateKbps     int64 // used only for RCCBR/RCVBR
	TuneMode        TuneMode
	GopSize         int // >0 sets keyframe interval, 0 = no change
	AdvancedOptions string
}

// presetTable maps the piecewise speed_level thresholds to x265 preset
// names, from fastest (highest speed_level) to slowest.
var presetTable = []struct {
	min    int
	preset string
}{
	{16, "ultrafast"},
	{14, "superfast"},
	{12, "veryfast"},
	{10, "faster"},
	{8, "fast"},
	{6, "medium"},
	{4, "slow"},
	{3, "slower"},
	{2, "veryslow"},
}

// Preset returns the x265 preset string for a clamped speed_level.
func Preset(speedLevel int) string {
	q := clamp(speedLevel)
	for _, e := range presetTable {
		if q >= e.min {
			return e.preset
		}
	}
	return "placebo"
}

// CRF computes the x265 CRF value for a clamped quality_level: crf = 33 +
// (q-1)*(18-33)/15, using exact integer arithmetic as the source does
// (q=1 -> 33, q=16 -> 18).
func CRF(qualityLevel int) int {
	q := clamp(qualityLevel)
	return 33 + (q-1)*(18-33)/15
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

// Apply builds the x265 option set for args into opts, logging any
// unsupported rc_mode/tune_mode combination at warn rather than failing.
func Apply(args Args, opts *backend.Options, log pollog.Logger) {
	if args.SpeedLevel > 0 {
		opts.Set("preset", Preset(args.SpeedLevel))
	}
	if args.QualityLevel > 0 {
		opts.Set("crf", fmt.Sprintf("%d", CRF(args.QualityLevel)))
	}
	switch args.RCMode {
	case RCNone:
	case RCCQ:
		// CRF above already selects constant-quality mode; nothing further.
	case RCCBR, RCVBR:
		rate := fmt.Sprintf("%dK", args.BitRateKbps)
		opts.Set("b", rate)
		opts.Set("vbv-bufsize", rate)
		opts.Set("vbv-maxrate", rate)
	default:
		log.Warning("hevc: unsupported rc_mode, ignoring", "rc_mode", int(args.RCMode))
	}
	switch args.TuneMode {
	case TuneNone:
	case TuneZeroLatency:
		opts.Set("tune", "zerolatency")
	case TuneFastDecode:
		opts.Set("tune", "fastdecode")
	default:
		log.Warning("hevc: unsupported tune_mode, ignoring", "tune_mode", int(args.TuneMode))
	}
	if args.GopSize > 0 {
		opts.Set("g", fmt.Sprintf("%d", args.GopSize))
	}
	opts.ParseAdvanced(args.AdvancedOptions)
}
