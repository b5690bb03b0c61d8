package encoder

import (
	"testing"

	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/codec/av1"
	"github.com/ausocean/pollux/codec/hevc"
	"github.com/ausocean/pollux/pollog"
)

func TestBasePTS(t *testing.T) {
	cases := []struct {
		rate avutil.Rational
		want int64
	}{
		{avutil.NewRational(25, 1), 1},
		{avutil.NewRational(30, 1), 1},
		{avutil.NewRational(1, 1), 1},
		{avutil.NewRational(0, 1), 0},
	}
	for _, c := range cases {
		if got := basePTS(c.rate); got != c.want {
			t.Errorf("basePTS(%+v) = %d, want %d", c.rate, got, c.want)
		}
	}
}

func newUnconfiguredEncoder() *Encoder {
	return New(pollog.Noop())
}

func TestCodecPrivSetRequiresParamSet(t *testing.T) {
	e := newUnconfiguredEncoder()
	err := e.CodecPrivSet(avutil.CodecIDHEVC, &hevc.Args{}, nil)
	if err == nil {
		t.Fatalf("expected an error before ParamSet has run")
	}
}

func TestCodecPrivSetRejectsCodecMismatch(t *testing.T) {
	e := newUnconfiguredEncoder()
	e.paramSetFlag.Store(true)
	e.args = Args{CodecID: avutil.CodecIDHEVC}
	e.opts = nil

	err := e.CodecPrivSet(avutil.CodecIDAV1, nil, &av1.Args{})
	if err == nil {
		t.Fatalf("expected an error when codecID does not match the configured codec")
	}
}

func TestCodecPrivSetRejectsMissingArgs(t *testing.T) {
	e := newUnconfiguredEncoder()
	e.paramSetFlag.Store(true)
	e.args = Args{CodecID: avutil.CodecIDHEVC}

	err := e.CodecPrivSet(avutil.CodecIDHEVC, nil, nil)
	if err == nil {
		t.Fatalf("expected an error when the matching codec's Args pointer is nil")
	}
}

func TestSendFrameRequiresStart(t *testing.T) {
	e := newUnconfiguredEncoder()
	err := e.SendFrame(&avutil.Frame{})
	if err == nil {
		t.Fatalf("expected an error before Start has run")
	}
}

func TestStopRequiresParamSet(t *testing.T) {
	e := newUnconfiguredEncoder()
	if err := e.Stop(); err == nil {
		t.Fatalf("expected an error calling Stop before ParamSet")
	}
}

func TestReleaseIsIdempotentWithoutParamSet(t *testing.T) {
	e := newUnconfiguredEncoder()
	if err := e.Release(); err != nil {
		t.Fatalf("Release on an unconfigured Encoder should be a no-op, got %v", err)
	}
	if err := e.Release(); err != nil {
		t.Fatalf("second Release call should also be a no-op, got %v", err)
	}
}
