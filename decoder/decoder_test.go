package decoder

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/backend"
	"github.com/ausocean/pollux/pollog"
)

func nativeInfo() backend.StreamInfo {
	return backend.StreamInfo{
		Width: 1920, Height: 1080,
		PixFmt: int32(avutil.PixFmtYUV420P),
	}
}

func TestSanitizeTargetNilRequest(t *testing.T) {
	desc, scale, err := sanitizeTarget(nil, nativeInfo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scale {
		t.Errorf("nil request should never enable scaling")
	}
	if desc.Width != 1920 || desc.Height != 1080 || desc.Format != avutil.PixFmtYUV420P {
		t.Errorf("nil request should resolve to native geometry, got %+v", desc)
	}
}

func TestSanitizeTargetMatchingRequest(t *testing.T) {
	req := &avutil.ImageDescriptor{Width: 1920, Height: 1080, Format: avutil.PixFmtYUV420P, Align: avutil.DefaultAlign()}
	_, scale, err := sanitizeTarget(req, nativeInfo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scale {
		t.Errorf("a request matching native geometry/format should disable scaling")
	}
}

func TestSanitizeTargetDifferentFormatEnablesScale(t *testing.T) {
	req := &avutil.ImageDescriptor{Width: 1920, Height: 1080, Format: avutil.PixFmtRGB24}
	desc, scale, err := sanitizeTarget(req, nativeInfo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !scale {
		t.Errorf("a request with a differing pixel format should enable scaling")
	}
	if desc.Format != avutil.PixFmtRGB24 {
		t.Errorf("resolved descriptor should keep the requested format, got %v", desc.Format)
	}
}

func TestSanitizeTargetFallsBackOnInvalidFields(t *testing.T) {
	req := &avutil.ImageDescriptor{Width: 0, Height: 0, Format: avutil.PixFmtNone}
	desc, _, err := sanitizeTarget(req, nativeInfo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := avutil.ImageDescriptor{Width: 1920, Height: 1080, Format: avutil.PixFmtYUV420P}
	if diff := cmp.Diff(want, desc); diff != "" {
		t.Errorf("invalid fields should fall back to native values (-want +got):\n%s", diff)
	}
}

func TestToStreamInfoMirrorsBackendFields(t *testing.T) {
	native := backend.StreamInfo{
		Width: 1920, Height: 1080, BitRate: 4_000_000,
		FrameRate: avutil.NewRational(25, 1), MaxBFrames: 2, GopSize: 60,
		PixFmt: int32(avutil.PixFmtYUV420P), CodecID: int32(avutil.CodecIDH264),
		Profile: 100, Level: 41, Duration: 10_000_000,
	}
	got := toStreamInfo(native, pollog.Noop())
	want := StreamInfo{
		Width: 1920, Height: 1080, BitRate: 4_000_000,
		FrameRate: avutil.NewRational(25, 1), MaxBFrames: 2, GopSize: 60,
		PixFmt: avutil.PixFmtYUV420P, CodecID: avutil.CodecIDH264,
		Profile: 100, Level: 41, Duration: 10_000_000,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toStreamInfo mismatch (-want +got):\n%s", diff)
	}
}
