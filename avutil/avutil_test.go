package avutil

import (
	"testing"

	"github.com/ausocean/pollux/pollog"
)

func TestRationalFloat64(t *testing.T) {
	cases := []struct {
		r    Rational
		want float64
	}{
		{NewRational(25, 1), 25},
		{NewRational(30000, 1001), 29.97002997002997},
		{NewRational(1, 0), 0},
	}
	for _, c := range cases {
		if got := c.r.Float64(); got != c.want {
			t.Errorf("%v.Float64() = %v, want %v", c.r, got, c.want)
		}
	}
}

func TestRationalInvert(t *testing.T) {
	got := NewRational(30, 1).Invert()
	want := NewRational(1, 30)
	if got != want {
		t.Errorf("Invert() = %v, want %v", got, want)
	}
}

func TestImageDescriptorValid(t *testing.T) {
	cases := []struct {
		d    ImageDescriptor
		want bool
	}{
		{ImageDescriptor{Width: 1920, Height: 1080, Format: PixFmtYUV420P}, true},
		{ImageDescriptor{Width: 0, Height: 1080, Format: PixFmtYUV420P}, false},
		{ImageDescriptor{Width: 1920, Height: 0, Format: PixFmtYUV420P}, false},
		{ImageDescriptor{Width: 1920, Height: 1080, Format: PixFmtNone}, false},
	}
	for _, c := range cases {
		if got := c.d.Valid(); got != c.want {
			t.Errorf("%+v.Valid() = %v, want %v", c.d, got, c.want)
		}
	}
}

func TestImageDescriptorResolvedAlign(t *testing.T) {
	d := ImageDescriptor{Align: 8}
	if got := d.ResolvedAlign(); got != 8 {
		t.Errorf("ResolvedAlign() = %d, want 8", got)
	}
	d2 := ImageDescriptor{}
	if got := d2.ResolvedAlign(); got != DefaultAlign() {
		t.Errorf("ResolvedAlign() with Align<=0 = %d, want DefaultAlign() %d", got, DefaultAlign())
	}
}

func TestFrameMatchesImage(t *testing.T) {
	f := &Frame{Width: 1920, Height: 1080, Format: PixFmtYUV420P}
	d := ImageDescriptor{Width: 1920, Height: 1080, Format: PixFmtYUV420P, Align: 1}
	if !f.MatchesImage(d) {
		t.Errorf("expected f to match d")
	}
	d2 := ImageDescriptor{Width: 1920, Height: 1080, Format: PixFmtRGB24, Align: 1}
	if f.MatchesImage(d2) {
		t.Errorf("expected f not to match d2 (different format)")
	}
}

func TestFrameReset(t *testing.T) {
	f := &Frame{Width: 100, Height: 50, Format: PixFmtRGB24, PTS: 5, Native: 0xdead, HasImgMem: true}
	f.Reset()
	if f.Width != 0 || f.Height != 0 || f.Format != PixFmtNone || f.PTS != 0 {
		t.Errorf("Reset should clear decode-result fields, got %+v", f)
	}
	if f.Native != 0xdead || !f.HasImgMem {
		t.Errorf("Reset must not touch Native/HasImgMem ownership fields")
	}
}

func TestCodecIDToBackendRejectsNone(t *testing.T) {
	if _, ok := CodecIDToBackend(CodecIDNone, pollog.Noop()); ok {
		t.Errorf("CodecIDNone should be rejected")
	}
}

func TestCodecIDRoundTrip(t *testing.T) {
	for _, c := range []CodecID{CodecIDH264, CodecIDHEVC, CodecIDAV1, CodecIDMJPEG} {
		backendVal, ok := CodecIDToBackend(c, pollog.Noop())
		if !ok {
			t.Fatalf("CodecIDToBackend(%v) failed", c)
		}
		back, ok := CodecIDFromBackend(backendVal, pollog.Noop())
		if !ok || back != c {
			t.Errorf("round trip for %v produced %v, ok=%v", c, back, ok)
		}
	}
}

func TestCodecIDFromBackendRejectsUnmapped(t *testing.T) {
	if _, ok := CodecIDFromBackend(999999, pollog.Noop()); ok {
		t.Errorf("an unmapped backend codec ID should be rejected")
	}
}

func TestPixelFormatRoundTrip(t *testing.T) {
	for _, f := range []PixelFormat{PixFmtYUV420P, PixFmtRGB24, PixFmtBGR24, PixFmtNV12} {
		backendVal, ok := PixelFormatToBackend(f, pollog.Noop())
		if !ok {
			t.Fatalf("PixelFormatToBackend(%v) failed", f)
		}
		back, ok := PixelFormatFromBackend(backendVal, pollog.Noop())
		if !ok || back != f {
			t.Errorf("round trip for %v produced %v, ok=%v", f, back, ok)
		}
	}
}

func TestPixelFormatToBackendRejectsOutOfRange(t *testing.T) {
	if _, ok := PixelFormatToBackend(PixFmtNone, pollog.Noop()); ok {
		t.Errorf("PixFmtNone should be rejected")
	}
	if _, ok := PixelFormatToBackend(PixelFormat(1000), pollog.Noop()); ok {
		t.Errorf("an out-of-range pixel format should be rejected")
	}
}

func TestContainerFormatNameGuessesOnNone(t *testing.T) {
	if got := ContainerNone.Name(); got != "" {
		t.Errorf("ContainerNone.Name() = %q, want empty string so the backend guesses from the URL", got)
	}
	if got := ContainerMP4.Name(); got != "mp4" {
		t.Errorf("ContainerMP4.Name() = %q, want mp4", got)
	}
}
