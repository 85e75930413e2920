package providers

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestAspectDimensions(t *testing.T) {
	cases := []struct {
		aspect string
		w, h   int
	}{
		{"16:9", 1792, 1024},
		{"9:16", 1024, 1792},
		{"1:1", 1024, 1024},
		{"", 1024, 1024},
		{"2:1", 1024, 512},
		{"garbage", 1024, 1024},
	}
	for _, tc := range cases {
		w, h := AspectDimensions(tc.aspect)
		if w != tc.w || h != tc.h {
			t.Fatalf("AspectDimensions(%q) = %dx%d, want %dx%d", tc.aspect, w, h, tc.w, tc.h)
		}
	}
}

func TestVideoDimensions(t *testing.T) {
	if w, h := VideoDimensions("9:16"); w != 720 || h != 1280 {
		t.Fatalf("portrait = %dx%d", w, h)
	}
	if w, h := VideoDimensions("16:9"); w != 1280 || h != 720 {
		t.Fatalf("landscape = %dx%d", w, h)
	}
}

func TestDecodeImageDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 12, 34))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	w, h := DecodeImageDimensions(buf.Bytes())
	if w != 12 || h != 34 {
		t.Fatalf("dims = %dx%d, want 12x34", w, h)
	}
	if w, h := DecodeImageDimensions([]byte("not an image")); w != 0 || h != 0 {
		t.Fatalf("garbage input should yield zeros, got %dx%d", w, h)
	}
}
