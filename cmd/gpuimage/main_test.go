package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gpuimage/geometry"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    [3]float32
		wantErr bool
	}{
		{"0,0,0", [3]float32{0, 0, 0}, false},
		{"0.1, 0.5 ,1", [3]float32{0.1, 0.5, 1}, false},
		{"1,1", [3]float32{}, true},
		{"1,x,0", [3]float32{}, true},
		{"1.5,0,0", [3]float32{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"640x480", 640, 480, false},
		{"32X16", 32, 16, false},
		{"640", 0, 0, true},
		{"0x10", 0, 0, true},
		{"ax10", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h, err := parseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if w != tt.w || h != tt.h {
				t.Errorf("parseSize(%q) = %dx%d, want %dx%d", tt.in, w, h, tt.w, tt.h)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	c, err := parseFlags([]string{"-in", "a.jpg", "-scale", "fit", "-rotation", "270", "-filter", "brightness=1.4"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if c.scale != geometry.Fit {
		t.Errorf("scale = %v, want fit", c.scale)
	}
	if c.rotation != 270 {
		t.Errorf("rotation = %d, want 270", c.rotation)
	}
	if c.filter == nil || c.filterName != "brightness=1.4" {
		t.Errorf("filter = %v (%q)", c.filter, c.filterName)
	}

	bad := [][]string{
		{},
		{"-in", "a.jpg", "-rotation", "45"},
		{"-in", "a.jpg", "-scale", "stretch"},
		{"-in", "a.jpg", "-filter", "blur"},
		{"-in", "a.jpg", "-width", "-1"},
		{"-capture", "2", "-capture-size", "2"},
	}
	for _, args := range bad {
		if _, err := parseFlags(args, io.Discard); err == nil {
			t.Errorf("parseFlags(%q) succeeded", args)
		}
	}
}

func writeTestImage(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "in.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestRunImage(t *testing.T) {
	in := writeTestImage(t, 8, 4, color.RGBA{255, 0, 0, 255})
	out := filepath.Join(t.TempDir(), "out.png")

	err := run(context.Background(), []string{"-in", in, "-out", out, "-filter", "invert"}, io.Discard)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	img := readPNG(t, out)
	if got := img.Bounds(); got.Dx() != 8 || got.Dy() != 4 {
		t.Fatalf("output bounds = %v, want 8x4", got)
	}
	r, g, b, _ := img.At(4, 2).RGBA()
	if r>>8 > 8 || g>>8 < 247 || b>>8 < 247 {
		t.Errorf("center pixel = (%d, %d, %d), want cyan", r>>8, g>>8, b>>8)
	}
}

func TestRunCapture(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.png")
	args := []string{"-capture", "3", "-capture-size", "16x8", "-out", out, "-filter", "grayscale"}
	if err := run(context.Background(), args, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := readPNG(t, out).Bounds(); got.Dx() != 16 || got.Dy() != 8 {
		t.Errorf("output bounds = %v, want 16x8", got)
	}
}

func TestRunMissingInput(t *testing.T) {
	err := run(context.Background(), []string{"-in", filepath.Join(t.TempDir(), "missing.png")}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "missing.png") {
		t.Errorf("run error = %v, want missing file error", err)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	in := writeTestImage(t, 2, 2, color.White)
	err := run(context.Background(), []string{"-in", in, "-backend", "metal", "-out", filepath.Join(t.TempDir(), "o.png")}, io.Discard)
	if err == nil {
		t.Error("run succeeded with an unknown backend")
	}
}
