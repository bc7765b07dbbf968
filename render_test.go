package gpuimage_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gpuimage"
	"github.com/gogpu/gpuimage/backend/software"
	"github.com/gogpu/gpuimage/filter"
	"github.com/gogpu/gpuimage/geometry"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// renderOnce drives one full frame of r at the given output size.
func renderOnce(r *gpuimage.Renderer, w, h int) {
	r.OnSurfaceCreated()
	r.OnSurfaceChanged(w, h)
	r.OnDrawFrame()
}

func TestSoftwareInvert(t *testing.T) {
	dev := software.New()
	defer dev.Close()

	r, err := gpuimage.New(filter.NewInvert(), gpuimage.WithDevice(dev))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	r.SetImage(solid(4, 4, color.RGBA{R: 255, A: 255}), false)
	renderOnce(r, 4, 4)

	fb := dev.Framebuffer()
	for y := range 4 {
		for x := range 4 {
			if got := fb.RGBAAt(x, y); got != (color.RGBA{G: 255, B: 255, A: 255}) {
				t.Fatalf("pixel (%d,%d) = %v, want cyan", x, y, got)
			}
		}
	}
}

func TestSoftwareFitLetterbox(t *testing.T) {
	dev := software.New()
	defer dev.Close()

	r, err := gpuimage.New(nil,
		gpuimage.WithDevice(dev),
		gpuimage.WithScaleType(geometry.Fit),
		gpuimage.WithBackgroundColor(0, 0, 1),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	// A square image on a wide output leaves blue bars left and right.
	r.SetImage(solid(8, 8, color.RGBA{R: 255, A: 255}), false)
	renderOnce(r, 16, 8)

	fb := dev.Framebuffer()
	blue := color.RGBA{B: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}
	if got := fb.RGBAAt(0, 4); got != blue {
		t.Errorf("left bar = %v, want %v", got, blue)
	}
	if got := fb.RGBAAt(15, 4); got != blue {
		t.Errorf("right bar = %v, want %v", got, blue)
	}
	if got := fb.RGBAAt(8, 4); got != red {
		t.Errorf("center = %v, want %v", got, red)
	}
}

func TestSoftwareOddWidthImage(t *testing.T) {
	dev := software.New()
	defer dev.Close()

	r, err := gpuimage.New(nil, gpuimage.WithDevice(dev))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	r.SetImage(solid(3, 2, color.RGBA{G: 255, A: 255}), false)
	renderOnce(r, 3, 2)

	if st := r.RenderState(); st.AddedPadding != 1 {
		t.Fatalf("AddedPadding = %d, want 1", st.AddedPadding)
	}
	if st := r.RenderState(); st.ImageWidth != 3 {
		t.Errorf("ImageWidth = %d, want the unpadded 3", st.ImageWidth)
	}
	// The padding column is sampled at the right edge only.
	fb := dev.Framebuffer()
	for x := range 2 {
		if got := fb.RGBAAt(x, 0); got != (color.RGBA{G: 255, A: 255}) {
			t.Errorf("pixel (%d,0) = %v, want opaque green", x, got)
		}
	}
}
