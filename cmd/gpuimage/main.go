// Command gpuimage runs one filter over an image, or over frames from a
// synthetic camera, and writes the rendered output as PNG.
//
//	gpuimage -in photo.jpg -out out.png -width 1080 -height 1920 -rotation 90 -scale fit -filter sepia
//	gpuimage -capture 30 -out frame.png -filter grayscale
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/gpuimage"
	"github.com/gogpu/gpuimage/backend"
	"github.com/gogpu/gpuimage/backend/native"
	"github.com/gogpu/gpuimage/backend/software"
	"github.com/gogpu/gpuimage/capture"
	"github.com/gogpu/gpuimage/filter"
	"github.com/gogpu/gpuimage/geometry"
	"github.com/gogpu/gpuimage/gpucore"

	_ "github.com/gogpu/wgpu/hal/allbackends"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("gpuimage: %v", err)
	}
}

type config struct {
	in         string
	out        string
	width      int
	height     int
	rotation   int
	flipH      bool
	flipV      bool
	scale      geometry.ScaleType
	filter     filter.Filter
	filterName string
	bg         [3]float32
	capture    int
	camW       int
	camH       int
	backend    string
	validate   bool
	verbose    bool
	timeout    time.Duration
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var (
		c                     config
		scale, filt, bg, size string
	)
	fs := flag.NewFlagSet("gpuimage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.in, "in", "", "input image (jpeg, png, bmp, tiff, webp)")
	fs.StringVar(&c.out, "out", "out.png", "output PNG file")
	fs.IntVar(&c.width, "width", 0, "output width (default: image width)")
	fs.IntVar(&c.height, "height", 0, "output height (default: image height)")
	fs.IntVar(&c.rotation, "rotation", 0, "clockwise rotation in degrees, a multiple of 90")
	fs.BoolVar(&c.flipH, "flip-h", false, "flip horizontally")
	fs.BoolVar(&c.flipV, "flip-v", false, "flip vertically")
	fs.StringVar(&scale, "scale", "center_crop", "scale type: center_crop or fit")
	fs.StringVar(&filt, "filter", "passthrough", "filter, optionally name=param ("+strings.Join(filter.Names(), ", ")+")")
	fs.StringVar(&bg, "bg", "0,0,0", "background color as r,g,b in [0, 1]")
	fs.IntVar(&c.capture, "capture", 0, "render N frames from a synthetic camera instead of -in")
	fs.StringVar(&size, "capture-size", "640x480", "synthetic camera frame size")
	fs.StringVar(&c.backend, "backend", backend.NameSoftware, "device backend: software or native")
	fs.BoolVar(&c.validate, "validate-shaders", false, "compile filter shaders with naga on the software backend")
	fs.BoolVar(&c.verbose, "v", false, "verbose logging")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "capture timeout")
	if err := fs.Parse(args); err != nil {
		return c, err
	}

	if c.in == "" && c.capture <= 0 {
		return c, errors.New("one of -in or -capture is required")
	}
	if c.width < 0 || c.height < 0 {
		return c, fmt.Errorf("invalid output size %dx%d", c.width, c.height)
	}
	if _, err := geometry.FromDegrees(c.rotation); err != nil {
		return c, err
	}

	var err error
	if c.scale, err = geometry.ParseScaleType(scale); err != nil {
		return c, err
	}
	if c.filter, err = filter.ByName(filt); err != nil {
		return c, err
	}
	c.filterName = filt
	if c.bg, err = parseColor(bg); err != nil {
		return c, err
	}
	if c.camW, c.camH, err = parseSize(size); err != nil {
		return c, err
	}
	return c, nil
}

func parseColor(s string) ([3]float32, error) {
	var rgb [3]float32
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return rgb, fmt.Errorf("color %q: want r,g,b", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return rgb, fmt.Errorf("color %q: %w", s, err)
		}
		if v < 0 || v > 1 {
			return rgb, fmt.Errorf("color %q: component %g outside [0, 1]", s, v)
		}
		rgb[i] = float32(v)
	}
	return rgb, nil
}

func parseSize(s string) (width, height int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	if width, err = strconv.Atoi(ws); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if height, err = strconv.Atoi(hs); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("size %q: must be positive", s)
	}
	return width, height, nil
}

// framebufferReader is the readback side of the software and native
// devices.
type framebufferReader func() (*image.RGBA, error)

// closableDevice is a device the command opened and must close.
type closableDevice interface {
	gpucore.Device
	Close()
}

func openDevice(c config) (closableDevice, framebufferReader, error) {
	switch c.backend {
	case backend.NameSoftware:
		d := software.New(software.WithShaderValidation(c.validate))
		return d, func() (*image.RGBA, error) { return d.Framebuffer(), nil }, nil
	case backend.NameNative:
		d, err := native.Open()
		if err != nil {
			return nil, nil, err
		}
		return d, d.Framebuffer, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", backend.ErrBackendNotAvailable, c.backend)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	c, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	gpuimage.SetLogger(logger)
	backend.SetLogger(logger)

	var img image.Image
	if c.capture <= 0 {
		if img, err = decode(c.in); err != nil {
			return err
		}
	}

	w, h := c.width, c.height
	if w == 0 || h == 0 {
		b := image.Rect(0, 0, c.camW, c.camH)
		if img != nil {
			b = img.Bounds()
		}
		if w == 0 {
			w = b.Dx()
		}
		if h == 0 {
			h = b.Dy()
		}
	}

	dev, readback, err := openDevice(c)
	if err != nil {
		return err
	}
	defer dev.Close()

	rot, _ := geometry.FromDegrees(c.rotation)
	r, err := gpuimage.New(c.filter,
		gpuimage.WithDevice(dev),
		gpuimage.WithScaleType(c.scale),
		gpuimage.WithBackgroundColor(c.bg[0], c.bg[1], c.bg[2]),
		gpuimage.WithRotation(rot, c.flipH, c.flipV),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	r.OnSurfaceCreated()
	r.OnSurfaceChanged(w, h)

	if img != nil {
		r.SetImage(img, false)
		r.OnDrawFrame()
	} else if err := renderCapture(ctx, r, c); err != nil {
		return err
	}

	if s := r.Stats(); s.DrawErrors > 0 || s.TaskFailures > 0 {
		return fmt.Errorf("render failed: %d draw errors, %d task failures", s.DrawErrors, s.TaskFailures)
	}

	out, err := readback()
	if err != nil {
		return fmt.Errorf("read framebuffer: %w", err)
	}
	if err := writePNG(c.out, out); err != nil {
		return err
	}
	logger.Info("gpuimage: wrote output", "path", c.out, "width", w, "height", h,
		"filter", c.filterName, "backend", c.backend)
	return nil
}

// renderCapture draws frames on the calling goroutine until c.capture
// camera frames have been uploaded. Capture setup runs on another
// goroutine because it waits for the next frame.
func renderCapture(ctx context.Context, r *gpuimage.Renderer, c config) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	src := capture.NewSyntheticSource(c.camW, c.camH, 5*time.Millisecond)
	setup := make(chan error, 1)
	go func() { setup <- r.SetUpCaptureContext(ctx, src) }()

	frames := uint64(c.capture)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for r.Stats().CaptureFramesUploaded < frames {
		select {
		case err := <-setup:
			if err != nil {
				return err
			}
			setup = nil
		case <-ctx.Done():
			return fmt.Errorf("capture: %d of %d frames: %w", r.Stats().CaptureFramesUploaded, frames, ctx.Err())
		case <-ticker.C:
		}
		r.OnDrawFrame()
	}

	r.StopCapture()
	r.OnDrawFrame()
	return nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	gpuimage.Logger().Debug("gpuimage: decoded input", "path", path, "format", format, "bounds", img.Bounds())
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
