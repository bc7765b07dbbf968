package capture

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpuimage/internal/parallel"
)

// minRowsPerBand keeps small frames on a single goroutine.
const minRowsPerBand = 32

// NV21Converter converts NV21 frames to RGBA using full-range BT.601
// coefficients. Rows are split across a worker pool.
//
// NV21Converter is safe for concurrent use.
type NV21Converter struct {
	once sync.Once
	pool *parallel.WorkerPool
}

// NewNV21Converter returns a converter using the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used. Call Close to stop the
// workers.
func NewNV21Converter(workers int) *NV21Converter {
	return &NV21Converter{pool: parallel.NewWorkerPool(workers)}
}

// Convert implements Converter.
func (c *NV21Converter) Convert(yuv []byte, width, height int, dst []byte) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrFrameSize, width, height)
	}
	if need := NV21Size(width, height); len(yuv) < need {
		return fmt.Errorf("%w: yuv has %d bytes, want %d", ErrFrameSize, len(yuv), need)
	}
	if need := width * height * 4; len(dst) < need {
		return fmt.Errorf("%w: dst has %d bytes, want %d", ErrFrameSize, len(dst), need)
	}
	if !c.pool.IsRunning() {
		return ErrClosed
	}

	c.pool.ForRows(height, minRowsPerBand, func(y0, y1 int) {
		convertRows(yuv, width, height, dst, y0, y1)
	})
	return nil
}

// Close stops the worker pool.
func (c *NV21Converter) Close() {
	c.once.Do(c.pool.Close)
}

// convertRows converts rows [y0, y1).
func convertRows(yuv []byte, width, height int, dst []byte, y0, y1 int) {
	chromaStride := 2 * ((width + 1) / 2)
	chroma := yuv[width*height:]

	for y := y0; y < y1; y++ {
		lum := yuv[y*width : (y+1)*width]
		vu := chroma[(y/2)*chromaStride:]
		out := dst[y*width*4 : (y+1)*width*4]

		for x := range width {
			c := x &^ 1
			v := int32(vu[c]) - 128
			u := int32(vu[c+1]) - 128
			r, g, b := yuvToRGB(int32(lum[x]), u, v)
			i := x * 4
			out[i+0] = r
			out[i+1] = g
			out[i+2] = b
			out[i+3] = 0xff
		}
	}
}

// yuvToRGB uses 16.16 fixed point:
//
//	R = Y + 1.370705 V
//	G = Y - 0.698001 V - 0.337633 U
//	B = Y + 1.732446 U
func yuvToRGB(y, u, v int32) (r, g, b uint8) {
	const (
		rv = 89830  // 1.370705
		gv = 45744  // 0.698001
		gu = 22127  // 0.337633
		bu = 113538 // 1.732446
	)
	yy := y << 16
	return clampByte((yy + rv*v) >> 16),
		clampByte((yy - gv*v - gu*u) >> 16),
		clampByte((yy + bu*u) >> 16)
}

func clampByte(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// rgbToYUV is the inverse of yuvToRGB, used to synthesize frames.
func rgbToYUV(r, g, b uint8) (y, u, v uint8) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	yf := 0.299*rf + 0.587*gf + 0.114*bf
	uf := (bf-yf)/1.732446 + 128
	vf := (rf-yf)/1.370705 + 128
	return clampFloat(yf), clampFloat(uf), clampFloat(vf)
}

func clampFloat(v float64) uint8 {
	v += 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
