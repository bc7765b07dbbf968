package software

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/gpuimage/gpucore"
)

// minRowsPerBand keeps kernel bands large enough to amortize scheduling.
const minRowsPerBand = 16

var errDegenerateQuad = errors.New("software: degenerate texture quad")

// DrawQuad implements gpucore.Device.
//
// The quad is expected to be an axis-aligned rectangle after the
// rotations and flips the renderer produces; pixels of its bounding box
// are replaced (no blending).
func (d *Device) DrawQuad(q gpucore.DrawQuad) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fb == nil || d.viewport.Empty() {
		return nil
	}
	t, ok := d.textures[q.Texture]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, q.Texture)
	}
	var kernel gpucore.Kernel
	if q.Program != gpucore.InvalidID {
		p, ok := d.programs[q.Program]
		if !ok {
			return fmt.Errorf("%w: %d", gpucore.ErrUnknownProgram, q.Program)
		}
		kernel = p.kernel
	}

	src := t.img
	sw, sh := float64(src.Bounds().Dx()), float64(src.Bounds().Dy())

	var dst, tex [3][2]float64
	var bounds [4][2]float64
	for i := range 4 {
		px, py := d.toPixels(q.Vertices[2*i], q.Vertices[2*i+1])
		bounds[i] = [2]float64{px, py}
		if i < 3 {
			dst[i] = [2]float64{px, py}
			tex[i] = [2]float64{float64(q.TexCoords[2*i]) * sw, float64(q.TexCoords[2*i+1]) * sh}
		}
	}

	m, ok := affine(tex, dst)
	if !ok {
		return errDegenerateQuad
	}

	r := boundingBox(bounds).Intersect(d.viewport)
	if r.Empty() {
		return nil
	}
	scratch := d.scratchFor(r)
	draw.BiLinear.Transform(scratch, m, src, src.Bounds(), draw.Src, nil)

	if kernel != nil {
		d.applyKernel(scratch, kernel)
	}
	draw.Draw(d.fb, r, scratch, r.Min, draw.Src)
	return nil
}

// toPixels converts normalized device coordinates to framebuffer pixels,
// y pointing down.
func (d *Device) toPixels(x, y float32) (float64, float64) {
	vp := d.viewport
	px := float64(vp.Min.X) + (float64(x)+1)/2*float64(vp.Dx())
	py := float64(vp.Min.Y) + (1-float64(y))/2*float64(vp.Dy())
	return px, py
}

// scratchFor returns a cleared image with bounds r, reusing the previous
// allocation when it is large enough.
func (d *Device) scratchFor(r image.Rectangle) *image.RGBA {
	n := r.Dx() * r.Dy() * 4
	if d.scratch == nil || cap(d.scratch.Pix) < n {
		d.scratch = &image.RGBA{Pix: make([]byte, n)}
	}
	s := d.scratch
	s.Pix = s.Pix[:n]
	clear(s.Pix)
	s.Stride = r.Dx() * 4
	s.Rect = r
	return s
}

func (d *Device) applyKernel(img *image.RGBA, kernel gpucore.Kernel) {
	b := img.Bounds()
	w := b.Dx()
	d.pool.ForRows(b.Dy(), minRowsPerBand, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				r, g, bl, a := kernel(
					float32(row[i])/255,
					float32(row[i+1])/255,
					float32(row[i+2])/255,
					float32(row[i+3])/255,
				)
				row[i] = to8(r)
				row[i+1] = to8(g)
				row[i+2] = to8(bl)
				row[i+3] = to8(a)
			}
		}
	})
}

// affine returns the transform mapping the three src points onto the
// three dst points.
func affine(src, dst [3][2]float64) (f64.Aff3, bool) {
	e1x, e1y := src[1][0]-src[0][0], src[1][1]-src[0][1]
	e2x, e2y := src[2][0]-src[0][0], src[2][1]-src[0][1]
	det := e1x*e2y - e2x*e1y
	if math.Abs(det) < 1e-9 {
		return f64.Aff3{}, false
	}
	f1x, f1y := dst[1][0]-dst[0][0], dst[1][1]-dst[0][1]
	f2x, f2y := dst[2][0]-dst[0][0], dst[2][1]-dst[0][1]

	// A = F * inverse(E)
	inv := [4]float64{e2y / det, -e2x / det, -e1y / det, e1x / det}
	a00 := f1x*inv[0] + f2x*inv[2]
	a01 := f1x*inv[1] + f2x*inv[3]
	a10 := f1y*inv[0] + f2y*inv[2]
	a11 := f1y*inv[1] + f2y*inv[3]

	tx := dst[0][0] - (a00*src[0][0] + a01*src[0][1])
	ty := dst[0][1] - (a10*src[0][0] + a11*src[0][1])
	return f64.Aff3{a00, a01, tx, a10, a11, ty}, true
}

func boundingBox(pts [4][2]float64) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = min(minX, p[0]), max(maxX, p[0])
		minY, maxY = min(minY, p[1]), max(maxY, p[1])
	}
	return image.Rect(
		int(math.Round(minX)), int(math.Round(minY)),
		int(math.Round(maxX)), int(math.Round(maxY)),
	)
}
