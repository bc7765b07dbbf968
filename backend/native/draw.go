package native

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuimage/gpucore"
)

// copyPitchAlignment is the BytesPerRow alignment of texture to buffer
// copies.
const copyPitchAlignment = 256

// Clear implements gpucore.Device. Like glClear it fills the whole render
// target, not only the viewport.
func (d *Device) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.fb == nil {
		return
	}
	err := d.submitPass("gpuimage_clear", gputypes.LoadOpClear, nil)
	if err != nil {
		d.log().Error("native: clear", "err", err)
	}
}

// DrawQuad implements gpucore.Device.
func (d *Device) DrawQuad(q gpucore.DrawQuad) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.fb == nil {
		return nil
	}
	t, ok := d.textures[q.Texture]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, q.Texture)
	}
	pipeline, err := d.pipelineFor(q.Program)
	if err != nil {
		return err
	}
	group, err := d.bindGroup(t)
	if err != nil {
		return err
	}
	if err := d.queue.WriteBuffer(d.vertices, 0, quadBytes(q)); err != nil {
		return fmt.Errorf("native: write vertices: %w", err)
	}

	return d.submitPass("gpuimage_draw", gputypes.LoadOpLoad, func(rp hal.RenderPassEncoder) {
		vx, vy, vw, vh := d.viewportRect()
		rp.SetViewport(vx, vy, vw, vh, 0, 1)
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, group, nil)
		rp.SetVertexBuffer(0, d.vertices, 0)
		rp.Draw(4, 1, 0, 0)
	})
}

// viewportRect converts the bottom-left based viewport to the top-left
// origin of the render target.
func (d *Device) viewportRect() (x, y, width, height float32) {
	vp := d.viewport
	top := d.fb.height - vp[1] - vp[3]
	return float32(vp[0]), float32(top), float32(vp[2]), float32(vp[3])
}

// quadBytes interleaves the quad corners with their texture coordinates.
func quadBytes(q gpucore.DrawQuad) []byte {
	b := make([]byte, quadBufferSize)
	for i := range 4 {
		off := i * vertexStride
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(q.Vertices[2*i]))
		binary.LittleEndian.PutUint32(b[off+4:], math.Float32bits(q.Vertices[2*i+1]))
		binary.LittleEndian.PutUint32(b[off+8:], math.Float32bits(q.TexCoords[2*i]))
		binary.LittleEndian.PutUint32(b[off+12:], math.Float32bits(q.TexCoords[2*i+1]))
	}
	return b
}

// submitPass records one render pass on the target, submits it and waits
// for the GPU. record may be nil for a clear-only pass.
func (d *Device) submitPass(label string, load gputypes.LoadOp, record func(hal.RenderPassEncoder)) error {
	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       d.fb.view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: d.clearColor,
		}},
	})
	if record != nil {
		record(rp)
	}
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	return d.submit(cmd)
}

// submit submits cmd and waits until the GPU is idle, so the shared vertex
// buffer can be rewritten by the next draw.
func (d *Device) submit(cmd hal.CommandBuffer) error {
	defer d.dev.FreeCommandBuffer(cmd)
	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := d.dev.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	return nil
}

// Framebuffer reads the render target back into an image. It returns nil
// before the first Viewport call.
func (d *Device) Framebuffer() (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if d.fb == nil {
		return nil, nil
	}

	w, h := uint32(d.fb.width), uint32(d.fb.height)
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "gpuimage_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer d.dev.DestroyBuffer(staging)

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "gpuimage_readback"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("gpuimage_readback"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}

	// The target leaves the render pass as an attachment; copies need it
	// as a copy source.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.fb.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(d.fb.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: d.fb.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.fb.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding: %w", err)
	}
	if err := d.submit(cmd); err != nil {
		return nil, fmt.Errorf("native: readback: %w", err)
	}

	mapping, err := d.dev.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("native: map staging buffer: %w", err)
	}
	defer func() {
		if err := d.dev.UnmapBuffer(staging); err != nil {
			d.log().Warn("native: unmap staging buffer", "err", err)
		}
	}()
	if mapping.Ptr == nil {
		return nil, fmt.Errorf("native: map staging buffer: nil mapping")
	}
	src := unsafe.Slice((*byte)(mapping.Ptr), size)

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := range int(h) {
		s := row * int(alignedBytesPerRow)
		copy(img.Pix[row*img.Stride:row*img.Stride+int(bytesPerRow)], src[s:s+int(bytesPerRow)])
	}
	return img, nil
}
