package native

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuimage/gpucore"
	"github.com/gogpu/gpuimage/internal/cache"
)

// targetFormat is the render target format.
const targetFormat = gputypes.TextureFormatRGBA8Unorm

// A quad vertex is position (x, y) followed by texture coordinate (u, v).
const (
	vertexStride   = 4 * 4
	quadBufferSize = 4 * vertexStride
)

// errNoWGSL is returned for programs that carry no WGSL source.
var errNoWGSL = errors.New("native: program has no WGSL source")

// passthroughWGSL draws the input texture unchanged. It backs draws with
// no program bound.
const passthroughWGSL = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@group(0) @binding(0) var input_texture: texture_2d<f32>;
@group(0) @binding(1) var input_sampler: sampler;

@vertex
fn vs_main(@location(0) position: vec2<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(position, 0.0, 1.0);
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(input_texture, input_sampler, in.uv);
}
`

type program struct {
	name     string
	pipeline hal.RenderPipeline
}

// compileSPIRV compiles WGSL to SPIR-V words. SPIR-V is little-endian.
func compileSPIRV(wgsl string) ([]uint32, error) {
	b, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("failed to compile shader: SPIR-V size %d not a multiple of 4", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}

// CreateProgram implements gpucore.Device. The WGSL source is compiled
// once per distinct source text. Shader modules carry both the WGSL and
// the SPIR-V so backends without a SPIR-V path can translate themselves.
func (d *Device) CreateProgram(src gpucore.ProgramSource) (gpucore.ProgramID, error) {
	if src.WGSL == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: %q", errNoWGSL, src.Name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	p, err := d.createProgram(src.Name, src.WGSL)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ProgramID(d.newID())
	d.programs[id] = p
	d.log().Debug("native: program created", "name", src.Name, "id", uint64(id))
	return id, nil
}

func (d *Device) createProgram(name, wgsl string) (*program, error) {
	words, err := d.spirv.GetOrCreate(cache.KeyOf(wgsl), func() ([]uint32, error) {
		return compileSPIRV(wgsl)
	})
	if err != nil {
		return nil, fmt.Errorf("native: program %q: %w", name, err)
	}

	module, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name,
		Source: hal.ShaderSource{WGSL: wgsl, SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("native: program %q: create shader module: %w", name, err)
	}
	defer d.dev.DestroyShaderModule(module)

	pipeline, err := d.dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  name,
		Layout: d.pipelineLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: vertexStride,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
				},
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    targetFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: program %q: create pipeline: %w", name, err)
	}
	return &program{name: name, pipeline: pipeline}, nil
}

// DeleteProgram implements gpucore.Device.
func (d *Device) DeleteProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[id]
	if !ok {
		return
	}
	delete(d.programs, id)
	if d.current == id {
		d.current = gpucore.InvalidID
	}
	d.dev.DestroyRenderPipeline(p.pipeline)
}

// UseProgram implements gpucore.Device.
func (d *Device) UseProgram(id gpucore.ProgramID) {
	d.mu.Lock()
	d.current = id
	d.mu.Unlock()
}

// ShaderCacheStats returns the hit and miss counts of the SPIR-V cache.
func (d *Device) ShaderCacheStats() cache.Stats {
	return d.spirv.Stats()
}

// pipelineFor returns the pipeline for id, the passthrough pipeline for
// InvalidID.
func (d *Device) pipelineFor(id gpucore.ProgramID) (hal.RenderPipeline, error) {
	if id != gpucore.InvalidID {
		p, ok := d.programs[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownProgram, id)
		}
		return p.pipeline, nil
	}
	if d.passthrough == nil {
		p, err := d.createProgram("passthrough", passthroughWGSL)
		if err != nil {
			return nil, err
		}
		d.passthrough = p
	}
	return d.passthrough.pipeline, nil
}
