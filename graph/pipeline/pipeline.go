// Package pipeline builds and caches a DynamicPipeline per node definition:
// a WebGPU render pipeline assembled at runtime from a node's WGSL shader
// source and its declared inputs, following §4.F of the node-graph
// compositor spec this engine implements.
package pipeline

import (
	"fmt"
	"log"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-compositor/engine/graph"
	"github.com/oxy-compositor/engine/graph/library"
)

// minParamsBufferSize is the minimum uniform buffer allocation, satisfying
// std140-like binding rules even for shaders with no packed parameters.
// This is 32 bytes, not the 16 a naive single-binding minimum would use —
// some driver/validation layers reject a 16-byte uniform binding shared
// with certain bind group layouts, so the engine reserves double the bare
// minimum.
const minParamsBufferSize = 32

// shaderParam is one non-Frame/Midi input packed into the uniform buffer,
// its byte offset fixed once at pipeline construction.
type shaderParam struct {
	name   string
	kind   library.NodeInputKind
	offset int
}

// DynamicPipeline is a render pipeline assembled at runtime from one
// node's shader source, cached and reused across executions of that node.
type DynamicPipeline interface {
	// Name returns the node definition name this pipeline was built for.
	Name() string

	// FrameInputCount returns T, the number of Frame-typed inputs this
	// node declares (and therefore the number of texture bindings between
	// the sampler and the uniform buffer).
	FrameInputCount() int

	// Apply packs params into the uniform buffer, builds a bind group
	// from the sampler, the given texture views (len(textures) must equal
	// FrameInputCount(), primary view first), and the uniform buffer, then
	// records a render pass drawing a full-screen triangle into output.
	//
	// Parameters:
	//   - device: the GPU device to allocate transient bind-group state from
	//   - queue: the GPU queue to push the uniform buffer write through
	//   - encoder: the command encoder to record the render pass into
	//   - output: the view to render into
	//   - textures: this node's resolved Frame inputs, primary first
	//   - params: resolved non-Frame/Midi input values, keyed by input name
	Apply(device *wgpu.Device, queue *wgpu.Queue, encoder *wgpu.CommandEncoder, output *wgpu.TextureView, textures []*wgpu.TextureView, params map[string]graph.ResolvedInput) error
}

// dynamicPipeline is the only implementation of DynamicPipeline.
type dynamicPipeline struct {
	name           string
	sampler        *wgpu.Sampler
	bgl            *wgpu.BindGroupLayout
	renderPipeline *wgpu.RenderPipeline
	paramsBuf      *wgpu.Buffer
	paramLayout    []shaderParam
	paramsSize     int
	frameInputs    int
}

var _ DynamicPipeline = &dynamicPipeline{}

// FromShader creates a DynamicPipeline for definition, compiling shaderCode
// as both the vertex and fragment stage (entry points vs_main/fs_main) and
// rendering into targetFormat.
func FromShader(device *wgpu.Device, shaderCode string, definition library.NodeDefinition, targetFormat wgpu.TextureFormat) (DynamicPipeline, error) {
	node := definition.Node()

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        "sampler/" + node.Name,
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
		LodMaxClamp:  32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create sampler for %s: %w", node.Name, err)
	}

	paramLayout := buildParamLayout(node.Inputs)
	frameInputs := countFrameInputs(node.Inputs)
	paramsSize := calculateParamsSize(paramLayout)

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "bgl/" + node.Name,
		Entries: bindGroupLayoutEntries(frameInputs),
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create bind group layout for %s: %w", node.Name, err)
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "layout/" + node.Name,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create pipeline layout for %s: %w", node.Name, err)
	}

	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "shader/" + node.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaderCode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: compile shader for %s: %w", node.Name, err)
	}

	renderPipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "pipeline/" + node.Name,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    targetFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create render pipeline for %s: %w", node.Name, err)
	}

	paramsBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ubo/" + node.Name + "_params",
		Size:  uint64(paramsSize),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create params buffer for %s: %w", node.Name, err)
	}

	return &dynamicPipeline{
		name:           node.Name,
		sampler:        sampler,
		bgl:            bgl,
		renderPipeline: renderPipeline,
		paramsBuf:      paramsBuf,
		paramLayout:    paramLayout,
		paramsSize:     paramsSize,
		frameInputs:    frameInputs,
	}, nil
}

func (p *dynamicPipeline) Name() string         { return p.name }
func (p *dynamicPipeline) FrameInputCount() int { return p.frameInputs }

func (p *dynamicPipeline) Apply(device *wgpu.Device, queue *wgpu.Queue, encoder *wgpu.CommandEncoder, output *wgpu.TextureView, textures []*wgpu.TextureView, params map[string]graph.ResolvedInput) error {
	if len(textures) != p.frameInputs {
		return fmt.Errorf("pipeline: %s expects %d frame textures, got %d", p.name, p.frameInputs, len(textures))
	}

	buf := make([]byte, p.paramsSize)
	for _, param := range p.paramLayout {
		value, ok := params[param.name]
		if !ok {
			continue
		}
		if !writeParam(buf, param, value) {
			log.Printf("pipeline: %s: type mismatch for parameter %q, leaving zeroed", p.name, param.name)
		}
	}
	queue.WriteBuffer(p.paramsBuf, 0, buf)

	entries := make([]wgpu.BindGroupEntry, 0, 2+len(textures))
	entries = append(entries, wgpu.BindGroupEntry{Binding: 0, Sampler: p.sampler})
	for i, tv := range textures {
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(1 + i), TextureView: tv})
	}
	entries = append(entries, wgpu.BindGroupEntry{
		Binding: uint32(1 + p.frameInputs),
		Buffer:  p.paramsBuf,
		Offset:  0,
		Size:    wgpu.WholeSize,
	})

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "bg/" + p.name,
		Layout:  p.bgl,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("pipeline: %s: create bind group: %w", p.name, err)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "pass/" + p.name,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    output,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	pass.SetPipeline(p.renderPipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	return nil
}

// bindGroupLayoutEntries builds the §4.F layout: sampler at 0, frameInputs
// textures at 1..1+T, uniform buffer at 1+T.
func bindGroupLayoutEntries(frameInputs int) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, 2+frameInputs)

	entries = append(entries, wgpu.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: wgpu.ShaderStageFragment,
		Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
	})

	for i := 0; i < frameInputs; i++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(1 + i),
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}

	entries = append(entries, wgpu.BindGroupLayoutEntry{
		Binding:    uint32(1 + frameInputs),
		Visibility: wgpu.ShaderStageFragment,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: 0,
		},
	})

	return entries
}

func countFrameInputs(inputs []library.NodeInput) int {
	count := 0
	for _, in := range inputs {
		if _, ok := in.Kind.(library.FrameKind); ok {
			count++
		}
	}
	return count
}

// buildParamLayout assigns a 4-byte-aligned offset to every non-Frame/Midi
// input, in declaration order, matching spec.md §4.F's packing rule.
func buildParamLayout(inputs []library.NodeInput) []shaderParam {
	var params []shaderParam
	offset := 0

	for _, in := range inputs {
		switch in.Kind.(type) {
		case library.FrameKind, library.MidiKind:
			continue
		}

		params = append(params, shaderParam{name: in.Name, kind: in.Kind, offset: offset})
		offset += align4(paramByteSize(in.Kind))
	}

	return params
}

func paramByteSize(kind library.NodeInputKind) int {
	switch kind.(type) {
	case library.BoolKind:
		return 4
	case library.IntKind:
		return 4
	case library.FloatKind:
		return 4
	case library.PixelKind:
		return 16
	case library.DimensionsKind:
		return 8
	case library.EnumKind:
		return 4
	default: // Text, File
		return 0
	}
}

func align4(size int) int { return (size + 3) &^ 3 }

// calculateParamsSize rounds the packed layout's total size up to a
// 16-byte multiple, with a floor of minParamsBufferSize.
func calculateParamsSize(layout []shaderParam) int {
	if len(layout) == 0 {
		return minParamsBufferSize
	}

	last := layout[len(layout)-1]
	size := last.offset + paramByteSize(last.kind)
	size = (size + 15) &^ 15

	if size < minParamsBufferSize {
		return minParamsBufferSize
	}
	return size
}

// writeParam writes value's little-endian bytes into buf at param's
// offset. Returns false on a kind/value mismatch, leaving buf untouched at
// that offset (the caller logs and proceeds with a zeroed field, matching
// spec.md §4.F step 1).
func writeParam(buf []byte, param shaderParam, value graph.ResolvedInput) bool {
	off := param.offset

	switch k := param.kind.(type) {
	case library.BoolKind:
		b, ok := value.(graph.ResolvedBool)
		if !ok {
			return false
		}
		var v uint32
		if b {
			v = 1
		}
		putU32(buf[off:], v)
	case library.IntKind:
		i, ok := value.(graph.ResolvedInt)
		if !ok {
			return false
		}
		putU32(buf[off:], uint32(int32(i)))
	case library.FloatKind:
		f, ok := value.(graph.ResolvedFloat)
		if !ok {
			return false
		}
		putF32(buf[off:], float32(f))
	case library.PixelKind:
		p, ok := value.(graph.ResolvedPixel)
		if !ok {
			return false
		}
		putF32(buf[off:], p.R)
		putF32(buf[off+4:], p.G)
		putF32(buf[off+8:], p.B)
		putF32(buf[off+12:], p.A)
	case library.DimensionsKind:
		d, ok := value.(graph.ResolvedDimensions)
		if !ok {
			return false
		}
		putU32(buf[off:], d.Width)
		putU32(buf[off+4:], d.Height)
	case library.EnumKind:
		e, ok := value.(graph.ResolvedEnum)
		if !ok {
			return false
		}
		putU32(buf[off:], uint32(e))
	case library.TextKind, library.FileKindInput:
		// Text and File occupy no bytes; there is nothing to pack.
		return true
	default:
		_ = k
		return false
	}

	return true
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putF32(b []byte, f float32) {
	putU32(b, math.Float32bits(f))
}
