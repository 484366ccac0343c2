// Package pipeline describes the fixed-function state of a WebGPU render pipeline and
// turns it into a wgpu.RenderPipelineDescriptor.
package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Stage is a shader module and the entry point run from it.
type Stage struct {
	Module *wgpu.ShaderModule
	Entry  string
}

// Blend is the blend applied to every color target of a pipeline.
type Blend struct {
	Enabled   bool
	State     wgpu.BlendState
	WriteMask wgpu.ColorWriteMask
}

// ReplaceBlend writes fragment output unmodified. Used while filling the G-buffer.
func ReplaceBlend() Blend {
	return Blend{WriteMask: wgpu.ColorWriteMaskAll}
}

// LightingBlend scales the light quad's output by itself and discards the destination:
// color is src*src + dst*0, alpha is src*1 + dst*0.
func LightingBlend() Blend {
	return Blend{
		Enabled: true,
		State: wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrc,
				DstFactor: wgpu.BlendFactorZero,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorZero,
				Operation: wgpu.BlendOperationAdd,
			},
		},
		WriteMask: wgpu.ColorWriteMaskAll,
	}
}

// Depth is the depth test configuration. Stencil is never used.
type Depth struct {
	TestEnabled  bool
	WriteEnabled bool
	Compare      wgpu.CompareFunction
}

// GBufferDepth tests and writes depth, passing fragments that are closer or equal.
func GBufferDepth() Depth {
	return Depth{TestEnabled: true, WriteEnabled: true, Compare: wgpu.CompareFunctionLessEqual}
}

// LightingDepth tests against the G-buffer depth without writing it.
func LightingDepth() Depth {
	return Depth{TestEnabled: true, Compare: wgpu.CompareFunctionLessEqual}
}

// Raster is the rasterizer configuration.
type Raster struct {
	CullMode  wgpu.CullMode
	FrontFace wgpu.FrontFace
}

// BackFaceCull culls back faces with clockwise front faces.
func BackFaceCull() Raster {
	return Raster{CullMode: wgpu.CullModeBack, FrontFace: wgpu.FrontFaceCW}
}

// Pipeline is the description of one render pipeline together with the device object
// built from it.
type Pipeline struct {
	label string

	vertex       Stage
	fragment     Stage
	vertexLayout wgpu.VertexBufferLayout

	blend       Blend
	depth       Depth
	depthFormat wgpu.TextureFormat
	raster      Raster

	topology    wgpu.PrimitiveTopology
	indexFormat wgpu.IndexFormat
	targets     []wgpu.TextureFormat

	renderPipeline *wgpu.RenderPipeline
}

// NewPipeline creates a pipeline description. Without options the pipeline draws
// triangle lists into no targets with replace blending, back-face culling and no depth.
//
// Parameters:
//   - label: the debug label
//   - options: functional options applied in order
//
// Returns:
//   - *Pipeline: the description
func NewPipeline(label string, options ...PipelineBuilderOption) *Pipeline {
	p := &Pipeline{
		label:       label,
		blend:       ReplaceBlend(),
		raster:      BackFaceCull(),
		topology:    wgpu.PrimitiveTopologyTriangleList,
		indexFormat: wgpu.IndexFormatUint16,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Label returns the debug label.
func (p *Pipeline) Label() string {
	return p.label
}

// Descriptor builds the creation descriptor for the pipeline.
//
// Parameters:
//   - layout: the pipeline layout holding the bind group layouts
//
// Returns:
//   - *wgpu.RenderPipelineDescriptor: the descriptor
func (p *Pipeline) Descriptor(layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor {
	targets := make([]wgpu.ColorTargetState, len(p.targets))
	for i, f := range p.targets {
		targets[i] = wgpu.ColorTargetState{Format: f, WriteMask: p.blend.WriteMask}
		if p.blend.Enabled {
			state := p.blend.State
			targets[i].Blend = &state
		}
	}

	primitive := wgpu.PrimitiveState{
		Topology:  p.topology,
		FrontFace: p.raster.FrontFace,
		CullMode:  p.raster.CullMode,
	}
	if p.topology == wgpu.PrimitiveTopologyTriangleStrip {
		primitive.StripIndexFormat = p.indexFormat
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     p.vertex.Module,
			EntryPoint: p.vertex.Entry,
			Buffers:    []wgpu.VertexBufferLayout{p.vertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fragment.Module,
			EntryPoint: p.fragment.Entry,
			Targets:    targets,
		},
		Primitive: primitive,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}

	if p.depthFormat != wgpu.TextureFormatUndefined {
		compare := p.depth.Compare
		if !p.depth.TestEnabled {
			compare = wgpu.CompareFunctionAlways
		}
		keep := wgpu.StencilFaceState{
			Compare:     wgpu.CompareFunctionAlways,
			FailOp:      wgpu.StencilOperationKeep,
			DepthFailOp: wgpu.StencilOperationKeep,
			PassOp:      wgpu.StencilOperationKeep,
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            p.depthFormat,
			DepthWriteEnabled: p.depth.WriteEnabled,
			DepthCompare:      compare,
			StencilFront:      keep,
			StencilBack:       keep,
		}
	}
	return desc
}

// Build creates the device pipeline. A pipeline already built is returned as is.
//
// Parameters:
//   - device: the device to create the pipeline on
//   - layout: the pipeline layout
//
// Returns:
//   - *wgpu.RenderPipeline: the device pipeline
//   - error: the creation error
func (p *Pipeline) Build(device *wgpu.Device, layout *wgpu.PipelineLayout) (*wgpu.RenderPipeline, error) {
	if p.renderPipeline != nil {
		return p.renderPipeline, nil
	}
	rp, err := device.CreateRenderPipeline(p.Descriptor(layout))
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", p.label, err)
	}
	p.renderPipeline = rp
	return rp, nil
}

// RenderPipeline returns the device pipeline, or nil before Build.
func (p *Pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

// Release frees the device pipeline.
func (p *Pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}

// PrimitiveTopology maps a gpu.Topology onto WebGPU.
func PrimitiveTopology(t gpu.Topology) wgpu.PrimitiveTopology {
	if t == gpu.TopologyTriangleStrip {
		return wgpu.PrimitiveTopologyTriangleStrip
	}
	return wgpu.PrimitiveTopologyTriangleList
}

// IndexFormat maps a gpu.IndexFormat onto WebGPU.
func IndexFormat(f gpu.IndexFormat) wgpu.IndexFormat {
	if f == gpu.IndexFormatUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}
