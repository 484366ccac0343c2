package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*Pipeline)

// WithStages sets the vertex and fragment stages.
//
// Parameters:
//   - vertex: the vertex stage
//   - fragment: the fragment stage
//
// Returns:
//   - PipelineBuilderOption: a function that sets the stages for this pipeline
func WithStages(vertex, fragment Stage) PipelineBuilderOption {
	return func(p *Pipeline) {
		p.vertex = vertex
		p.fragment = fragment
	}
}

// WithVertexLayout sets the layout of vertex buffer slot 0.
//
// Parameters:
//   - layout: the vertex buffer layout
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex layout for this pipeline
func WithVertexLayout(layout wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *Pipeline) {
		p.vertexLayout = layout
	}
}

// WithVertexStride overrides the stride of vertex buffer slot 0.
// A zero stride keeps the stride of the vertex layout.
//
// Parameters:
//   - stride: the byte stride of one vertex
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex stride for this pipeline
func WithVertexStride(stride uint32) PipelineBuilderOption {
	return func(p *Pipeline) {
		if stride > 0 {
			p.vertexLayout.ArrayStride = uint64(stride)
		}
	}
}

// WithBlend sets the blend applied to every color target.
func WithBlend(b Blend) PipelineBuilderOption {
	return func(p *Pipeline) {
		p.blend = b
	}
}

// WithDepth enables a depth attachment of the given format.
//
// Parameters:
//   - d: the depth test configuration
//   - format: the depth-stencil attachment format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth state for this pipeline
func WithDepth(d Depth, format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *Pipeline) {
		p.depth = d
		p.depthFormat = format
	}
}

// WithRaster sets the rasterizer configuration.
func WithRaster(r Raster) PipelineBuilderOption {
	return func(p *Pipeline) {
		p.raster = r
	}
}

// WithTopology sets the primitive topology. Strip topologies also record the index format
// used to detect strip restarts.
//
// Parameters:
//   - topology: the primitive topology
//   - indexFormat: the index buffer format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology, indexFormat wgpu.IndexFormat) PipelineBuilderOption {
	return func(p *Pipeline) {
		p.topology = topology
		p.indexFormat = indexFormat
	}
}

// WithTargets sets the formats of the color targets in binding order.
func WithTargets(formats ...wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *Pipeline) {
		p.targets = append([]wgpu.TextureFormat(nil), formats...)
	}
}
