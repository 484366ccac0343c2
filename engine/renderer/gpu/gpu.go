// Package gpu defines the device-facing contract of the deferred renderer: opaque resource handles,
// the stateful command Context the render goroutine drives, and the set of pre-created resources
// the renderer consumes at initialization.
//
// Handles are plain identifiers. The zero value of every handle type is the null handle.
// A device implementation maps identifiers to its own resource objects.
package gpu

// Handle types. Each is distinct so that a render target cannot be bound where a shader view is expected.
type (
	Buffer             uint64
	RenderTargetView   uint64
	DepthStencilView   uint64
	ShaderResourceView uint64
	BlendState         uint64
	DepthStencilState  uint64
	RasterizerState    uint64
	SamplerState       uint64
	InputLayout        uint64
	VertexShader       uint64
	PixelShader        uint64
)

// handle is the type set shared by all handle types.
type handle interface {
	~uint64
}

// IsNull reports whether h is the null handle.
func IsNull[H handle](h H) bool {
	return h == 0
}

// MaxConstantSlots is the number of constant buffer slots available per shader stage.
const MaxConstantSlots = 14

// Constant buffer slots used by the deferred renderer.
const (
	FrameConstantSlot  = 0
	ObjectConstantSlot = 1
	LightConstantSlot  = 3
)

// MaxResourceSlots is the number of shader resource slots available to the pixel stage.
const MaxResourceSlots = 16

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// Topology selects how the index stream is assembled into primitives.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
)

// String returns the topology name.
func (t Topology) String() string {
	switch t {
	case TopologyTriangleList:
		return "TriangleList"
	case TopologyTriangleStrip:
		return "TriangleStrip"
	default:
		return "Unknown"
	}
}

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// Context is the stateful command interface the render goroutine issues all device work through.
// State set on the Context persists until it is set again. A Context is owned by one goroutine.
type Context interface {
	// ClearRenderTarget fills a render target with c.
	ClearRenderTarget(rtv RenderTargetView, c Color)

	// ClearDepth fills the depth plane of a depth-stencil view with depth. Stencil is untouched.
	ClearDepth(dsv DepthStencilView, depth float32)

	// SetRenderTargets binds up to len(rtvs) simultaneous color targets and an optional depth-stencil view.
	SetRenderTargets(rtvs []RenderTargetView, dsv DepthStencilView)

	SetDepthStencilState(s DepthStencilState)
	SetBlendState(s BlendState)
	SetRasterizerState(s RasterizerState)

	// SetPSResources binds shader-readable views to consecutive pixel stage slots starting at start.
	// A null view unbinds the slot.
	SetPSResources(start int, views []ShaderResourceView)

	// SetPSSamplers binds samplers to consecutive pixel stage slots starting at start.
	SetPSSamplers(start int, samplers []SamplerState)

	// WriteConstants replaces the contents of a constant buffer.
	WriteConstants(buf Buffer, data []byte)

	// SetVSConstants binds a constant buffer to a vertex stage slot.
	SetVSConstants(slot int, buf Buffer)

	// SetPSConstants binds a constant buffer to a pixel stage slot.
	SetPSConstants(slot int, buf Buffer)

	SetInputLayout(l InputLayout)
	SetVertexBuffer(buf Buffer, stride uint32)
	SetIndexBuffer(buf Buffer, format IndexFormat)
	SetTopology(t Topology)

	// SetShaders binds the vertex and pixel programs. Other stages are left unbound.
	SetShaders(vs VertexShader, ps PixelShader)

	// DrawIndexed issues an indexed draw using all currently bound state.
	DrawIndexed(indexCount uint32)
}

// SwapChain presents the back buffer.
type SwapChain interface {
	// Present shows the frame. Blocks only as long as the presentation surface requires.
	Present() error
}

// Resizer is implemented by devices that can recreate their size-dependent resources.
// The returned handles replace the previous back buffer and G-buffer set.
type Resizer interface {
	Resize(width, height int) (DeviceHandles, error)
}
