package gputest

import "github.com/Carmen-Shannon/helix/engine/renderer/gpu"

// Fixed handle values used by NewHandles. Tests compare recorded arguments against these.
const (
	BackBuffer       gpu.RenderTargetView   = 100
	BackDepthStencil gpu.DepthStencilView   = 101
	AlbedoRTV        gpu.RenderTargetView   = 110
	NormalRTV        gpu.RenderTargetView   = 111
	DepthRTV         gpu.RenderTargetView   = 112
	AlbedoSRV        gpu.ShaderResourceView = 120
	NormalSRV        gpu.ShaderResourceView = 121
	DepthSRV         gpu.ShaderResourceView = 122
	GBufferDSV       gpu.DepthStencilView   = 130
	GBufferDSSRV     gpu.ShaderResourceView = 131

	Rasterizer    gpu.RasterizerState   = 200
	GBufferBlend  gpu.BlendState        = 201
	GBufferDepth  gpu.DepthStencilState = 202
	LightingBlend gpu.BlendState        = 203
	LightingDepth gpu.DepthStencilState = 204
	Sampler       gpu.SamplerState      = 205

	FrameConstants  gpu.Buffer = 300
	ObjectConstants gpu.Buffer = 301
	LightConstants  gpu.Buffer = 302
	QuadVB          gpu.Buffer = 310
	QuadIB          gpu.Buffer = 311
)

// NewHandles returns a complete, valid DeviceHandles whose context and swap chain are rec.
//
// Parameters:
//   - rec: the recorder that receives every device call
//   - width, height: the back buffer and G-buffer size
//
// Returns:
//   - gpu.DeviceHandles: handles that pass Validate
func NewHandles(rec *Recorder, width, height int) gpu.DeviceHandles {
	return gpu.DeviceHandles{
		Context:          rec,
		SwapChain:        rec,
		BackBuffer:       BackBuffer,
		BackDepthStencil: BackDepthStencil,
		BackWidth:        width,
		BackHeight:       height,
		GBuffer: gpu.Attachments{
			Albedo:          gpu.Target{RTV: AlbedoRTV, SRV: AlbedoSRV},
			Normal:          gpu.Target{RTV: NormalRTV, SRV: NormalSRV},
			Depth:           gpu.Target{RTV: DepthRTV, SRV: DepthSRV},
			DepthStencil:    GBufferDSV,
			DepthStencilSRV: GBufferDSSRV,
			Width:           width,
			Height:          height,
		},
		States: gpu.States{
			Rasterizer:    Rasterizer,
			GBufferBlend:  GBufferBlend,
			GBufferDepth:  GBufferDepth,
			LightingBlend: LightingBlend,
			LightingDepth: LightingDepth,
			Sampler:       Sampler,
		},
		Constants: gpu.ConstantBuffers{
			Frame:  FrameConstants,
			Object: ObjectConstants,
			Light:  LightConstants,
		},
		QuadVB: QuadVB,
		QuadIB: QuadIB,
	}
}
