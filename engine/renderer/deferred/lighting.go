package deferred

import (
	"fmt"

	"github.com/Carmen-Shannon/helix/common"
	"github.com/Carmen-Shannon/helix/engine/assets"
	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
)

// LightingPass reads the G-buffer and accumulates one full-screen quad per point light into the
// back buffer. Depth testing runs against the G-buffer depth-stencil surface without writing it.
type LightingPass struct {
	ctx gpu.Context

	backBuffer gpu.RenderTargetView
	backDepth  gpu.DepthStencilView
	gbuffer    gpu.Attachments
	states     gpu.States

	lightCB gpu.Buffer
	quadVB  gpu.Buffer
	quadIB  gpu.Buffer

	shader *assets.Shader
	stride uint32

	backTarget [1]gpu.RenderTargetView
}

// NewLightingPass creates the lighting pass. shader is the lighting material's program pair;
// a missing handle is fatal.
//
// Parameters:
//   - h: the device handles
//   - shader: the resolved lighting shader
//
// Returns:
//   - *LightingPass: the pass
func NewLightingPass(h gpu.DeviceHandles, shader *assets.Shader) *LightingPass {
	const op = "lighting init"
	if h.Context == nil {
		gpu.Fatal(op, fmt.Errorf("context: %w", gpu.ErrNullHandle))
	}
	if shader == nil {
		gpu.Fatal(op, fmt.Errorf("lighting shader: %w", gpu.ErrNullHandle))
	}
	if err := h.GBuffer.Validate(); err != nil {
		gpu.Fatal(op, err)
	}
	requireHandle(op, "back buffer", h.BackBuffer)
	requireHandle(op, "back depth-stencil", h.BackDepthStencil)
	requireHandle(op, "light constant buffer", h.Constants.Light)
	requireHandle(op, "quad vertex buffer", h.QuadVB)
	requireHandle(op, "quad index buffer", h.QuadIB)
	requireHandle(op, "lighting depth state", h.States.LightingDepth)
	requireHandle(op, "lighting blend state", h.States.LightingBlend)
	requireHandle(op, "rasterizer state", h.States.Rasterizer)
	requireHandle(op, "lighting vertex shader", shader.VS)
	requireHandle(op, "lighting pixel shader", shader.PS)
	requireHandle(op, "lighting input layout", shader.InputLayout)
	requireSlot(op, gpu.LightConstantSlot)

	p := &LightingPass{
		ctx:     h.Context,
		states:  h.States,
		lightCB: h.Constants.Light,
		quadVB:  h.QuadVB,
		quadIB:  h.QuadIB,
		shader:  shader,
		stride:  common.Coalesce(shader.VertexStride, QuadVertexStride),
	}
	p.SetTargets(h.BackBuffer, h.BackDepthStencil, h.GBuffer)
	return p
}

// SetTargets replaces the back buffer and G-buffer, for example after a resize.
//
// Parameters:
//   - back: the presentable render target
//   - backDepth: the depth-stencil surface paired with the back buffer
//   - gbuffer: the G-buffer read by the pass
func (p *LightingPass) SetTargets(back gpu.RenderTargetView, backDepth gpu.DepthStencilView, gbuffer gpu.Attachments) {
	p.backBuffer = back
	p.backDepth = backDepth
	p.gbuffer = gbuffer
	p.backTarget[0] = back
}

// Execute shades every point light in lights and skips the other types.
// With no lights the back buffer is still cleared.
//
// Parameters:
//   - lights: the in-flight slot's light snapshot
//
// Returns:
//   - PassStats: one draw per point light, the rest counted as skipped
func (p *LightingPass) Execute(lights []light.Light) PassStats {
	ctx := p.ctx

	ctx.ClearRenderTarget(p.backBuffer, BackClearColor)
	ctx.ClearDepth(p.backDepth, ClearDepthValue)

	ctx.SetRenderTargets(p.backTarget[:], p.gbuffer.DepthStencil)
	ctx.SetDepthStencilState(p.states.LightingDepth)

	ctx.SetPSResources(0, nullViews[:])
	ctx.SetPSResources(0, p.gbuffer.ShaderViews())

	var stats PassStats
	for i := range lights {
		switch lights[i].Type {
		case light.LightTypePoint:
			p.drawPoint(&lights[i])
			stats.Draws++
			stats.Indices += QuadIndexCount
		default:
			stats.Skipped++
		}
	}

	ctx.SetPSResources(0, nullViews[:])
	return stats
}

func (p *LightingPass) drawPoint(l *light.Light) {
	ctx := p.ctx
	ctx.SetBlendState(p.states.LightingBlend)

	constants := light.NewPointLightConstants(*l)
	ctx.WriteConstants(p.lightCB, constants.Marshal())
	ctx.SetPSConstants(gpu.LightConstantSlot, p.lightCB)

	ctx.SetInputLayout(p.shader.InputLayout)
	ctx.SetVertexBuffer(p.quadVB, p.stride)
	ctx.SetIndexBuffer(p.quadIB, gpu.IndexFormatUint16)
	ctx.SetTopology(gpu.TopologyTriangleStrip)
	ctx.SetRasterizerState(p.states.Rasterizer)
	ctx.SetShaders(p.shader.VS, p.shader.PS)
	ctx.DrawIndexed(QuadIndexCount)
}
