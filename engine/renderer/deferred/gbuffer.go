package deferred

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/helix/engine/assets"
	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
	"github.com/Carmen-Shannon/helix/engine/submission"
)

// ParallelThreshold is the default minimum number of draws before object constants are
// prepared on the worker pool.
const ParallelThreshold = 64

// GBufferPass renders every draw request of a frame into the G-buffer.
type GBufferPass struct {
	ctx      gpu.Context
	targets  gpu.Attachments
	states   gpu.States
	objectCB gpu.Buffer

	shaders  assets.ShaderResolver
	textures assets.TextureResolver

	// constTasks feeds the constant workers once a frame has at least threshold draws.
	// Closing it stops every worker.
	constTasks chan worker.Task
	workers    int // 0 when constants are prepared inline
	threshold  int

	// Reused across frames.
	constants []frame.ObjectConstants
	upload    []byte
	texture   [1]gpu.ShaderResourceView // view bound at PS slot 0; null reads as white
}

// NewGBufferPass creates the geometry pass over the device handles. Missing handles are fatal.
//
// Parameters:
//   - h: the device handles; h.Context receives every command
//   - shaders: resolves each material's shader
//   - textures: resolves each material's texture
//   - options: functional options to configure the pass
//
// Returns:
//   - *GBufferPass: the pass
func NewGBufferPass(h gpu.DeviceHandles, shaders assets.ShaderResolver, textures assets.TextureResolver, options ...PassOption) *GBufferPass {
	const op = "gbuffer init"
	if h.Context == nil {
		gpu.Fatal(op, fmt.Errorf("context: %w", gpu.ErrNullHandle))
	}
	if err := h.GBuffer.Validate(); err != nil {
		gpu.Fatal(op, err)
	}
	requireHandle(op, "object constant buffer", h.Constants.Object)
	requireHandle(op, "gbuffer depth state", h.States.GBufferDepth)
	requireHandle(op, "gbuffer blend state", h.States.GBufferBlend)
	requireHandle(op, "rasterizer state", h.States.Rasterizer)
	requireSlot(op, gpu.ObjectConstantSlot)

	p := &GBufferPass{
		ctx:       h.Context,
		targets:   h.GBuffer,
		states:    h.States,
		objectCB:  h.Constants.Object,
		shaders:   shaders,
		textures:  textures,
		threshold: ParallelThreshold,
		upload:    make([]byte, frame.ObjectConstantsSize),
	}

	cfg := passConfig{}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.threshold > 0 {
		p.threshold = cfg.threshold
	}
	if cfg.workers > 1 {
		p.workers = cfg.workers
		p.constTasks = make(chan worker.Task, cfg.workers)
		stop := make(chan int)
		for id := range cfg.workers {
			worker.NewWorker(id, p.constTasks, stop, time.Second, nil).Start()
		}
	}
	return p
}

// SetAttachments replaces the G-buffer, for example after a resize.
//
// Parameters:
//   - a: the new attachment set; must pass Validate
func (p *GBufferPass) SetAttachments(a gpu.Attachments) {
	if err := a.Validate(); err != nil {
		gpu.Fatal("gbuffer resize", err)
	}
	p.targets = a
}

// Attachments returns the G-buffer the pass renders into.
func (p *GBufferPass) Attachments() gpu.Attachments {
	return p.targets
}

// Execute clears the G-buffer and draws every request in order. An empty frame still clears.
// A request whose mesh, material, shader or texture does not resolve to usable handles is fatal.
//
// Parameters:
//   - draws: the in-flight slot's draw requests
//   - fc: the frame context the object constants are derived from
//
// Returns:
//   - PassStats: draws and indices issued
func (p *GBufferPass) Execute(draws []submission.DrawRequest, fc *frame.Context) PassStats {
	ctx := p.ctx

	ctx.SetPSResources(0, nullViews[:])
	p.texture[0] = 0

	ctx.ClearRenderTarget(p.targets.Albedo.RTV, AlbedoClearColor)
	ctx.ClearRenderTarget(p.targets.Normal.RTV, NormalClearColor)
	ctx.ClearRenderTarget(p.targets.Depth.RTV, DepthClearColor)
	ctx.ClearDepth(p.targets.DepthStencil, ClearDepthValue)

	ctx.SetDepthStencilState(p.states.GBufferDepth)
	ctx.SetBlendState(p.states.GBufferBlend)
	ctx.SetRasterizerState(p.states.Rasterizer)
	ctx.SetRenderTargets(p.targets.RenderTargets(), p.targets.DepthStencil)

	constants := p.prepareConstants(draws, fc)

	var stats PassStats
	for i := range draws {
		p.draw(&draws[i], &constants[i])
		stats.Draws++
		stats.Indices += uint64(draws[i].Mesh.IndexCount)
	}
	return stats
}

func (p *GBufferPass) draw(d *submission.DrawRequest, oc *frame.ObjectConstants) {
	const op = "gbuffer draw"
	ctx := p.ctx

	mesh, mat := d.Mesh, d.Material
	if mesh == nil || mat == nil {
		gpu.Fatal(op, fmt.Errorf("unresolved draw request: %w", gpu.ErrNullHandle))
	}
	requireHandle(op, "vertex buffer of mesh "+mesh.Name, mesh.VertexBuffer)
	requireHandle(op, "index buffer of mesh "+mesh.Name, mesh.IndexBuffer)

	shader, err := p.shaders.ResolveShader(mat.ShaderName)
	if err != nil {
		gpu.Fatal(op, fmt.Errorf("material %q: %w", mat.Name, err))
	}
	requireHandle(op, "vertex shader "+shader.Name, shader.VS)
	requireHandle(op, "pixel shader "+shader.Name, shader.PS)
	requireHandle(op, "input layout "+shader.Name, shader.InputLayout)

	oc.MarshalTo(p.upload)
	ctx.WriteConstants(p.objectCB, p.upload)
	ctx.SetVSConstants(gpu.ObjectConstantSlot, p.objectCB)
	ctx.SetPSConstants(gpu.ObjectConstantSlot, p.objectCB)

	var view gpu.ShaderResourceView
	if mat.HasTexture() {
		view, err = p.textures.ResolveTexture(mat.TextureName)
		if err != nil {
			gpu.Fatal(op, fmt.Errorf("material %q: %w", mat.Name, err))
		}
		requireHandle(op, "texture "+mat.TextureName, view)
	}
	if view != p.texture[0] {
		p.texture[0] = view
		ctx.SetPSResources(0, p.texture[:])
	}

	ctx.SetInputLayout(shader.InputLayout)
	ctx.SetVertexBuffer(mesh.VertexBuffer, shader.VertexStride)
	ctx.SetIndexBuffer(mesh.IndexBuffer, gpu.IndexFormatUint16)
	ctx.SetTopology(gpu.TopologyTriangleList)
	ctx.SetShaders(shader.VS, shader.PS)
	ctx.DrawIndexed(mesh.IndexCount)
}

// prepareConstants computes the object constants of every draw into the reusable slice,
// keeping submission order.
func (p *GBufferPass) prepareConstants(draws []submission.DrawRequest, fc *frame.Context) []frame.ObjectConstants {
	if cap(p.constants) < len(draws) {
		p.constants = make([]frame.ObjectConstants, len(draws))
	}
	out := p.constants[:len(draws)]

	if p.workers == 0 || len(draws) < p.threshold {
		for i := range draws {
			out[i] = fc.ObjectConstants(draws[i].World)
		}
		return out
	}

	// Workers never report completion, so a WaitGroup is the frame barrier.
	chunk := (len(draws) + p.workers - 1) / p.workers
	var wg sync.WaitGroup
	for id, start := 0, 0; start < len(draws); id, start = id+1, start+chunk {
		end := min(start+chunk, len(draws))
		wg.Add(1)
		p.constTasks <- worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for i := start; i < end; i++ {
					out[i] = fc.ObjectConstants(draws[i].World)
				}
				return nil, nil
			},
		}
	}
	wg.Wait()
	return out
}

// Close stops the constant workers and returns to inline preparation. It must not run
// concurrently with Execute. Calling it more than once is safe.
func (p *GBufferPass) Close() {
	if p.constTasks != nil {
		close(p.constTasks)
		p.constTasks = nil
	}
	p.workers = 0
}
