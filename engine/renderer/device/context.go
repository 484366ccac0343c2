package device

import (
	"fmt"

	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
	"github.com/Carmen-Shannon/helix/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineKey identifies a render pipeline by all state that is baked into it.
type pipelineKey struct {
	vs          gpu.VertexShader
	ps          gpu.PixelShader
	layout      gpu.InputLayout
	stride      uint32
	blend       gpu.BlendState
	depth       gpu.DepthStencilState
	raster      gpu.RasterizerState
	topology    gpu.Topology
	indexFormat gpu.IndexFormat
	targets     [maxTargets]wgpu.TextureFormat
	depthFormat wgpu.TextureFormat
}

// textureKey identifies a texture bind group.
type textureKey struct {
	views   [textureSlots]gpu.ShaderResourceView
	sampler gpu.SamplerState
}

// frameState is the bound state and the recording objects of the frame in progress.
type frameState struct {
	encoder        *wgpu.CommandEncoder
	pass           *wgpu.RenderPassEncoder
	surfaceTexture *wgpu.Texture
	surfaceView    *wgpu.TextureView
	err            error

	rtvs        []gpu.RenderTargetView
	dsv         gpu.DepthStencilView
	blend       gpu.BlendState
	depth       gpu.DepthStencilState
	raster      gpu.RasterizerState
	layout      gpu.InputLayout
	vb          gpu.Buffer
	stride      uint32
	ib          gpu.Buffer
	indexFormat gpu.IndexFormat
	topology    gpu.Topology
	vs          gpu.VertexShader
	ps          gpu.PixelShader
	resources   [textureSlots]gpu.ShaderResourceView
	samplers    [samplerSlots]gpu.SamplerState
	constants   [gpu.MaxConstantSlots]gpu.Buffer

	clearColor map[gpu.RenderTargetView]gpu.Color
	clearDepth map[gpu.DepthStencilView]float32

	draws int
}

func (f *frameState) reset() {
	f.clearColor = make(map[gpu.RenderTargetView]gpu.Color)
	f.clearDepth = make(map[gpu.DepthStencilView]float32)
}

// defaultConstantSlots binds each constant buffer to its own slot.
func defaultConstantSlots(c gpu.ConstantBuffers) [gpu.MaxConstantSlots]gpu.Buffer {
	var slots [gpu.MaxConstantSlots]gpu.Buffer
	slots[gpu.FrameConstantSlot] = c.Frame
	slots[gpu.ObjectConstantSlot] = c.Object
	slots[gpu.LightConstantSlot] = c.Light
	return slots
}

// abandon releases the recording objects without submitting them.
func (f *frameState) abandon() {
	if f.pass != nil {
		f.pass.Release()
		f.pass = nil
	}
	if f.encoder != nil {
		f.encoder.Release()
		f.encoder = nil
	}
	if f.surfaceView != nil {
		f.surfaceView.Release()
		f.surfaceView = nil
	}
	if f.surfaceTexture != nil {
		f.surfaceTexture.Release()
		f.surfaceTexture = nil
	}
}

// fail records the first error of the frame. Recording stops until Present reports it.
func (d *WGPUDevice) fail(op string, err error) {
	if d.frame.err == nil {
		d.frame.err = fmt.Errorf("%s: %w", op, err)
	}
}

func (d *WGPUDevice) endPass() {
	if d.frame.pass == nil {
		return
	}
	d.frame.pass.End()
	d.frame.pass.Release()
	d.frame.pass = nil
}

func (d *WGPUDevice) ensureEncoder() bool {
	if d.frame.err != nil {
		return false
	}
	if d.frame.encoder != nil {
		return true
	}
	enc, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		d.fail("create command encoder", err)
		return false
	}
	d.frame.encoder = enc
	return true
}

// resolveTarget returns the texture view behind an attachment handle, acquiring the surface
// texture on first use of the back buffer.
func (d *WGPUDevice) resolveTarget(h uint64) (view, bool) {
	v, ok := d.views[h]
	if !ok {
		gpu.Fatal("resolve attachment", fmt.Errorf("view %d: %w", h, ErrUnknownHandle))
	}
	if !v.surface {
		return v, true
	}
	if d.frame.surfaceView == nil {
		tex, err := d.surface.GetCurrentTexture()
		if err != nil {
			d.fail("acquire surface texture", err)
			return view{}, false
		}
		tv, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			d.fail("create surface view", err)
			return view{}, false
		}
		d.frame.surfaceTexture = tex
		d.frame.surfaceView = tv
	}
	v.view = d.frame.surfaceView
	return v, true
}

// beginPass opens a render pass over the given attachments. Pending clears of those
// attachments become clear load ops; other attachments keep their contents.
func (d *WGPUDevice) beginPass(rtvs []gpu.RenderTargetView, dsv gpu.DepthStencilView) bool {
	if !d.ensureEncoder() {
		return false
	}
	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: make([]wgpu.RenderPassColorAttachment, 0, len(rtvs)),
	}
	for _, rtv := range rtvs {
		v, ok := d.resolveTarget(uint64(rtv))
		if !ok {
			return false
		}
		att := wgpu.RenderPassColorAttachment{
			View:    v.view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if c, ok := d.frame.clearColor[rtv]; ok {
			att.LoadOp = wgpu.LoadOpClear
			att.ClearValue = wgpu.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
			delete(d.frame.clearColor, rtv)
		}
		desc.ColorAttachments = append(desc.ColorAttachments, att)
	}
	if !gpu.IsNull(dsv) {
		v, ok := d.resolveTarget(uint64(dsv))
		if !ok {
			return false
		}
		att := &wgpu.RenderPassDepthStencilAttachment{
			View:         v.view,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if depth, ok := d.frame.clearDepth[dsv]; ok {
			att.DepthLoadOp = wgpu.LoadOpClear
			att.DepthClearValue = depth
			delete(d.frame.clearDepth, dsv)
		}
		desc.DepthStencilAttachment = att
	}
	d.frame.pass = d.frame.encoder.BeginRenderPass(desc)
	return true
}

// flushClears runs an empty pass for every clear no draw consumed, so a frame without
// draws still clears its targets.
func (d *WGPUDevice) flushClears() {
	d.endPass()
	for rtv := range d.frame.clearColor {
		if !d.beginPass([]gpu.RenderTargetView{rtv}, 0) {
			return
		}
		d.endPass()
	}
	for dsv := range d.frame.clearDepth {
		if !d.beginPass(nil, dsv) {
			return
		}
		d.endPass()
	}
}

func (d *WGPUDevice) ClearRenderTarget(rtv gpu.RenderTargetView, c gpu.Color) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endPass()
	d.frame.clearColor[rtv] = c
}

func (d *WGPUDevice) ClearDepth(dsv gpu.DepthStencilView, depth float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endPass()
	d.frame.clearDepth[dsv] = depth
}

func (d *WGPUDevice) SetRenderTargets(rtvs []gpu.RenderTargetView, dsv gpu.DepthStencilView) {
	if len(rtvs) > maxTargets {
		gpu.Fatal("set render targets", fmt.Errorf("%d targets, device supports %d", len(rtvs), maxTargets))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endPass()
	d.frame.rtvs = append(d.frame.rtvs[:0], rtvs...)
	d.frame.dsv = dsv
}

func (d *WGPUDevice) SetDepthStencilState(s gpu.DepthStencilState) {
	d.frame.depth = s
}

func (d *WGPUDevice) SetBlendState(s gpu.BlendState) {
	d.frame.blend = s
}

func (d *WGPUDevice) SetRasterizerState(s gpu.RasterizerState) {
	d.frame.raster = s
}

func (d *WGPUDevice) SetPSResources(start int, views []gpu.ShaderResourceView) {
	if start < 0 || start+len(views) > textureSlots {
		gpu.Fatal("set shader resources", fmt.Errorf("slots %d..%d, device binds %d", start, start+len(views)-1, textureSlots))
	}
	copy(d.frame.resources[start:], views)
}

// SetPSSamplers binds samplers. Slots past the device's sampler bindings are ignored.
func (d *WGPUDevice) SetPSSamplers(start int, samplers []gpu.SamplerState) {
	for i, s := range samplers {
		if slot := start + i; slot >= 0 && slot < samplerSlots {
			d.frame.samplers[slot] = s
		}
	}
}

func (d *WGPUDevice) WriteConstants(buf gpu.Buffer, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rings[buf]
	if !ok {
		gpu.Fatal("write constants", fmt.Errorf("buffer %d: %w", buf, ErrUnknownHandle))
	}
	off, err := r.reserve(len(data))
	if err != nil {
		gpu.Fatal("write constants", err)
	}
	d.queue.WriteBuffer(r.buffer, off, data)
}

func (d *WGPUDevice) SetVSConstants(slot int, buf gpu.Buffer) {
	d.setConstants(slot, buf)
}

// SetPSConstants binds a constant buffer. Both stages share one binding per slot.
func (d *WGPUDevice) SetPSConstants(slot int, buf gpu.Buffer) {
	d.setConstants(slot, buf)
}

func (d *WGPUDevice) setConstants(slot int, buf gpu.Buffer) {
	if slot < 0 || slot >= gpu.MaxConstantSlots {
		gpu.Fatal("set constants", fmt.Errorf("slot %d out of range", slot))
	}
	d.frame.constants[slot] = buf
}

func (d *WGPUDevice) SetInputLayout(l gpu.InputLayout) {
	d.frame.layout = l
}

func (d *WGPUDevice) SetVertexBuffer(buf gpu.Buffer, stride uint32) {
	d.frame.vb = buf
	d.frame.stride = stride
}

func (d *WGPUDevice) SetIndexBuffer(buf gpu.Buffer, format gpu.IndexFormat) {
	d.frame.ib = buf
	d.frame.indexFormat = format
}

func (d *WGPUDevice) SetTopology(t gpu.Topology) {
	d.frame.topology = t
}

func (d *WGPUDevice) SetShaders(vs gpu.VertexShader, ps gpu.PixelShader) {
	d.frame.vs = vs
	d.frame.ps = ps
}

// DrawIndexed records a draw with the bound state, opening a pass over the bound targets
// when none is open.
func (d *WGPUDevice) DrawIndexed(indexCount uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := &d.frame
	if f.err != nil {
		return
	}
	if f.pass == nil && !d.beginPass(f.rtvs, f.dsv) {
		return
	}

	rp := d.renderPipeline()
	vb, ok := d.buffers[uint64(f.vb)]
	if !ok {
		gpu.Fatal("draw", fmt.Errorf("vertex buffer %d: %w", f.vb, ErrUnknownHandle))
	}
	ib, ok := d.buffers[uint64(f.ib)]
	if !ok {
		gpu.Fatal("draw", fmt.Errorf("index buffer %d: %w", f.ib, ErrUnknownHandle))
	}

	constants, offsets := d.constantGroup()
	f.pass.SetPipeline(rp)
	f.pass.SetBindGroup(0, constants, offsets)
	f.pass.SetBindGroup(1, d.textureGroup(), nil)
	f.pass.SetVertexBuffer(0, vb, 0, wgpu.WholeSize)
	f.pass.SetIndexBuffer(ib, pipeline.IndexFormat(f.indexFormat), 0, wgpu.WholeSize)
	f.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
	f.draws++
}

// renderPipeline returns the cached pipeline for the bound state, building it on first use.
func (d *WGPUDevice) renderPipeline() *wgpu.RenderPipeline {
	f := &d.frame
	key := pipelineKey{
		vs:          f.vs,
		ps:          f.ps,
		layout:      f.layout,
		stride:      f.stride,
		blend:       f.blend,
		depth:       f.depth,
		raster:      f.raster,
		topology:    f.topology,
		indexFormat: f.indexFormat,
	}
	for i, rtv := range f.rtvs {
		key.targets[i] = d.views[uint64(rtv)].format
	}
	if !gpu.IsNull(f.dsv) {
		key.depthFormat = d.views[uint64(f.dsv)].format
	}

	if p, ok := d.pipelines[key]; ok {
		return p.RenderPipeline()
	}

	vs, okVS := d.stages[uint64(f.vs)]
	ps, okPS := d.stages[uint64(f.ps)]
	layout, okLayout := d.layouts[uint64(f.layout)]
	blend, okBlend := d.blends[uint64(f.blend)]
	raster, okRaster := d.rasters[uint64(f.raster)]
	if !okVS || !okPS || !okLayout || !okBlend || !okRaster {
		gpu.Fatal("build pipeline", fmt.Errorf("shaders %d/%d layout %d blend %d raster %d: %w",
			f.vs, f.ps, f.layout, f.blend, f.raster, ErrUnknownHandle))
	}

	opts := []pipeline.PipelineBuilderOption{
		pipeline.WithStages(vs, ps),
		pipeline.WithVertexLayout(layout),
		pipeline.WithVertexStride(f.stride),
		pipeline.WithBlend(blend),
		pipeline.WithRaster(raster),
		pipeline.WithTopology(pipeline.PrimitiveTopology(f.topology), pipeline.IndexFormat(f.indexFormat)),
		pipeline.WithTargets(key.targets[:len(f.rtvs)]...),
	}
	if key.depthFormat != wgpu.TextureFormatUndefined {
		depth, ok := d.depths[uint64(f.depth)]
		if !ok {
			gpu.Fatal("build pipeline", fmt.Errorf("depth state %d: %w", f.depth, ErrUnknownHandle))
		}
		opts = append(opts, pipeline.WithDepth(depth, key.depthFormat))
	}

	p := pipeline.NewPipeline(fmt.Sprintf("pipeline %d", len(d.pipelines)+1), opts...)
	rp, err := p.Build(d.device, d.pipelineLayout)
	if err != nil {
		gpu.Fatal("build pipeline", err)
	}
	d.pipelines[key] = p
	d.logger.Debug("render pipeline created", "label", p.Label(), "targets", len(f.rtvs), "depth", key.depthFormat)
	return rp
}

// constantGroup returns the bind group of the buffers bound to the constant slots and the
// dynamic offsets of their current blocks.
func (d *WGPUDevice) constantGroup() (*wgpu.BindGroup, []uint32) {
	var key [3]gpu.Buffer
	offsets := make([]uint32, len(constantBindings))
	rings := make([]*constantRing, len(constantBindings))
	for i, slot := range constantBindings {
		buf := d.frame.constants[slot]
		r, ok := d.rings[buf]
		if !ok {
			gpu.Fatal("bind constants", fmt.Errorf("slot %d buffer %d: %w", slot, buf, ErrUnknownHandle))
		}
		key[i] = buf
		rings[i] = r
		offsets[i] = uint32(r.current)
	}

	if g, ok := d.constantGroups[key]; ok {
		return g, offsets
	}
	entries := make([]wgpu.BindGroupEntry, len(rings))
	for i, r := range rings {
		entries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  r.buffer,
			Offset:  0,
			Size:    r.blockSize,
		}
	}
	g, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "constants",
		Layout:  d.constantLayout,
		Entries: entries,
	})
	if err != nil {
		gpu.Fatal("bind constants", err)
	}
	d.constantGroups[key] = g
	return g, offsets
}

// textureGroup returns the bind group of the bound shader views and sampler. Null views
// read as opaque white.
func (d *WGPUDevice) textureGroup() *wgpu.BindGroup {
	key := textureKey{views: d.frame.resources, sampler: d.frame.samplers[0]}
	for i, v := range key.views {
		if gpu.IsNull(v) {
			key.views[i] = d.white
		}
	}
	if gpu.IsNull(key.sampler) {
		key.sampler = d.handles.States.Sampler
	}
	if g, ok := d.textureGroups[key]; ok {
		return g
	}

	entries := make([]wgpu.BindGroupEntry, 0, textureSlots+samplerSlots)
	for i, h := range key.views {
		v, ok := d.views[uint64(h)]
		if !ok || v.view == nil {
			gpu.Fatal("bind textures", fmt.Errorf("view %d: %w", h, ErrUnknownHandle))
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(i), TextureView: v.view})
	}
	s, ok := d.samplers[uint64(key.sampler)]
	if !ok {
		gpu.Fatal("bind textures", fmt.Errorf("sampler %d: %w", key.sampler, ErrUnknownHandle))
	}
	entries = append(entries, wgpu.BindGroupEntry{Binding: textureSlots, Sampler: s})

	g, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "textures",
		Layout:  d.textureLayout,
		Entries: entries,
	})
	if err != nil {
		gpu.Fatal("bind textures", err)
	}
	d.textureGroups[key] = g
	return g
}

// Present submits the recorded frame and presents the surface texture. Recording errors
// from the frame are returned here; the device is ready for the next frame either way.
//
// Returns:
//   - error: the first recording, submission or presentation error of the frame
func (d *WGPUDevice) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := &d.frame
	defer func() {
		for _, r := range d.rings {
			r.rewind()
		}
		f.abandon()
		f.reset()
		f.err = nil
		f.draws = 0
	}()

	d.flushClears()
	d.endPass()
	if f.err != nil {
		return f.err
	}
	if f.encoder == nil {
		return nil
	}

	cb, err := f.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish frame: %w", err)
	}
	d.queue.Submit(cb)
	cb.Release()

	if f.surfaceTexture != nil {
		d.surface.Present()
	}
	return nil
}
