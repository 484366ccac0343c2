// Package device implements the renderer's device contract on WebGPU. A WGPUDevice owns the
// instance, surface and queue, creates every resource the renderer consumes and records the
// stateful gpu.Context calls into render passes that are submitted on Present.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/Carmen-Shannon/helix/engine/logging"
	"github.com/Carmen-Shannon/helix/engine/renderer/deferred"
	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
	"github.com/Carmen-Shannon/helix/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnknownHandle is the cause of the fatal error raised when a handle names no resource.
var ErrUnknownHandle = errors.New("unknown handle")

// Attachment formats.
const (
	AlbedoFormat       = wgpu.TextureFormatRGBA8Unorm
	NormalFormat       = wgpu.TextureFormatRGBA8Unorm
	DepthFormat        = wgpu.TextureFormatR16Float
	DepthStencilFormat = wgpu.TextureFormatDepth16Unorm
)

// Bind group layout of every pipeline: group 0 holds the frame, object and light constants
// with dynamic offsets, group 1 holds three textures and one sampler.
const (
	textureSlots = 3
	samplerSlots = 1
	maxTargets   = 4
)

// constantBindings maps group 0 bindings to constant slots.
var constantBindings = [3]int{gpu.FrameConstantSlot, gpu.ObjectConstantSlot, gpu.LightConstantSlot}

var (
	_ gpu.Context   = (*WGPUDevice)(nil)
	_ gpu.SwapChain = (*WGPUDevice)(nil)
	_ gpu.Resizer   = (*WGPUDevice)(nil)
)

// view is a texture view and the format it renders or samples as.
type view struct {
	view    *wgpu.TextureView
	texture *wgpu.Texture
	format  wgpu.TextureFormat
	surface bool // resolves to the current surface texture
}

// sizedResources are recreated on resize.
type sizedResources struct {
	textures []*wgpu.Texture
	handles  []uint64
}

// WGPUDevice is a gpu.Context, gpu.SwapChain and gpu.Resizer backed by WebGPU.
// The gpu.Context methods are called from the render goroutine only; resource creation
// may happen on any goroutine.
type WGPUDevice struct {
	mu     *sync.Mutex
	logger *slog.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	presentMode   PresentMode
	forceFallback bool
	width, height int

	objectCapacity int
	lightCapacity  int
	maxTextureSize int

	nextID   uint64
	buffers  map[uint64]*wgpu.Buffer
	views    map[uint64]view
	samplers map[uint64]*wgpu.Sampler
	blends   map[uint64]pipeline.Blend
	depths   map[uint64]pipeline.Depth
	rasters  map[uint64]pipeline.Raster
	layouts  map[uint64]wgpu.VertexBufferLayout
	stages   map[uint64]pipeline.Stage
	modules  []*wgpu.ShaderModule
	rings    map[gpu.Buffer]*constantRing

	constantLayout *wgpu.BindGroupLayout
	textureLayout  *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipelines      map[pipelineKey]*pipeline.Pipeline
	constantGroups map[[3]gpu.Buffer]*wgpu.BindGroup
	textureGroups  map[textureKey]*wgpu.BindGroup
	white          gpu.ShaderResourceView

	sized   sizedResources
	handles gpu.DeviceHandles

	frame frameState
}

// NewWGPUDevice creates the device, configures the surface and creates every resource in
// gpu.DeviceHandles.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, usually from the window
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//   - options: functional options applied in order
//
// Returns:
//   - *WGPUDevice: the device; call Release when done
//   - gpu.DeviceHandles: the resources the renderer consumes
//   - error: an adapter, device or resource creation error
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...DeviceBuilderOption) (*WGPUDevice, gpu.DeviceHandles, error) {
	d := &WGPUDevice{
		mu:             &sync.Mutex{},
		presentMode:    PresentModeVSync,
		objectCapacity: DefaultObjectCapacity,
		lightCapacity:  DefaultLightCapacity,
		maxTextureSize: DefaultMaxTextureSize,
		buffers:        make(map[uint64]*wgpu.Buffer),
		views:          make(map[uint64]view),
		samplers:       make(map[uint64]*wgpu.Sampler),
		blends:         make(map[uint64]pipeline.Blend),
		depths:         make(map[uint64]pipeline.Depth),
		rasters:        make(map[uint64]pipeline.Raster),
		layouts:        make(map[uint64]wgpu.VertexBufferLayout),
		stages:         make(map[uint64]pipeline.Stage),
		rings:          make(map[gpu.Buffer]*constantRing),
		pipelines:      make(map[pipelineKey]*pipeline.Pipeline),
		constantGroups: make(map[[3]gpu.Buffer]*wgpu.BindGroup),
		textureGroups:  make(map[textureKey]*wgpu.BindGroup),
	}
	for _, opt := range options {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.Logger()
	}
	d.frame.reset()

	if err := d.open(surfaceDescriptor); err != nil {
		d.Release()
		return nil, gpu.DeviceHandles{}, err
	}
	d.configureSurface(width, height)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"bind group layouts", d.createLayouts},
		{"states", d.createStates},
		{"constant buffers", d.createConstants},
		{"quad", d.createQuad},
		{"default texture", d.createWhite},
		{"attachments", func() error { return d.createSized(width, height) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			d.Release()
			return nil, gpu.DeviceHandles{}, fmt.Errorf("create %s: %w", s.name, err)
		}
	}

	d.logger.Info("wgpu device ready",
		"width", width,
		"height", height,
		"surfaceFormat", d.surfaceFormat,
		"presentMode", d.presentMode,
	)
	return d, d.handles, nil
}

func (d *WGPUDevice) open(surfaceDescriptor *wgpu.SurfaceDescriptor) error {
	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "helix device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]
	d.alphaMode = capabilities.AlphaModes[0]
	return nil
}

func (d *WGPUDevice) configureSurface(width, height int) {
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode.wgpuPresentMode(),
		AlphaMode:   d.alphaMode,
	})
	d.width, d.height = width, height
}

// id allocates a handle identifier. Callers hold d.mu or run before the device is shared.
func (d *WGPUDevice) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *WGPUDevice) createLayouts() error {
	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	sizes := [3]uint64{frame.FrameConstantsSize, frame.ObjectConstantsSize, lightConstantsSize}

	constantEntries := make([]wgpu.BindGroupLayoutEntry, len(constantBindings))
	for i := range constantEntries {
		constantEntries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: visibility,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   sizes[i],
			},
		}
	}
	cl, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "constants",
		Entries: constantEntries,
	})
	if err != nil {
		return err
	}
	d.constantLayout = cl

	textureEntries := make([]wgpu.BindGroupLayoutEntry, 0, textureSlots+samplerSlots)
	for i := range textureSlots {
		textureEntries = append(textureEntries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	for i := range samplerSlots {
		textureEntries = append(textureEntries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(textureSlots + i),
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		})
	}
	tl, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "textures",
		Entries: textureEntries,
	})
	if err != nil {
		return err
	}
	d.textureLayout = tl

	pl, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "deferred",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.constantLayout, d.textureLayout},
	})
	if err != nil {
		return err
	}
	d.pipelineLayout = pl
	return nil
}

func (d *WGPUDevice) createStates() error {
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "linear wrap",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return err
	}
	sampler := d.id()
	d.samplers[sampler] = samp

	d.handles.States = gpu.States{
		Rasterizer:    gpu.RasterizerState(d.addRaster(pipeline.BackFaceCull())),
		GBufferBlend:  gpu.BlendState(d.addBlend(pipeline.ReplaceBlend())),
		GBufferDepth:  gpu.DepthStencilState(d.addDepth(pipeline.GBufferDepth())),
		LightingBlend: gpu.BlendState(d.addBlend(pipeline.LightingBlend())),
		LightingDepth: gpu.DepthStencilState(d.addDepth(pipeline.LightingDepth())),
		Sampler:       gpu.SamplerState(sampler),
	}
	return nil
}

func (d *WGPUDevice) addBlend(b pipeline.Blend) uint64 {
	id := d.id()
	d.blends[id] = b
	return id
}

func (d *WGPUDevice) addDepth(s pipeline.Depth) uint64 {
	id := d.id()
	d.depths[id] = s
	return id
}

func (d *WGPUDevice) addRaster(r pipeline.Raster) uint64 {
	id := d.id()
	d.rasters[id] = r
	return id
}

// lightConstantsSize is the size of light.PointLightConstants.
var lightConstantsSize = uint64((&light.PointLightConstants{}).Size())

func (d *WGPUDevice) createConstants() error {
	rings := []struct {
		dst *gpu.Buffer
		r   *constantRing
	}{
		{&d.handles.Constants.Frame, newConstantRing("frame constants", frame.FrameConstantsSize, frameCapacity)},
		{&d.handles.Constants.Object, newConstantRing("object constants", frame.ObjectConstantsSize, d.objectCapacity)},
		{&d.handles.Constants.Light, newConstantRing("light constants", int(lightConstantsSize), d.lightCapacity)},
	}
	for _, rr := range rings {
		buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: rr.r.label,
			Size:  rr.r.size(),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		rr.r.buffer = buf
		h := gpu.Buffer(d.id())
		d.rings[h] = rr.r
		*rr.dst = h
	}
	d.frame.constants = defaultConstantSlots(d.handles.Constants)
	return nil
}

func (d *WGPUDevice) createQuad() error {
	vb, err := d.newBuffer("quad vertices", deferred.QuadVertexBytes(), wgpu.BufferUsageVertex)
	if err != nil {
		return err
	}
	ib, err := d.newBuffer("quad indices", deferred.QuadIndexBytes(), wgpu.BufferUsageIndex)
	if err != nil {
		return err
	}
	d.handles.QuadVB = gpu.Buffer(vb)
	d.handles.QuadIB = gpu.Buffer(ib)
	return nil
}

// newBuffer creates a buffer holding data. WebGPU copies are 4-byte granular so the data is
// zero-padded to a multiple of four.
func (d *WGPUDevice) newBuffer(label string, data []byte, usage wgpu.BufferUsage) (uint64, error) {
	if pad := len(data) % 4; pad != 0 {
		data = append(append([]byte(nil), data...), make([]byte, 4-pad)...)
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, err
	}
	d.queue.WriteBuffer(buf, 0, data)
	id := d.id()
	d.buffers[id] = buf
	return id, nil
}

func (d *WGPUDevice) createWhite() error {
	id, err := d.newTexture("white", []byte{255, 255, 255, 255}, 1, 1)
	if err != nil {
		return err
	}
	d.white = gpu.ShaderResourceView(id)
	return nil
}

// newTexture uploads RGBA8 pixels into a sampled texture and registers its view.
func (d *WGPUDevice) newTexture(label string, pixels []byte, width, height int) (uint64, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, err
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width * 4),
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	tv, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, err
	}
	id := d.id()
	d.views[id] = view{view: tv, texture: tex, format: wgpu.TextureFormatRGBA8UnormSrgb}
	return id, nil
}

// createSized creates the back buffer handle, the back depth-stencil and the G-buffer.
func (d *WGPUDevice) createSized(width, height int) error {
	back := d.id()
	d.views[back] = view{surface: true, format: d.surfaceFormat}
	d.sized.handles = append(d.sized.handles, back)

	backDS, _, err := d.newTarget("back depth-stencil", DepthStencilFormat, width, height, false)
	if err != nil {
		return err
	}

	targets := []struct {
		label  string
		format wgpu.TextureFormat
		dst    *gpu.Target
	}{
		{"albedo", AlbedoFormat, &d.handles.GBuffer.Albedo},
		{"normal", NormalFormat, &d.handles.GBuffer.Normal},
		{"depth", DepthFormat, &d.handles.GBuffer.Depth},
	}
	for _, t := range targets {
		rtv, srv, err := d.newTarget(t.label, t.format, width, height, true)
		if err != nil {
			return err
		}
		*t.dst = gpu.Target{RTV: gpu.RenderTargetView(rtv), SRV: gpu.ShaderResourceView(srv)}
	}

	dsv, dsSRV, err := d.newTarget("g-buffer depth-stencil", DepthStencilFormat, width, height, true)
	if err != nil {
		return err
	}

	d.handles.Context = d
	d.handles.SwapChain = d
	d.handles.BackBuffer = gpu.RenderTargetView(back)
	d.handles.BackDepthStencil = gpu.DepthStencilView(backDS)
	d.handles.BackWidth, d.handles.BackHeight = width, height
	d.handles.GBuffer.DepthStencil = gpu.DepthStencilView(dsv)
	d.handles.GBuffer.DepthStencilSRV = gpu.ShaderResourceView(dsSRV)
	d.handles.GBuffer.Width, d.handles.GBuffer.Height = width, height
	return nil
}

// newTarget creates a render attachment. The attachment handle and, when sampled, the shader
// view handle share one texture view.
func (d *WGPUDevice) newTarget(label string, format wgpu.TextureFormat, width, height int, sampled bool) (uint64, uint64, error) {
	usage := wgpu.TextureUsageRenderAttachment
	if sampled {
		usage |= wgpu.TextureUsageTextureBinding
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return 0, 0, err
	}
	tv, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, 0, err
	}
	d.sized.textures = append(d.sized.textures, tex)

	v := view{view: tv, texture: tex, format: format}
	target := d.id()
	d.views[target] = v
	d.sized.handles = append(d.sized.handles, target)
	if !sampled {
		return target, 0, nil
	}
	srv := d.id()
	d.views[srv] = v
	d.sized.handles = append(d.sized.handles, srv)
	return target, srv, nil
}

// releaseSized frees the size-dependent resources and every bind group that referenced them.
func (d *WGPUDevice) releaseSized() {
	released := make(map[*wgpu.TextureView]bool)
	for _, h := range d.sized.handles {
		v := d.views[h]
		if v.view != nil && !released[v.view] {
			v.view.Release()
			released[v.view] = true
		}
		delete(d.views, h)
	}
	for _, t := range d.sized.textures {
		t.Release()
	}
	d.sized = sizedResources{}

	for k, g := range d.textureGroups {
		g.Release()
		delete(d.textureGroups, k)
	}
}

// Resize reconfigures the surface and recreates the back depth-stencil and the G-buffer.
// States, constant buffers, the quad and registered assets are kept. It must not be called
// while a frame is being recorded.
//
// Parameters:
//   - width: the new width in pixels
//   - height: the new height in pixels
//
// Returns:
//   - gpu.DeviceHandles: the handles with the new back buffer and G-buffer
//   - error: if the size is not positive or a resource could not be created
func (d *WGPUDevice) Resize(width, height int) (gpu.DeviceHandles, error) {
	if width <= 0 || height <= 0 {
		return gpu.DeviceHandles{}, fmt.Errorf("resize %dx%d: %w", width, height, gpu.ErrAttachmentSize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseSized()
	d.configureSurface(width, height)
	if err := d.createSized(width, height); err != nil {
		return gpu.DeviceHandles{}, fmt.Errorf("resize %dx%d: %w", width, height, err)
	}
	d.logger.Info("wgpu device resized", "width", width, "height", height)
	return d.handles, nil
}

// Handles returns the current device handles.
func (d *WGPUDevice) Handles() gpu.DeviceHandles {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handles
}

// Release frees every resource, the device and the surface. The device must not be used afterwards.
func (d *WGPUDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.frame.abandon()
	d.releaseSized()

	for _, p := range d.pipelines {
		p.Release()
	}
	for _, g := range d.constantGroups {
		g.Release()
	}
	for _, v := range d.views {
		if v.view != nil {
			v.view.Release()
		}
		if v.texture != nil {
			v.texture.Release()
		}
	}
	for _, b := range d.buffers {
		b.Release()
	}
	for _, r := range d.rings {
		if r.buffer != nil {
			r.buffer.Release()
		}
	}
	for _, s := range d.samplers {
		s.Release()
	}
	for _, m := range d.modules {
		m.Release()
	}
	d.pipelines = make(map[pipelineKey]*pipeline.Pipeline)
	d.constantGroups = make(map[[3]gpu.Buffer]*wgpu.BindGroup)
	d.views = make(map[uint64]view)
	d.buffers = make(map[uint64]*wgpu.Buffer)
	d.rings = make(map[gpu.Buffer]*constantRing)
	d.samplers = make(map[uint64]*wgpu.Sampler)
	d.modules = nil

	releasers := []interface{ Release() }{}
	if d.pipelineLayout != nil {
		releasers = append(releasers, d.pipelineLayout)
	}
	if d.textureLayout != nil {
		releasers = append(releasers, d.textureLayout)
	}
	if d.constantLayout != nil {
		releasers = append(releasers, d.constantLayout)
	}
	if d.queue != nil {
		releasers = append(releasers, d.queue)
	}
	if d.device != nil {
		releasers = append(releasers, d.device)
	}
	if d.adapter != nil {
		releasers = append(releasers, d.adapter)
	}
	if d.surface != nil {
		releasers = append(releasers, d.surface)
	}
	if d.instance != nil {
		releasers = append(releasers, d.instance)
	}
	for _, r := range releasers {
		r.Release()
	}
	d.pipelineLayout, d.textureLayout, d.constantLayout = nil, nil, nil
	d.queue, d.device, d.adapter, d.surface, d.instance = nil, nil, nil, nil, nil
}
