package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/helix/engine/assets"
	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/Carmen-Shannon/helix/engine/logging"
	"github.com/Carmen-Shannon/helix/engine/profiler"
	"github.com/Carmen-Shannon/helix/engine/renderer/deferred"
	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
	"github.com/Carmen-Shannon/helix/engine/signal"
	"github.com/Carmen-Shannon/helix/engine/submission"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrRendererShutdown is returned by producer calls made after Shutdown.
var ErrRendererShutdown = errors.New("renderer: shut down")

// ErrResizeUnsupported is returned by Resize when the device cannot recreate its targets.
var ErrResizeUnsupported = errors.New("renderer: device does not support resize")

// DefaultLightingMaterial is the material whose shader draws the lighting quads.
const DefaultLightingMaterial = "lighting"

// Renderer is the producer-facing API of the deferred renderer.
//
// One producer goroutine submits draws, matrices and lights and calls RenderScene once per frame.
// A dedicated render goroutine draws the previous frame while the producer fills the next one.
// Submission methods are safe to call from several goroutines; RenderScene, Resize and Shutdown
// belong to the producer.
type Renderer interface {
	// SubmitInstance queues one draw of the named mesh for the frame being built.
	//
	// Parameters:
	//   - world: the instance's world matrix
	//   - meshName: the mesh to draw
	//
	// Returns:
	//   - error: wraps submission.ErrUnknownMesh or submission.ErrUnknownMaterial; nothing is queued on error
	SubmitInstance(world mgl32.Mat4, meshName string) error

	// SubmitViewMatrix sets the view matrix for the frame being built.
	SubmitViewMatrix(m mgl32.Mat4)

	// SubmitProjMatrix sets the projection matrix for the frame being built.
	SubmitProjMatrix(m mgl32.Mat4)

	// SubmitLight queues a light for the next frame.
	//
	// Returns:
	//   - error: light.ErrLightBufferFull once the configured capacity is reached
	SubmitLight(l light.Light) error

	// SetSunlightDirection sets the direction the sun shines in. It is stored normalized.
	SetSunlightDirection(dir mgl32.Vec3)

	// SetSunlightColor sets the sun color, clamped to [0, 1].
	SetSunlightColor(c mgl32.Vec3)

	// SetAmbientColor sets the ambient color, clamped to at most 1.
	SetAmbientColor(c mgl32.Vec3)

	// SetCamera replaces the camera constants the frame scalars are derived from.
	SetCamera(p frame.CameraParams)

	// RenderScene waits until the render goroutine is idle, seals the frame being built and
	// hands it to the render goroutine. It returns as soon as rendering has been started.
	//
	// Returns:
	//   - error: ErrRendererShutdown after Shutdown
	RenderScene() error

	// Resize waits until the render goroutine is idle and recreates the size-dependent targets.
	//
	// Parameters:
	//   - width, height: the new back buffer size in pixels
	//
	// Returns:
	//   - error: ErrResizeUnsupported, ErrRendererShutdown or the device error
	Resize(width, height int) error

	// Shutdown stops the render goroutine after its current frame and releases every queued draw.
	// Safe to call more than once; later calls return immediately.
	Shutdown()

	// Stats returns cumulative frame statistics.
	Stats() FrameStats

	// State returns the render goroutine's current state.
	State() State
}

// FrameStats are cumulative renderer statistics.
type FrameStats struct {
	Frames        uint64
	Draws         uint64 // G-buffer draws
	Indices       uint64 // G-buffer indices
	LightDraws    uint64
	SkippedLights uint64
	PresentErrors uint64

	LastGBuffer  deferred.PassStats
	LastLighting deferred.PassStats
	LastFrame    time.Duration

	// ShutdownReleased is the number of queued draws released by Shutdown.
	ShutdownReleased int

	Queue submission.Stats
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex // guards env

	handles   gpu.DeviceHandles
	resolvers assets.Resolvers
	resizer   gpu.Resizer
	samplers  [deferred.GBufferInputSlots]gpu.SamplerState

	queue  *submission.Queue
	lights *light.Buffer
	env    light.Environment

	gbuffer  *deferred.GBufferPass
	lighting *deferred.LightingPass

	ready *signal.Signal
	start *signal.Signal
	quit  chan struct{}
	done  <-chan struct{}

	shutdownRequested atomic.Bool
	shutdownOnce      sync.Once
	state             atomic.Int32

	statsMu *sync.Mutex
	stats   FrameStats

	profiler *profiler.Profiler

	// Builder configuration
	logger           *slog.Logger
	camera           frame.CameraParams
	constantWorkers  int
	stackSize        int
	profiling        bool
	maxLights        int
	lightingMaterial string
}

var _ Renderer = &renderer{}

// InitializeRenderer validates the device handles, resolves the lighting material, registers the
// G-buffer views as system textures and starts the render goroutine.
//
// A missing device handle or mismatched attachment size is unrecoverable: InitializeRenderer
// panics with a *gpu.FatalError. Resolver problems are returned as errors.
//
// Parameters:
//   - handles: the device resources the renderer draws with
//   - resolvers: mesh, material, shader and texture lookup
//   - options: functional options to further configure the renderer
//
// Returns:
//   - Renderer: the running renderer
//   - error: a missing resolver or an unresolvable lighting material
func InitializeRenderer(handles gpu.DeviceHandles, resolvers assets.Resolvers, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:               &sync.Mutex{},
		statsMu:          &sync.Mutex{},
		env:              light.DefaultEnvironment(),
		camera:           frame.DefaultCameraParams(),
		stackSize:        signal.DefaultStackSize,
		maxLights:        light.MaxLights,
		lightingMaterial: DefaultLightingMaterial,
		ready:            signal.NewSignal(),
		start:            signal.NewSignal(),
		quit:             make(chan struct{}),
	}
	for _, option := range options {
		option(r)
	}
	if r.logger == nil {
		r.logger = logging.Logger()
	}

	handles.MustValidate()
	if err := resolvers.Validate(); err != nil {
		return nil, err
	}

	mat, err := resolvers.Materials.ResolveMaterial(r.lightingMaterial)
	if err != nil {
		return nil, fmt.Errorf("lighting material: %w", err)
	}
	lightingShader, err := resolvers.Shaders.ResolveShader(mat.ShaderName)
	if err != nil {
		return nil, fmt.Errorf("lighting material %q: %w", mat.Name, err)
	}

	r.handles = handles
	r.resolvers = resolvers
	if rz, ok := handles.SwapChain.(gpu.Resizer); ok {
		r.resizer = rz
	}
	for i := range r.samplers {
		r.samplers[i] = handles.States.Sampler
	}
	if err := r.registerSystemTextures(handles); err != nil {
		return nil, err
	}

	r.queue = submission.NewQueue(resolvers.Meshes, resolvers.Materials, r.camera)
	r.lights = light.NewBuffer(r.maxLights)
	r.gbuffer = deferred.NewGBufferPass(handles, resolvers.Shaders, resolvers.Textures,
		deferred.WithConstantWorkers(r.constantWorkers))
	r.lighting = deferred.NewLightingPass(handles, lightingShader)
	if r.profiling {
		r.profiler = profiler.NewProfiler(profiler.WithLogger(r.logger))
	}

	r.done = signal.Spawn("render", r.stackSize, r.renderLoop)
	r.logger.Info("renderer initialized",
		"width", handles.BackWidth,
		"height", handles.BackHeight,
		"lightingMaterial", r.lightingMaterial,
		"constantWorkers", r.constantWorkers,
	)
	return r, nil
}

// registerSystemTextures publishes the G-buffer shader views under their bracketed names when the
// texture resolver is a Registry. Other resolvers are expected to know the system names already.
func (r *renderer) registerSystemTextures(h gpu.DeviceHandles) error {
	reg, ok := r.resolvers.Textures.(*assets.Registry)
	if !ok {
		return nil
	}
	views := []struct {
		name string
		view gpu.ShaderResourceView
	}{
		{assets.SystemAlbedoShader, h.GBuffer.Albedo.SRV},
		{assets.SystemNormalShader, h.GBuffer.Normal.SRV},
		{assets.SystemDepthShader, h.GBuffer.Depth.SRV},
		{assets.SystemDepthStencilInput, h.GBuffer.DepthStencilSRV},
	}
	for _, v := range views {
		if gpu.IsNull(v.view) {
			continue
		}
		if err := reg.AddSystemTexture(v.name, v.view); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) SubmitInstance(world mgl32.Mat4, meshName string) error {
	if r.shutdownRequested.Load() {
		return ErrRendererShutdown
	}
	if err := r.queue.SubmitInstance(world, meshName); err != nil {
		if errors.Is(err, submission.ErrClosed) {
			return ErrRendererShutdown
		}
		r.logger.Warn("submission rejected", "mesh", meshName, "err", err)
		return err
	}
	return nil
}

func (r *renderer) SubmitViewMatrix(m mgl32.Mat4) {
	r.queue.SubmitViewMatrix(m)
}

func (r *renderer) SubmitProjMatrix(m mgl32.Mat4) {
	r.queue.SubmitProjMatrix(m)
}

func (r *renderer) SubmitLight(l light.Light) error {
	if r.shutdownRequested.Load() {
		return ErrRendererShutdown
	}
	return r.lights.Add(l)
}

func (r *renderer) SetSunlightDirection(dir mgl32.Vec3) {
	r.mu.Lock()
	r.env.SetSunDirection(dir)
	r.mu.Unlock()
}

func (r *renderer) SetSunlightColor(c mgl32.Vec3) {
	r.mu.Lock()
	r.env.SetSunColor(c)
	r.mu.Unlock()
}

func (r *renderer) SetAmbientColor(c mgl32.Vec3) {
	r.mu.Lock()
	r.env.SetAmbient(c)
	r.mu.Unlock()
}

func (r *renderer) SetCamera(p frame.CameraParams) {
	r.queue.SetCamera(p)
}

func (r *renderer) environment() light.Environment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.env
}

// waitIdle blocks until the render goroutine has signalled ready or the renderer shuts down.
func (r *renderer) waitIdle() error {
	if r.shutdownRequested.Load() {
		return ErrRendererShutdown
	}
	select {
	case <-r.ready.C():
	case <-r.quit:
		return ErrRendererShutdown
	}
	// the loop also signals ready on its way out
	if r.shutdownRequested.Load() {
		r.ready.Set()
		return ErrRendererShutdown
	}
	return nil
}

func (r *renderer) RenderScene() error {
	if err := r.waitIdle(); err != nil {
		return err
	}

	env := r.environment()
	inFlight := r.queue.Advance(func(s *submission.Slot, scalars frame.Scalars) {
		s.Frame = frame.Build(s.View(), s.Proj(), scalars, env)
		r.lights.SnapshotInto(&s.Lights)
	})
	r.logger.Debug("frame sealed", "slot", inFlight, "draws", len(r.queue.Slot(inFlight).Draws()))

	r.start.Set()
	return nil
}

func (r *renderer) Resize(width, height int) error {
	if r.resizer == nil {
		return ErrResizeUnsupported
	}
	if err := r.waitIdle(); err != nil {
		return err
	}
	defer r.ready.Set()

	h, err := r.resizer.Resize(width, height)
	if err != nil {
		return fmt.Errorf("resize %dx%d: %w", width, height, err)
	}
	h.MustValidate()

	r.handles = h
	r.gbuffer.SetAttachments(h.GBuffer)
	r.lighting.SetTargets(h.BackBuffer, h.BackDepthStencil, h.GBuffer)
	if err := r.registerSystemTextures(h); err != nil {
		return err
	}

	cam := r.queue.Camera()
	cam.ImageWidth = float32(width)
	cam.ImageHeight = float32(height)
	r.queue.SetCamera(cam)

	r.logger.Info("renderer resized", "width", width, "height", height)
	return nil
}

func (r *renderer) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.shutdownRequested.Store(true)
		close(r.quit)
		<-r.done

		released := r.queue.Close()
		r.gbuffer.Close()

		r.statsMu.Lock()
		r.stats.ShutdownReleased = released
		r.statsMu.Unlock()
		r.logger.Info("renderer shut down", "released", released)
	})
}

func (r *renderer) Stats() FrameStats {
	r.statsMu.Lock()
	s := r.stats
	r.statsMu.Unlock()
	s.Queue = r.queue.Stats()
	return s
}

func (r *renderer) State() State {
	return State(r.state.Load())
}
