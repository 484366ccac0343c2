// Package engine runs the producer side of a helix application: a fixed-rate tick loop that
// fills the renderer's submission queue and hands each frame to the render goroutine.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/helix/engine/camera"
	"github.com/Carmen-Shannon/helix/engine/logging"
	"github.com/Carmen-Shannon/helix/engine/renderer"
	"github.com/Carmen-Shannon/helix/engine/window"
)

// engine implements the Engine interface.
// The window message loop owns the calling OS thread; the tick loop runs on its own goroutine.
type engine struct {
	tickRateChannel chan time.Duration // dynamic tick rate updates

	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	errMu sync.Mutex
	err   error

	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera
	logger   *slog.Logger

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	ticks uint64
}

// Engine is the main entry point of a helix application.
type Engine interface {
	// Window returns the window, or nil when none was configured.
	Window() window.Window

	// Renderer returns the renderer the tick loop feeds.
	Renderer() renderer.Renderer

	// Camera returns the camera submitted before every frame, or nil.
	Camera() camera.Camera

	// SetTickRate sets the tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each tick before the frame is handed
	// to the render goroutine. Submit instances and lights from it.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// Run starts the tick loop and blocks until the window closes or Quit is called. Without
	// a window Run blocks on the quit signal alone. The renderer is shut down and the window
	// closed before Run returns. Run owns the window's update callback.
	//
	// Returns:
	//   - error: a panic recovered from the tick loop
	Run() error

	// Quit stops the tick loop. Safe to call multiple times and from any goroutine.
	Quit()

	// Ticks returns how many frames the tick loop has handed to the renderer.
	Ticks() uint64
}

// NewEngine creates an Engine that drives r.
//
// Parameters:
//   - r: the renderer
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(r renderer.Renderer, options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		renderer:        r,
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Logger()
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Run() error {
	e.handle()
	if e.window != nil {
		closed := false
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				closed = true
				if err := e.window.Close(); err != nil {
					e.logger.Warn("close window", "error", err)
				}
			default:
			}
		})
		e.window.ProcessMessages()
		e.signalQuit()
		e.wg.Wait()
		if !closed {
			if err := e.window.Close(); err != nil {
				e.logger.Warn("close window", "error", err)
			}
		}
	}
	e.wg.Wait()

	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Ticks() uint64 {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.ticks
}

// signalQuit closes the quit channel once. The message loop notices it on its next iteration.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// resize forwards a framebuffer resize to the renderer and the camera. A minimized window
// reports a zero size, which is ignored.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if err := e.renderer.Resize(width, height); err != nil && !errors.Is(err, renderer.ErrRendererShutdown) {
		e.logger.Warn("resize failed", "width", width, "height", height, "error", err)
		return
	}
	if e.camera != nil {
		e.camera.SetImageSize(width, height)
	}
}

// handle launches the tick and quit goroutines.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate tick loop. Each tick runs the callback, submits the camera
// and hands the frame to the renderer. A panic in the loop is recovered, recorded for Run and
// stops the engine.
func (e *engine) handleEngine() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tick loop recovered from panic", "panic", r)
			e.errMu.Lock()
			e.err = fmt.Errorf("tick loop panic: %v", r)
			e.errMu.Unlock()
			e.signalQuit()
		}
	}()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if !e.tick(dt) {
				e.signalQuit()
				return
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// tick produces one frame and reports whether the loop should continue.
func (e *engine) tick(dt float32) bool {
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
	if e.camera != nil {
		e.camera.Submit(e.renderer)
	}

	if err := e.renderer.RenderScene(); err != nil {
		if errors.Is(err, renderer.ErrRendererShutdown) {
			return false
		}
		e.logger.Warn("render scene failed", "error", err)
		return true
	}

	e.errMu.Lock()
	e.ticks++
	e.errMu.Unlock()
	return true
}

// handleQuit waits for the quit signal, then shuts the renderer down.
// Shutdown blocks until the render goroutine has exited, which also releases a tick blocked
// in RenderScene.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
	e.renderer.Shutdown()
	e.logger.Info("engine stopped", "ticks", e.Ticks())
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	// replace a pending update that the loop has not consumed yet
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}
