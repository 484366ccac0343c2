package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via InitializeRenderer.
type RendererBuilderOption func(*renderer)

// WithLogger sets the logger used by the renderer and its render goroutine.
// When not specified, the package-wide logging.Logger() is used.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(l *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = l
	}
}

// WithCamera sets the camera constants the frame scalars are derived from.
// Defaults to frame.DefaultCameraParams().
//
// Parameters:
//   - p: the camera constants
//
// Returns:
//   - RendererBuilderOption: a function that applies the camera option to a renderer
func WithCamera(p frame.CameraParams) RendererBuilderOption {
	return func(r *renderer) {
		r.camera = p
	}
}

// WithConstantWorkers prepares per-object constants on n worker goroutines for large frames.
// n <= 1 keeps all preparation on the render goroutine.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker option to a renderer
func WithConstantWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.constantWorkers = n
	}
}

// WithStackSize sets the stack size hint of the render goroutine.
//
// Parameters:
//   - bytes: the hint in bytes; values <= 0 select signal.DefaultStackSize
//
// Returns:
//   - RendererBuilderOption: a function that applies the stack size option to a renderer
func WithStackSize(bytes int) RendererBuilderOption {
	return func(r *renderer) {
		if bytes > 0 {
			r.stackSize = bytes
		}
	}
}

// WithProfiling logs frame rate, draw counts and memory statistics once per second.
//
// Parameters:
//   - enabled: true to enable the profiler
//
// Returns:
//   - RendererBuilderOption: a function that applies the profiling option to a renderer
func WithProfiling(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.profiling = enabled
	}
}

// WithEnvironment sets the initial sun and ambient terms. The values pass through the same
// normalization and clamping as the setters.
//
// Parameters:
//   - env: the lighting environment
//
// Returns:
//   - RendererBuilderOption: a function that applies the environment option to a renderer
func WithEnvironment(env light.Environment) RendererBuilderOption {
	return func(r *renderer) {
		r.env.SetSunDirection(env.SunDirection)
		r.env.SetSunColor(env.SunColor)
		r.env.SetAmbient(env.Ambient)
	}
}

// WithSunlight sets the initial sun direction and color.
//
// Parameters:
//   - dir: the direction the sun shines in
//   - color: the sun color
//
// Returns:
//   - RendererBuilderOption: a function that applies the sunlight option to a renderer
func WithSunlight(dir, color mgl32.Vec3) RendererBuilderOption {
	return func(r *renderer) {
		r.env.SetSunDirection(dir)
		r.env.SetSunColor(color)
	}
}

// WithMaxLights caps the number of lights accepted per frame.
//
// Parameters:
//   - n: the capacity; values outside (0, light.MaxLights] select light.MaxLights
//
// Returns:
//   - RendererBuilderOption: a function that applies the light capacity option to a renderer
func WithMaxLights(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.maxLights = n
	}
}

// WithLightingMaterial names the material whose shader draws the lighting quads.
// Defaults to DefaultLightingMaterial.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - RendererBuilderOption: a function that applies the lighting material option to a renderer
func WithLightingMaterial(name string) RendererBuilderOption {
	return func(r *renderer) {
		if name != "" {
			r.lightingMaterial = name
		}
	}
}
