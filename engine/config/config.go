// Package config loads the YAML configuration of a helix application.
//
// A file only needs the keys it changes; everything else keeps the value from Default.
// An optional overrides file is merged over the main file key by key before decoding.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/Carmen-Shannon/helix/engine/renderer"
	"github.com/Carmen-Shannon/helix/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the typed configuration document.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Camera   CameraConfig   `yaml:"camera"`
	Lighting LightingConfig `yaml:"lighting"`
	Renderer RendererConfig `yaml:"renderer"`
	Engine   EngineConfig   `yaml:"engine"`
}

// WindowConfig sizes the window.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// CameraConfig holds the projection constants. FovY is in degrees.
type CameraConfig struct {
	Near float32 `yaml:"near"`
	Far  float32 `yaml:"far"`
	FovY float32 `yaml:"fovY"`
}

// LightingConfig holds the sun, the ambient term and the point light radius.
type LightingConfig struct {
	SunDirection [3]float32 `yaml:"sunDirection"`
	SunColor     [3]float32 `yaml:"sunColor"`
	Ambient      [3]float32 `yaml:"ambient"`
	PointRadius  float32    `yaml:"pointRadius"`
	MaxLights    int        `yaml:"maxLights"`
}

// RendererConfig tunes the render goroutine and the device.
type RendererConfig struct {
	Workers        int    `yaml:"workers"`
	StackSize      int    `yaml:"stackSize"`
	PresentMode    string `yaml:"presentMode"`
	Profiling      bool   `yaml:"profiling"`
	FallbackGPU    bool   `yaml:"fallbackAdapter"`
	ObjectCapacity int    `yaml:"objectCapacity"`
	MaxTextureSize int    `yaml:"maxTextureSize"`
}

// EngineConfig drives the producer loop.
type EngineConfig struct {
	TickRate int `yaml:"tickRate"`
}

// Default returns the configuration used for every key a file leaves out.
func Default() Config {
	env := light.DefaultEnvironment()
	cam := frame.DefaultCameraParams()
	return Config{
		Window: WindowConfig{
			Title:  "helix",
			Width:  int(cam.ImageWidth),
			Height: int(cam.ImageHeight),
		},
		Camera: CameraConfig{
			Near: cam.Near,
			Far:  cam.Far,
			FovY: mgl32.RadToDeg(cam.FovY),
		},
		Lighting: LightingConfig{
			SunDirection: env.SunDirection,
			SunColor:     env.SunColor,
			Ambient:      env.Ambient,
			PointRadius:  light.DefaultPointRadius,
			MaxLights:    light.MaxLights,
		},
		Renderer: RendererConfig{
			PresentMode:    device.PresentModeVSync.String(),
			ObjectCapacity: device.DefaultObjectCapacity,
			MaxTextureSize: device.DefaultMaxTextureSize,
		},
		Engine: EngineConfig{
			TickRate: 60,
		},
	}
}

// Validate reports the first invalid value, wrapped in ErrInvalid.
//
// Returns:
//   - error: nil when every section is usable
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: camera planes near=%v far=%v", ErrInvalid, c.Camera.Near, c.Camera.Far)
	case c.Camera.FovY <= 0 || c.Camera.FovY >= 180:
		return fmt.Errorf("%w: camera fovY %v not in (0, 180)", ErrInvalid, c.Camera.FovY)
	case mgl32.Vec3(c.Lighting.SunDirection).Len() == 0:
		return fmt.Errorf("%w: zero sun direction", ErrInvalid)
	case c.Lighting.PointRadius <= 0:
		return fmt.Errorf("%w: point radius %v", ErrInvalid, c.Lighting.PointRadius)
	case c.Lighting.MaxLights <= 0 || c.Lighting.MaxLights > light.MaxLights:
		return fmt.Errorf("%w: maxLights %d not in [1, %d]", ErrInvalid, c.Lighting.MaxLights, light.MaxLights)
	case c.Renderer.Workers < 0 || c.Renderer.StackSize < 0:
		return fmt.Errorf("%w: negative workers or stack size", ErrInvalid)
	case c.Engine.TickRate <= 0:
		return fmt.Errorf("%w: tick rate %d", ErrInvalid, c.Engine.TickRate)
	}
	if _, err := device.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// CameraParams converts the camera and window sections into frame constants.
func (c *Config) CameraParams() frame.CameraParams {
	return frame.CameraParams{
		Near:        c.Camera.Near,
		Far:         c.Camera.Far,
		ImageWidth:  float32(c.Window.Width),
		ImageHeight: float32(c.Window.Height),
		FovY:        mgl32.DegToRad(c.Camera.FovY),
	}
}

// Environment converts the lighting section. Direction and colors pass through the
// light.Environment setters.
func (c *Config) Environment() light.Environment {
	var env light.Environment
	env.SetSunDirection(c.Lighting.SunDirection)
	env.SetSunColor(c.Lighting.SunColor)
	env.SetAmbient(c.Lighting.Ambient)
	return env
}

// RendererOptions converts the configuration into renderer builder options.
//
// Returns:
//   - []renderer.RendererBuilderOption: options for renderer.InitializeRenderer
func (c *Config) RendererOptions() []renderer.RendererBuilderOption {
	return []renderer.RendererBuilderOption{
		renderer.WithCamera(c.CameraParams()),
		renderer.WithEnvironment(c.Environment()),
		renderer.WithConstantWorkers(c.Renderer.Workers),
		renderer.WithStackSize(c.Renderer.StackSize),
		renderer.WithProfiling(c.Renderer.Profiling),
		renderer.WithMaxLights(c.Lighting.MaxLights),
	}
}

// DeviceOptions converts the renderer section into device builder options. Call Validate
// first; an unparsable present mode falls back to vsync.
//
// Returns:
//   - []device.DeviceBuilderOption: options for device.NewWGPUDevice
func (c *Config) DeviceOptions() []device.DeviceBuilderOption {
	mode, _ := device.ParsePresentMode(c.Renderer.PresentMode)
	return []device.DeviceBuilderOption{
		device.WithPresentMode(mode),
		device.WithFallbackAdapter(c.Renderer.FallbackGPU),
		device.WithObjectCapacity(c.Renderer.ObjectCapacity),
		device.WithLightCapacity(c.Lighting.MaxLights),
		device.WithMaxTextureSize(c.Renderer.MaxTextureSize),
	}
}

// TickInterval is the producer frame period.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(max(c.Engine.TickRate, 1))
}
