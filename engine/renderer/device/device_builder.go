package device

import "log/slog"

// Default capacities of the constant rings, in blocks per frame.
const (
	DefaultObjectCapacity = 4096
	DefaultLightCapacity  = 512
	frameCapacity         = 8
)

// DefaultMaxTextureSize is the largest side a loaded texture is scaled down to.
const DefaultMaxTextureSize = 2048

// DeviceBuilderOption is a functional option applied to a WGPUDevice during construction.
type DeviceBuilderOption func(*WGPUDevice)

// WithPresentMode sets the surface present mode. Defaults to PresentModeVSync.
//
// Parameters:
//   - m: the present mode
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode option
func WithPresentMode(m PresentMode) DeviceBuilderOption {
	return func(d *WGPUDevice) {
		d.presentMode = m
	}
}

// WithFallbackAdapter forces the software adapter.
func WithFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *WGPUDevice) {
		d.forceFallback = force
	}
}

// WithObjectCapacity sets how many object constant blocks one frame may write.
// Writing more is fatal.
//
// Parameters:
//   - n: the capacity; values <= 0 keep DefaultObjectCapacity
//
// Returns:
//   - DeviceBuilderOption: a function that applies the capacity option
func WithObjectCapacity(n int) DeviceBuilderOption {
	return func(d *WGPUDevice) {
		if n > 0 {
			d.objectCapacity = n
		}
	}
}

// WithLightCapacity sets how many light constant blocks one frame may write.
//
// Parameters:
//   - n: the capacity; values <= 0 keep DefaultLightCapacity
//
// Returns:
//   - DeviceBuilderOption: a function that applies the capacity option
func WithLightCapacity(n int) DeviceBuilderOption {
	return func(d *WGPUDevice) {
		if n > 0 {
			d.lightCapacity = n
		}
	}
}

// WithMaxTextureSize caps the side of loaded textures.
func WithMaxTextureSize(px int) DeviceBuilderOption {
	return func(d *WGPUDevice) {
		d.maxTextureSize = px
	}
}

// WithLogger sets the device logger. Defaults to logging.Logger().
func WithLogger(l *slog.Logger) DeviceBuilderOption {
	return func(d *WGPUDevice) {
		d.logger = l
	}
}
