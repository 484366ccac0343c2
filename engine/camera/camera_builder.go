package camera

import (
	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithParams sets the near and far planes, the image size and the vertical field of view.
//
// Parameters:
//   - p: the camera constants
//
// Returns:
//   - CameraBuilderOption: functional option to set the camera constants
func WithParams(p frame.CameraParams) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.params = p
	}
}

// WithUp sets the up vector.
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithController attaches an orbit controller.
//
// Parameters:
//   - ctrl: the controller the eye and target are read from
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl OrbitController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
