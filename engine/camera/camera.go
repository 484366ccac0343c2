// Package camera builds view and projection matrices for the renderer from an orbiting eye.
package camera

import (
	"sync"

	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/go-gl/mathgl/mgl32"
)

// clipDepthRemap maps OpenGL clip depth [-w, w] onto the [0, w] range the GPU expects.
var clipDepthRemap = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Target receives the camera state each frame. The renderer satisfies it.
type Target interface {
	SubmitViewMatrix(m mgl32.Mat4)
	SubmitProjMatrix(m mgl32.Mat4)
	SetCamera(p frame.CameraParams)
}

// Camera holds the perspective settings and derives its matrices from an OrbitController.
type Camera interface {
	// Controller returns the attached controller.
	Controller() OrbitController

	// Params returns the camera constants for the frame scalars.
	Params() frame.CameraParams

	// ViewMatrix returns the current view matrix.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix with clip depth in [0, 1].
	ProjectionMatrix() mgl32.Mat4

	// SetImageSize updates the aspect ratio after a resize.
	//
	// Parameters:
	//   - width, height: the image size in pixels; non-positive values are ignored
	SetImageSize(width, height int)

	// Update recomputes the matrices from the controller.
	Update()

	// Submit recomputes the matrices and hands them with the camera constants to t.
	//
	// Parameters:
	//   - t: the receiver, usually the renderer
	Submit(t Target)
}

type cameraImpl struct {
	mu sync.Mutex

	up         mgl32.Vec3
	params     frame.CameraParams
	controller OrbitController

	view mgl32.Mat4
	proj mgl32.Mat4
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with frame.DefaultCameraParams and +Y up. Without a
// WithController option a default orbit controller is attached.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the new camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		up:     mgl32.Vec3{0, 1, 0},
		params: frame.DefaultCameraParams(),
	}
	for _, option := range options {
		option(c)
	}
	if c.controller == nil {
		c.controller = NewOrbitController()
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Controller() OrbitController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Params() frame.CameraParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proj
}

func (c *cameraImpl) SetImageSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.ImageWidth = float32(width)
	c.params.ImageHeight = float32(height)
	c.updateMatrices()
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) Submit(t Target) {
	c.mu.Lock()
	c.updateMatrices()
	view, proj, params := c.view, c.proj, c.params
	c.mu.Unlock()

	t.SubmitViewMatrix(view)
	t.SubmitProjMatrix(proj)
	t.SetCamera(params)
}

// updateMatrices rebuilds the view and projection. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	eye := c.controller.Position()
	c.view = mgl32.LookAtV(eye, c.controller.Target(), c.up)

	aspect := c.params.ImageWidth / c.params.ImageHeight
	c.proj = clipDepthRemap.Mul4(mgl32.Perspective(c.params.FovY, aspect, c.params.Near, c.params.Far))
}
