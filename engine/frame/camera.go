// Package frame computes the per-frame data the render goroutine uploads before drawing:
// camera scalars, view/projection matrices and their inverses, and the global lighting terms.
// Everything here is pure computation.
package frame

import "math"

// CameraParams are the camera constants the frame scalars are derived from.
type CameraParams struct {
	Near        float32
	Far         float32
	ImageWidth  float32
	ImageHeight float32
	FovY        float32 // vertical field of view in radians
}

// DefaultCameraParams returns near 1, far 200, a 1024x768 image and a 45 degree vertical FOV.
func DefaultCameraParams() CameraParams {
	return CameraParams{
		Near:        1.0,
		Far:         200.0,
		ImageWidth:  1024,
		ImageHeight: 768,
		FovY:        math.Pi / 4,
	}
}

// Scalars are the camera values derived from CameraParams.
type Scalars struct {
	Near          float32
	Far           float32
	ImageWidth    float32
	ImageHeight   float32
	FovY          float32
	Fov           float32 // horizontal field of view in radians
	InvTanHalfFOV float32
	ViewAspect    float32
}

// ComputeScalars derives the horizontal FOV, its inverse half tangent and the aspect ratio:
//
//	d             = 0.5 * height / tan(fovY / 2)
//	fov           = 2 * atan(0.5 * width / d)
//	invTanHalfFOV = 1 / tan(fov / 2)
//	viewAspect    = width / height
//
// Parameters:
//   - p: the camera constants
//
// Returns:
//   - Scalars: the derived values
func ComputeScalars(p CameraParams) Scalars {
	w := float64(p.ImageWidth)
	h := float64(p.ImageHeight)
	d := 0.5 * h / math.Tan(float64(p.FovY)/2)
	fov := 2 * math.Atan(0.5*w/d)

	return Scalars{
		Near:          p.Near,
		Far:           p.Far,
		ImageWidth:    p.ImageWidth,
		ImageHeight:   p.ImageHeight,
		FovY:          p.FovY,
		Fov:           float32(fov),
		InvTanHalfFOV: float32(1 / math.Tan(fov/2)),
		ViewAspect:    float32(w / h),
	}
}
