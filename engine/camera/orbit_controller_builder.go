package camera

import "github.com/go-gl/mathgl/mgl32"

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*orbitControllerImpl)

// WithTarget sets the look-at point.
//
// Parameters:
//   - t: the target in world space
//
// Returns:
//   - OrbitControllerOption: functional option to set the target
func WithTarget(t mgl32.Vec3) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.target = t
	}
}

// WithRadius sets the initial distance from the target.
//
// Parameters:
//   - radius: distance from the target, clamped to the radius bounds
//
// Returns:
//   - OrbitControllerOption: functional option to set the radius
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.radius = radius
	}
}

// WithRadiusBounds sets the zoom limits.
func WithRadiusBounds(minRadius, maxRadius float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.minRadius = minRadius
		oc.maxRadius = maxRadius
	}
}

// WithAngles sets the initial azimuth and elevation in radians.
//
// Parameters:
//   - azimuth: horizontal angle, 0 looks down -Z from the +Z side
//   - elevation: vertical angle, clamped to the elevation bounds
//
// Returns:
//   - OrbitControllerOption: functional option to set both angles
func WithAngles(azimuth, elevation float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.azimuth = azimuth
		oc.elevation = elevation
	}
}

// WithZoomSpeed sets the zoom multiplier.
func WithZoomSpeed(speed float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.zoomSpeed = speed
	}
}
