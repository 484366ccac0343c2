package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// OrbitController places the eye on a sphere around a target point. Position is derived from
// the radius, the azimuth around +Y and the elevation above the XZ plane.
type OrbitController interface {
	// Position returns the eye position in world space.
	Position() mgl32.Vec3

	// Target returns the look-at point.
	Target() mgl32.Vec3

	// SetTarget moves the look-at point and keeps the orbit angles.
	//
	// Parameters:
	//   - t: the new target in world space
	SetTarget(t mgl32.Vec3)

	// Orbit turns the eye around the target.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians, clamped to the elevation bounds
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye towards the target. Positive delta zooms in.
	//
	// Parameters:
	//   - delta: zoom amount scaled by the zoom speed
	Zoom(delta float32)

	// Radius returns the current distance from the target.
	Radius() float32

	// Azimuth returns the horizontal angle in radians.
	Azimuth() float32

	// Elevation returns the vertical angle in radians.
	Elevation() float32
}

type orbitControllerImpl struct {
	mu sync.Mutex

	target    mgl32.Vec3
	position  mgl32.Vec3
	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32
	zoomSpeed    float32
}

var _ OrbitController = &orbitControllerImpl{}

// NewOrbitController creates an orbit controller. Defaults: target at the origin, radius 10,
// elevation 30 degrees.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - OrbitController: the new controller
func NewOrbitController(options ...OrbitControllerOption) OrbitController {
	oc := &orbitControllerImpl{
		radius:       10,
		elevation:    float32(math.Pi / 6),
		minRadius:    1,
		maxRadius:    500,
		minElevation: -float32(math.Pi/2 - 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),
		zoomSpeed:    1,
	}
	for _, option := range options {
		option(oc)
	}
	oc.radius = clamp(oc.radius, oc.minRadius, oc.maxRadius)
	oc.elevation = clamp(oc.elevation, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
	return oc
}

// updatePosition recomputes the eye from the spherical coordinates. Caller must hold the mutex.
func (oc *orbitControllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(oc.elevation)))
	sinElev := float32(math.Sin(float64(oc.elevation)))
	cosAzim := float32(math.Cos(float64(oc.azimuth)))
	sinAzim := float32(math.Sin(float64(oc.azimuth)))

	offset := mgl32.Vec3{cosElev * sinAzim, sinElev, cosElev * cosAzim}.Mul(oc.radius)
	oc.position = oc.target.Add(offset)
}

func (oc *orbitControllerImpl) Position() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.position
}

func (oc *orbitControllerImpl) Target() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target
}

func (oc *orbitControllerImpl) SetTarget(t mgl32.Vec3) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.target = t
	oc.updatePosition()
}

func (oc *orbitControllerImpl) Orbit(dAzimuth, dElevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth = float32(math.Mod(float64(oc.azimuth+dAzimuth), 2*math.Pi))
	oc.elevation = clamp(oc.elevation+dElevation, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
}

func (oc *orbitControllerImpl) Zoom(delta float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = clamp(oc.radius-delta*oc.zoomSpeed, oc.minRadius, oc.maxRadius)
	oc.updatePosition()
}

func (oc *orbitControllerImpl) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

func (oc *orbitControllerImpl) Azimuth() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.azimuth
}

func (oc *orbitControllerImpl) Elevation() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.elevation
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
