package light

import (
	"github.com/Carmen-Shannon/helix/common"
	"github.com/go-gl/mathgl/mgl32"
)

// LightBuilderOption is a function that configures a Light during construction.
type LightBuilderOption func(*Light)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a Light
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *Light) {
		l.Position = mgl32.Vec3{x, y, z}
	}
}

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a Light
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *Light) {
		l.Direction = common.Normalize3(mgl32.Vec3{x, y, z})
	}
}

// WithColor is an option builder that sets the linear RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a Light
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *Light) {
		l.Color = mgl32.Vec3{r, g, b}
	}
}

// WithRadius is an option builder that sets the light radius.
//
// Parameters:
//   - radius: the radius in world units
//
// Returns:
//   - LightBuilderOption: a function that applies the radius option to a Light
func WithRadius(radius float32) LightBuilderOption {
	return func(l *Light) {
		l.Radius = radius
	}
}
