package light

import "github.com/go-gl/mathgl/mgl32"

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// The sun is carried separately on Environment; directional records are accepted
	// by the light buffer but not shaded by the lighting pass.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Each point light is shaded with one full-screen pass.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Accepted by the light buffer; not shaded by the lighting pass.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "Directional"
	case LightTypePoint:
		return "Point"
	case LightTypeSpot:
		return "Spot"
	default:
		return "Unknown"
	}
}

// DefaultPointRadius is the radius of a point light that does not set one. The lighting
// shader does not derive an attenuation curve from it.
const DefaultPointRadius float32 = 5.0

// Light is a single light record. Lights are values: the buffer and every snapshot hold
// their own copies, so a Light can be reused by the caller after submission.
type Light struct {
	Type      LightType
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Radius    float32
}

// NewLight creates a Light of the given type and applies the options in order.
// Color defaults to white and Radius to DefaultPointRadius.
//
// Parameters:
//   - lightType: the kind of light
//   - opts: option builders to configure the light
//
// Returns:
//   - Light: the configured light
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := Light{
		Type:      lightType,
		Direction: mgl32.Vec3{0, -1, 0},
		Color:     mgl32.Vec3{1, 1, 1},
		Radius:    DefaultPointRadius,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}
