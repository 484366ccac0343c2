package light

import (
	"github.com/Carmen-Shannon/helix/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Environment holds the global lighting terms uploaded with every frame: the sun and the
// ambient color. Use the setters so the stored values stay normalized and clamped.
type Environment struct {
	SunDirection mgl32.Vec3
	SunColor     mgl32.Vec3
	Ambient      mgl32.Vec3
}

// DefaultEnvironment returns a sun pointing straight down with a red tint and full white ambient.
func DefaultEnvironment() Environment {
	return Environment{
		SunDirection: mgl32.Vec3{0, -1, 0},
		SunColor:     mgl32.Vec3{1, 0, 0},
		Ambient:      mgl32.Vec3{1, 1, 1},
	}
}

// SetSunDirection stores dir normalized.
func (e *Environment) SetSunDirection(dir mgl32.Vec3) {
	e.SunDirection = common.Normalize3(dir)
}

// SetSunColor stores c with each component clamped to [0, 1].
func (e *Environment) SetSunColor(c mgl32.Vec3) {
	e.SunColor = mgl32.Vec3{common.Clamp01(c[0]), common.Clamp01(c[1]), common.Clamp01(c[2])}
}

// SetAmbient stores c with each component clamped to at most 1. Negative values are kept.
func (e *Environment) SetAmbient(c mgl32.Vec3) {
	e.Ambient = mgl32.Vec3{min(c[0], 1), min(c[1], 1), min(c[2], 1)}
}
