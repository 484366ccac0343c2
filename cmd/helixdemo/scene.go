package main

import (
	"math"

	"github.com/Carmen-Shannon/helix/common"
	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// cubeVertex matches the G-buffer shader's vertex input: position, normal, uv.
type cubeVertex struct {
	Pos    [3]float32
	Normal [3]float32
	UV     [2]float32
}

// cubeFace is one side of the unit cube: its outward normal and the right and up axes seen
// from outside, with right x up == normal.
type cubeFace struct {
	normal, right, up mgl32.Vec3
}

var cubeFaces = [6]cubeFace{
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
}

// buildCube returns a cube of side 2 centred on the origin with 24 vertices and 36 indices.
// Triangles wind clockwise seen from outside, the front face of the G-buffer pipeline.
func buildCube() ([]byte, []uint16) {
	vertices := make([]cubeVertex, 0, 24)
	indices := make([]uint16, 0, 36)

	corners := [4][2]float32{{-1, 1}, {1, 1}, {1, -1}, {-1, -1}}
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	for _, f := range cubeFaces {
		base := uint16(len(vertices))
		for i, c := range corners {
			pos := f.normal.Add(f.right.Mul(c[0])).Add(f.up.Mul(c[1]))
			vertices = append(vertices, cubeVertex{Pos: pos, Normal: f.normal, UV: uvs[i]})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return common.SliceToBytes(vertices), indices
}

// grid lays out cubes on a square in the XZ plane, spacing units apart.
type grid struct {
	side    int
	spacing float32
}

func newGrid(count int, spacing float32) grid {
	side := int(math.Ceil(math.Sqrt(float64(max(count, 1)))))
	return grid{side: side, spacing: spacing}
}

// position returns the centre of cube i.
func (g grid) position(i int) mgl32.Vec3 {
	half := float32(g.side-1) * g.spacing / 2
	x := float32(i%g.side)*g.spacing - half
	z := float32(i/g.side)*g.spacing - half
	return mgl32.Vec3{x, 0, z}
}

// extent returns the half width of the grid.
func (g grid) extent() float32 {
	return float32(g.side) * g.spacing / 2
}

// world returns the world matrix of cube i at time t: each cube spins about Y with a phase
// derived from its index.
func (g grid) world(i int, t float32) mgl32.Mat4 {
	angle := t + float32(i)*0.37
	return mgl32.Translate3D(g.position(i).Elem()).Mul4(mgl32.HomogRotate3DY(angle)).Mul4(mgl32.Scale3D(0.5, 0.5, 0.5))
}

// lightRing places n point lights on a circle above the grid, rotating with t.
func lightRing(n int, radius, height, pointRadius, t float32) []light.Light {
	lights := make([]light.Light, 0, n)
	for i := range n {
		angle := t*0.5 + float32(i)*2*math.Pi/float32(n)
		x := radius * float32(math.Cos(float64(angle)))
		z := radius * float32(math.Sin(float64(angle)))
		hue := float32(i) / float32(n)
		r, g, b := hueToRGB(hue)
		lights = append(lights, light.NewLight(light.LightTypePoint,
			light.WithPosition(x, height, z),
			light.WithColor(r, g, b),
			light.WithRadius(pointRadius),
		))
	}
	return lights
}

// hueToRGB converts a hue in [0, 1) at full saturation and value.
func hueToRGB(h float32) (r, g, b float32) {
	h6 := h * 6
	x := 1 - float32(math.Abs(math.Mod(float64(h6), 2)-1))
	switch int(h6) % 6 {
	case 0:
		return 1, x, 0
	case 1:
		return x, 1, 0
	case 2:
		return 0, 1, x
	case 3:
		return 0, x, 1
	case 4:
		return x, 0, 1
	default:
		return 1, 0, x
	}
}
