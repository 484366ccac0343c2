package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/helix/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

func readVec3(b []byte, off int) mgl32.Vec3 {
	var v mgl32.Vec3
	for i := range 3 {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[off+4*i:]))
	}
	return v
}

func TestBuildCube(t *testing.T) {
	vertices, indices := buildCube()
	const stride = 32

	if len(vertices) != 24*stride {
		t.Fatalf("vertex bytes = %d, want %d", len(vertices), 24*stride)
	}
	if len(indices) != 36 {
		t.Fatalf("indices = %d, want 36", len(indices))
	}

	for tri := 0; tri < len(indices); tri += 3 {
		a := readVec3(vertices, int(indices[tri])*stride)
		b := readVec3(vertices, int(indices[tri+1])*stride)
		c := readVec3(vertices, int(indices[tri+2])*stride)
		normal := readVec3(vertices, int(indices[tri])*stride+12)

		for _, p := range []mgl32.Vec3{a, b, c} {
			if p.Dot(normal) != 1 {
				t.Fatalf("triangle %d: vertex %v does not lie on the face with normal %v", tri/3, p, normal)
			}
		}
		// clockwise seen from outside: the right-handed face normal points inwards
		if n := b.Sub(a).Cross(c.Sub(a)); n.Dot(normal) >= 0 {
			t.Errorf("triangle %d winds counter-clockwise around %v", tri/3, normal)
		}
	}
}

func TestGrid(t *testing.T) {
	g := newGrid(10, 2)
	if g.side != 4 {
		t.Fatalf("side = %d, want 4", g.side)
	}
	if got := g.position(0); got != (mgl32.Vec3{-3, 0, -3}) {
		t.Errorf("position(0) = %v", got)
	}
	if got := g.position(15); got != (mgl32.Vec3{3, 0, 3}) {
		t.Errorf("position(15) = %v", got)
	}
	if g.extent() != 4 {
		t.Errorf("extent() = %v", g.extent())
	}

	origin := g.world(5, 1.5).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !origin.Vec3().ApproxEqual(g.position(5)) {
		t.Errorf("world(5) moves the origin to %v, want %v", origin, g.position(5))
	}

	if newGrid(0, 1).side != 1 {
		t.Error("an empty grid still has one cell")
	}
}

func TestLightRing(t *testing.T) {
	lights := lightRing(4, 10, 2, 6, 0)
	if len(lights) != 4 {
		t.Fatalf("len = %d", len(lights))
	}
	for i, l := range lights {
		flat := mgl32.Vec2{l.Position[0], l.Position[2]}
		if math.Abs(float64(flat.Len()-10)) > 1e-4 || l.Position[1] != 2 {
			t.Errorf("light %d at %v is off the ring", i, l.Position)
		}
		if l.Radius != 6 {
			t.Errorf("light %d radius = %v", i, l.Radius)
		}
	}
}

func TestHueToRGB(t *testing.T) {
	tests := []struct {
		h       float32
		r, g, b float32
	}{
		{0, 1, 0, 0},
		{1.0 / 3, 0, 1, 0},
		{2.0 / 3, 0, 0, 1},
		{0.5, 0, 1, 1},
	}
	for _, tt := range tests {
		r, g, b := hueToRGB(tt.h)
		got := mgl32.Vec3{r, g, b}
		if !got.ApproxEqualThreshold(mgl32.Vec3{tt.r, tt.g, tt.b}, 1e-5) {
			t.Errorf("hueToRGB(%v) = %v", tt.h, got)
		}
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, renderer.FrameStats{Frames: 42, LightDraws: 7}, 43)

	out := buf.String()
	for _, want := range []string{"frames", "42", "light draws", "7", "ticks", "43"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats table missing %q:\n%s", want, out)
		}
	}
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-cubes", "9", "-lights", "2", "-mesh", "fox.glb", "-v"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if o.cubes != 9 || o.lights != 2 || o.mesh != "fox.glb" || !o.verbose {
		t.Errorf("options = %+v", o)
	}

	if _, err := parseFlags([]string{"-cubes", "-1"}); err == nil {
		t.Error("negative cube count accepted")
	}
}
