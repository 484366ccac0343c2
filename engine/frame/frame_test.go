package frame

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestComputeScalarsDefaults(t *testing.T) {
	s := ComputeScalars(DefaultCameraParams())

	if s.Near != 1 || s.Far != 200 || s.ImageWidth != 1024 || s.ImageHeight != 768 {
		t.Fatalf("camera constants = %+v", s)
	}
	if !approx(float64(s.ViewAspect), 1024.0/768.0, 1e-6) {
		t.Errorf("ViewAspect = %v", s.ViewAspect)
	}
	// invTanHalfFOV reduces to (height/width) / tan(fovY/2)
	want := (768.0 / 1024.0) / math.Tan(math.Pi/8)
	if !approx(float64(s.InvTanHalfFOV), want, 1e-4) {
		t.Errorf("InvTanHalfFOV = %v, want %v", s.InvTanHalfFOV, want)
	}
	if !approx(float64(s.Fov), 2*math.Atan(1/want), 1e-4) {
		t.Errorf("Fov = %v", s.Fov)
	}
	if s.Fov <= s.FovY {
		t.Errorf("horizontal fov %v should exceed vertical %v for a wide image", s.Fov, s.FovY)
	}
}

func TestComputeScalarsSquareImage(t *testing.T) {
	p := DefaultCameraParams()
	p.ImageWidth, p.ImageHeight = 512, 512
	s := ComputeScalars(p)
	if !approx(float64(s.Fov), float64(p.FovY), 1e-5) {
		t.Errorf("square image: Fov = %v, want FovY %v", s.Fov, p.FovY)
	}
	if s.ViewAspect != 1 {
		t.Errorf("ViewAspect = %v, want 1", s.ViewAspect)
	}
}

func testMatrices() (mgl32.Mat4, mgl32.Mat4) {
	view := mgl32.LookAtV(mgl32.Vec3{3, 4, -10}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, 1, 200)
	return view, proj
}

func TestBuildInverseRoundTrip(t *testing.T) {
	view, proj := testMatrices()
	ctx := Build(view, proj, ComputeScalars(DefaultCameraParams()), light.DefaultEnvironment())

	ident := mgl32.Ident4()
	if got := ctx.InvView.Mul4(view); !got.ApproxEqualThreshold(ident, 1e-4) {
		t.Errorf("InvView * View = %v, want identity", got)
	}
	viewProj := proj.Mul4(view)
	if got := ctx.InvViewProj.Mul4(viewProj); !got.ApproxEqualThreshold(ident, 1e-3) {
		t.Errorf("InvViewProj * ViewProj = %v, want identity", got)
	}
	if got := ctx.InvProj.Mul4(proj); !got.ApproxEqualThreshold(ident, 1e-4) {
		t.Errorf("InvProj * Proj = %v, want identity", got)
	}
}

func TestBuildIdentityView(t *testing.T) {
	_, proj := testMatrices()
	ctx := Build(mgl32.Ident4(), proj, ComputeScalars(DefaultCameraParams()), light.DefaultEnvironment())
	if ctx.InvView != mgl32.Ident4() {
		t.Errorf("InvView of identity = %v", ctx.InvView)
	}
	if ctx.View3x3 != mgl32.Ident4() {
		t.Errorf("View3x3 of identity = %v", ctx.View3x3)
	}
}

func TestBuildEnvironment(t *testing.T) {
	env := light.DefaultEnvironment()
	env.SetSunDirection(mgl32.Vec3{0, -2, 0})
	env.SetSunColor(mgl32.Vec3{0.5, 0.5, 0.5})
	env.SetAmbient(mgl32.Vec3{0.1, 0.1, 0.1})

	ctx := Build(mgl32.Ident4(), mgl32.Ident4(), Scalars{}, env)
	if ctx.SunDirection != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("SunDirection = %v, want negated light direction", ctx.SunDirection)
	}

	c := ctx.Constants()
	if c.SunDirection[3] != 0 || c.SunColor[3] != 0 || c.Ambient[3] != 1 {
		t.Errorf("w components = %v %v %v", c.SunDirection[3], c.SunColor[3], c.Ambient[3])
	}
}

func TestObjectConstants(t *testing.T) {
	view, proj := testMatrices()
	ctx := Build(view, proj, ComputeScalars(DefaultCameraParams()), light.DefaultEnvironment())
	world := mgl32.Translate3D(2, 0, 5).Mul4(mgl32.HomogRotate3DY(1.1))

	oc := ctx.ObjectConstants(world)

	if !oc.WorldView.ApproxEqualThreshold(view.Mul4(world), 1e-5) {
		t.Error("WorldView != View * World")
	}
	wvp := proj.Mul4(view).Mul4(world)
	if got := oc.InvWorldViewProj.Mul4(wvp); !got.ApproxEqualThreshold(mgl32.Ident4(), 1e-3) {
		t.Errorf("InvWorldViewProj * WorldViewProj = %v", got)
	}
	for _, i := range []int{3, 7, 11, 12, 13, 14} {
		if oc.WorldViewIT[i] != 0 {
			t.Errorf("WorldViewIT[%d] = %v, want 0", i, oc.WorldViewIT[i])
		}
	}
	if oc.WorldViewIT[15] != 1 {
		t.Errorf("WorldViewIT[15] = %v, want 1", oc.WorldViewIT[15])
	}
}

func TestObjectConstantsSingular(t *testing.T) {
	ctx := Build(mgl32.Ident4(), mgl32.Mat4{}, Scalars{}, light.DefaultEnvironment())
	oc := ctx.ObjectConstants(mgl32.Ident4())
	if oc.InvWorldViewProj != (mgl32.Mat4{}) {
		t.Errorf("inverse of singular matrix = %v, want zero", oc.InvWorldViewProj)
	}
}

func TestFrameConstantsMarshalLayout(t *testing.T) {
	view, proj := testMatrices()
	ctx := Build(view, proj, ComputeScalars(DefaultCameraParams()), light.DefaultEnvironment())
	c := ctx.Constants()
	buf := c.Marshal()

	if len(buf) != FrameConstantsSize {
		t.Fatalf("len = %d, want %d", len(buf), FrameConstantsSize)
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }

	if f(0) != view[0] || f(60) != view[15] {
		t.Error("view not at offset 0")
	}
	if f(64) != proj[0] {
		t.Error("proj not at offset 64")
	}
	if f(416) != c.Ambient[0] || f(428) != 1 {
		t.Error("ambient not at offset 416")
	}
	if f(432) != 1 || f(436) != 200 || f(440) != 1024 || f(444) != 768 {
		t.Errorf("camera scalars = %v %v %v %v", f(432), f(436), f(440), f(444))
	}
	if f(448) != c.InvTanHalfFOV || f(452) != c.ViewAspect {
		t.Error("invTanHalfFOV/viewAspect misplaced")
	}
}

func TestObjectConstantsMarshal(t *testing.T) {
	oc := ObjectConstants{WorldView: mgl32.Translate3D(1, 2, 3)}
	buf := oc.Marshal()
	if len(buf) != ObjectConstantsSize {
		t.Fatalf("len = %d, want %d", len(buf), ObjectConstantsSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[13*4:])); got != 2 {
		t.Errorf("worldView[13] = %v, want 2", got)
	}
}
