package deferred

import (
	"errors"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/helix/engine/assets"
	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
	"github.com/Carmen-Shannon/helix/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/helix/engine/submission"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	meshVB  gpu.Buffer             = 1000
	meshIB  gpu.Buffer             = 1001
	texView gpu.ShaderResourceView = 1100
)

func newRegistry(t *testing.T) *assets.Registry {
	t.Helper()
	reg := assets.NewRegistry()
	reg.AddShader(assets.Shader{Name: "gbuffer", VS: 1, PS: 2, InputLayout: 3, VertexStride: 32, State: assets.ShaderReady})
	reg.AddShader(assets.Shader{Name: "loading", VS: 1, PS: 2, InputLayout: 3, State: assets.ShaderLoading})
	reg.AddTexture("stone.png", texView)
	return reg
}

func testFrame() *frame.Context {
	view := mgl32.LookAtV(mgl32.Vec3{0, 2, -8}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, 1, 200)
	fc := frame.Build(view, proj, frame.ComputeScalars(frame.DefaultCameraParams()), light.DefaultEnvironment())
	return &fc
}

func drawRequest(world mgl32.Mat4, mat *assets.Material) submission.DrawRequest {
	return submission.DrawRequest{
		World:    world,
		Mesh:     &assets.Mesh{Name: "cube", VertexBuffer: meshVB, IndexBuffer: meshIB, IndexCount: 36},
		Material: mat,
	}
}

func expectFatal(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatal("expected a fatal panic")
		}
		fe, ok := r.(*gpu.FatalError)
		if !ok {
			t.Fatalf("panic value %T, want *gpu.FatalError", r)
		}
		if target != nil && !errors.Is(fe, target) {
			t.Fatalf("fatal error %v, want %v", fe, target)
		}
	}()
	fn()
}

func TestGBufferEmptyFrameStillClears(t *testing.T) {
	rec := gputest.NewRecorder()
	reg := newRegistry(t)
	p := NewGBufferPass(gputest.NewHandles(rec, 640, 480), reg, reg)

	stats := p.Execute(nil, testFrame())
	if stats.Draws != 0 {
		t.Fatalf("Draws = %d, want 0", stats.Draws)
	}

	want := []gputest.Call{
		{Op: "SetPSResources", Args: []any{0, []gpu.ShaderResourceView{0, 0, 0}}},
		{Op: "ClearRenderTarget", Args: []any{gputest.AlbedoRTV, AlbedoClearColor}},
		{Op: "ClearRenderTarget", Args: []any{gputest.NormalRTV, NormalClearColor}},
		{Op: "ClearRenderTarget", Args: []any{gputest.DepthRTV, DepthClearColor}},
		{Op: "ClearDepth", Args: []any{gputest.GBufferDSV, float32(1)}},
		{Op: "SetDepthStencilState", Args: []any{gputest.GBufferDepth}},
		{Op: "SetBlendState", Args: []any{gputest.GBufferBlend}},
		{Op: "SetRasterizerState", Args: []any{gputest.Rasterizer}},
		{Op: "SetRenderTargets", Args: []any{
			[]gpu.RenderTargetView{gputest.AlbedoRTV, gputest.NormalRTV, gputest.DepthRTV},
			gputest.GBufferDSV,
		}},
	}
	if got := rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls =\n%v\nwant\n%v", got, want)
	}
}

func TestGBufferDrawSequence(t *testing.T) {
	rec := gputest.NewRecorder()
	reg := newRegistry(t)
	p := NewGBufferPass(gputest.NewHandles(rec, 640, 480), reg, reg)

	mat := &assets.Material{Name: "plain", ShaderName: "gbuffer"}
	stats := p.Execute([]submission.DrawRequest{drawRequest(mgl32.Ident4(), mat)}, testFrame())
	if stats.Draws != 1 || stats.Indices != 36 {
		t.Fatalf("stats = %+v", stats)
	}

	calls := rec.Calls()
	var ops []string
	for _, c := range calls[9:] {
		ops = append(ops, c.Op)
	}
	wantOps := []string{
		"WriteConstants", "SetVSConstants", "SetPSConstants",
		"SetInputLayout", "SetVertexBuffer", "SetIndexBuffer", "SetTopology", "SetShaders", "DrawIndexed",
	}
	if !reflect.DeepEqual(ops, wantOps) {
		t.Fatalf("draw ops = %v, want %v", ops, wantOps)
	}

	if c := rec.Filter("SetVSConstants")[0]; c.Args[0] != gpu.ObjectConstantSlot || c.Args[1] != gputest.ObjectConstants {
		t.Errorf("SetVSConstants args = %v", c.Args)
	}
	if c := rec.Filter("SetVertexBuffer")[0]; c.Args[0] != meshVB || c.Args[1] != uint32(32) {
		t.Errorf("SetVertexBuffer args = %v", c.Args)
	}
	if c := rec.Filter("SetIndexBuffer")[0]; c.Args[1] != gpu.IndexFormatUint16 {
		t.Errorf("index format = %v, want uint16", c.Args[1])
	}
	if c := rec.Filter("SetTopology")[0]; c.Args[0] != gpu.TopologyTriangleList {
		t.Errorf("topology = %v", c.Args[0])
	}
	if c := rec.Filter("DrawIndexed")[0]; c.Args[0] != uint32(36) {
		t.Errorf("DrawIndexed(%v), want 36", c.Args[0])
	}
	if n := len(rec.Constants(gputest.ObjectConstants)); n != frame.ObjectConstantsSize {
		t.Errorf("object constants size = %d", n)
	}
}

func TestGBufferTextureBinding(t *testing.T) {
	tests := []struct {
		name      string
		texture   string
		wantBinds int // SetPSResources calls after the initial unbind
	}{
		{name: "no texture", texture: "", wantBinds: 0},
		{name: "file texture", texture: "stone.png", wantBinds: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gputest.NewRecorder()
			reg := newRegistry(t)
			p := NewGBufferPass(gputest.NewHandles(rec, 64, 64), reg, reg)

			mat := &assets.Material{Name: "m", ShaderName: "gbuffer", TextureName: tt.texture}
			p.Execute([]submission.DrawRequest{drawRequest(mgl32.Ident4(), mat)}, testFrame())

			binds := rec.Filter("SetPSResources")[1:]
			if len(binds) != tt.wantBinds {
				t.Fatalf("texture binds = %d, want %d", len(binds), tt.wantBinds)
			}
			if tt.wantBinds == 1 {
				if views := binds[0].Args[1].([]gpu.ShaderResourceView); views[0] != texView || binds[0].Args[0] != 0 {
					t.Errorf("texture bound as %v", binds[0].Args)
				}
			}
		})
	}
}

func TestGBufferUntexturedMaterialUnbindsTexture(t *testing.T) {
	rec := gputest.NewRecorder()
	reg := newRegistry(t)
	p := NewGBufferPass(gputest.NewHandles(rec, 64, 64), reg, reg)

	textured := &assets.Material{Name: "stone", ShaderName: "gbuffer", TextureName: "stone.png"}
	plain := &assets.Material{Name: "plain", ShaderName: "gbuffer"}
	p.Execute([]submission.DrawRequest{
		drawRequest(mgl32.Ident4(), textured),
		drawRequest(mgl32.Ident4(), textured),
		drawRequest(mgl32.Ident4(), plain),
	}, testFrame())

	binds := rec.Filter("SetPSResources")[1:]
	want := [][]gpu.ShaderResourceView{{texView}, {0}}
	if len(binds) != len(want) {
		t.Fatalf("texture binds = %d, want %d", len(binds), len(want))
	}
	for i, b := range binds {
		if b.Args[0] != 0 || !reflect.DeepEqual(b.Args[1], want[i]) {
			t.Errorf("bind %d = %v, want slot 0 %v", i, b.Args, want[i])
		}
	}
}

func TestGBufferCloseStopsWorkers(t *testing.T) {
	reg := newRegistry(t)
	mat := &assets.Material{Name: "plain", ShaderName: "gbuffer"}
	draws := make([]submission.DrawRequest, 32)
	for i := range draws {
		draws[i] = drawRequest(mgl32.Translate3D(float32(i), 0, 0), mat)
	}

	before := runtime.NumGoroutine()
	for range 5 {
		p := NewGBufferPass(gputest.NewHandles(gputest.NewRecorder(), 64, 64), reg, reg,
			WithConstantWorkers(8), WithParallelThreshold(4))
		p.Execute(draws, testFrame())
		p.Close()
		p.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if after := runtime.NumGoroutine(); after > before {
		t.Fatalf("goroutines before=%d after=%d, constant workers still running", before, after)
	}
}

func TestGBufferFatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		draw   submission.DrawRequest
		target error
	}{
		{
			name:   "shader not ready",
			draw:   drawRequest(mgl32.Ident4(), &assets.Material{Name: "m", ShaderName: "loading"}),
			target: assets.ErrShaderNotReady,
		},
		{
			name:   "unknown shader",
			draw:   drawRequest(mgl32.Ident4(), &assets.Material{Name: "m", ShaderName: "nope"}),
			target: assets.ErrNotFound,
		},
		{
			name:   "missing texture",
			draw:   drawRequest(mgl32.Ident4(), &assets.Material{Name: "m", ShaderName: "gbuffer", TextureName: "gone.png"}),
			target: assets.ErrNotFound,
		},
		{
			name: "null vertex buffer",
			draw: submission.DrawRequest{
				World:    mgl32.Ident4(),
				Mesh:     &assets.Mesh{Name: "broken", IndexBuffer: meshIB, IndexCount: 3},
				Material: &assets.Material{Name: "m", ShaderName: "gbuffer"},
			},
			target: gpu.ErrNullHandle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gputest.NewRecorder()
			reg := newRegistry(t)
			p := NewGBufferPass(gputest.NewHandles(rec, 64, 64), reg, reg)
			expectFatal(t, tt.target, func() {
				p.Execute([]submission.DrawRequest{tt.draw}, testFrame())
			})
		})
	}
}

func TestNewGBufferPassRejectsNullHandles(t *testing.T) {
	rec := gputest.NewRecorder()
	reg := newRegistry(t)
	h := gputest.NewHandles(rec, 64, 64)
	h.GBuffer.Normal.RTV = 0
	expectFatal(t, gpu.ErrNullHandle, func() {
		NewGBufferPass(h, reg, reg)
	})
}

func TestGBufferParallelConstantsMatchSequential(t *testing.T) {
	reg := newRegistry(t)
	mat := &assets.Material{Name: "plain", ShaderName: "gbuffer"}
	draws := make([]submission.DrawRequest, 100)
	for i := range draws {
		draws[i] = drawRequest(mgl32.Translate3D(float32(i), 0, float32(i%7)), mat)
	}
	fc := testFrame()

	seq := NewGBufferPass(gputest.NewHandles(gputest.NewRecorder(), 64, 64), reg, reg)
	want := append([]frame.ObjectConstants(nil), seq.prepareConstants(draws, fc)...)

	par := NewGBufferPass(gputest.NewHandles(gputest.NewRecorder(), 64, 64), reg, reg,
		WithConstantWorkers(4), WithParallelThreshold(8))
	defer par.Close()
	got := par.prepareConstants(draws, fc)

	if !reflect.DeepEqual(got, want) {
		t.Fatal("parallel object constants differ from sequential ones")
	}
}

func newLightingPass(t *testing.T, rec *gputest.Recorder) *LightingPass {
	t.Helper()
	shader := &assets.Shader{Name: "lighting", VS: 11, PS: 12, InputLayout: 13}
	return NewLightingPass(gputest.NewHandles(rec, 64, 64), shader)
}

func TestLightingNoLights(t *testing.T) {
	rec := gputest.NewRecorder()
	p := newLightingPass(t, rec)

	stats := p.Execute(nil)
	if stats.Draws != 0 {
		t.Fatalf("Draws = %d", stats.Draws)
	}
	want := []gputest.Call{
		{Op: "ClearRenderTarget", Args: []any{gputest.BackBuffer, BackClearColor}},
		{Op: "ClearDepth", Args: []any{gputest.BackDepthStencil, float32(1)}},
		{Op: "SetRenderTargets", Args: []any{[]gpu.RenderTargetView{gputest.BackBuffer}, gputest.GBufferDSV}},
		{Op: "SetDepthStencilState", Args: []any{gputest.LightingDepth}},
		{Op: "SetPSResources", Args: []any{0, []gpu.ShaderResourceView{0, 0, 0}}},
		{Op: "SetPSResources", Args: []any{0, []gpu.ShaderResourceView{gputest.AlbedoSRV, gputest.NormalSRV, gputest.DepthSRV}}},
		{Op: "SetPSResources", Args: []any{0, []gpu.ShaderResourceView{0, 0, 0}}},
	}
	if got := rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls =\n%v\nwant\n%v", got, want)
	}
}

func TestLightingDrawsPointLightsOnly(t *testing.T) {
	rec := gputest.NewRecorder()
	p := newLightingPass(t, rec)

	lights := []light.Light{
		light.NewLight(light.LightTypePoint, light.WithPosition(1, 2, 3)),
		light.NewLight(light.LightTypeDirectional),
		light.NewLight(light.LightTypeSpot),
		light.NewLight(light.LightTypePoint, light.WithColor(0, 1, 0)),
	}
	stats := p.Execute(lights)
	if stats.Draws != 2 || stats.Skipped != 2 || stats.Indices != 8 {
		t.Fatalf("stats = %+v", stats)
	}

	draws := rec.Filter("DrawIndexed")
	if len(draws) != 2 {
		t.Fatalf("DrawIndexed calls = %d", len(draws))
	}
	for _, d := range draws {
		if d.Args[0] != uint32(QuadIndexCount) {
			t.Errorf("DrawIndexed(%v), want 4", d.Args[0])
		}
	}
	for _, c := range rec.Filter("SetTopology") {
		if c.Args[0] != gpu.TopologyTriangleStrip {
			t.Errorf("topology = %v, want strip", c.Args[0])
		}
	}
	for _, c := range rec.Filter("SetPSConstants") {
		if c.Args[0] != gpu.LightConstantSlot || c.Args[1] != gputest.LightConstants {
			t.Errorf("SetPSConstants args = %v", c.Args)
		}
	}
	if c := rec.Filter("SetVertexBuffer")[0]; c.Args[0] != gputest.QuadVB || c.Args[1] != uint32(QuadVertexStride) {
		t.Errorf("quad vertex buffer bound as %v", c.Args)
	}

	// the last upload is the second point light: green, w = 1
	last := rec.Constants(gputest.LightConstants)
	want := light.NewPointLightConstants(lights[3])
	if !reflect.DeepEqual(last, want.Marshal()) {
		t.Errorf("light constants = %v", last)
	}
}

func TestNewLightingPassRejectsNullShader(t *testing.T) {
	rec := gputest.NewRecorder()
	expectFatal(t, gpu.ErrNullHandle, func() {
		NewLightingPass(gputest.NewHandles(rec, 64, 64), &assets.Shader{Name: "lighting", VS: 1})
	})
}

func TestQuad(t *testing.T) {
	if got := QuadIndices(); !reflect.DeepEqual(got, []uint16{1, 2, 0, 3}) {
		t.Errorf("indices = %v", got)
	}
	if n := len(QuadVertexBytes()); n != 4*QuadVertexStride {
		t.Errorf("vertex bytes = %d, want %d", n, 4*QuadVertexStride)
	}
	if n := len(QuadIndexBytes()); n != 8 {
		t.Errorf("index bytes = %d, want 8", n)
	}
}

func TestPassStatsAdd(t *testing.T) {
	s := PassStats{Draws: 1, Indices: 36}
	s.Add(PassStats{Draws: 2, Indices: 8, Skipped: 1})
	if s != (PassStats{Draws: 3, Indices: 44, Skipped: 1}) {
		t.Errorf("sum = %+v", s)
	}
}
