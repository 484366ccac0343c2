package submission

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/helix/engine/assets"
	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	reg := assets.NewRegistry()
	reg.AddMaterial(assets.Material{Name: "stone", ShaderName: "gbuffer"})
	reg.AddMesh(assets.Mesh{Name: "cube", VertexBuffer: 1, IndexBuffer: 2, IndexCount: 36, MaterialName: "stone"})
	reg.AddMesh(assets.Mesh{Name: "orphan", VertexBuffer: 3, IndexBuffer: 4, IndexCount: 6, MaterialName: "missing"})
	return NewQueue(reg, reg, frame.DefaultCameraParams())
}

func TestSubmitInstance(t *testing.T) {
	tests := []struct {
		name    string
		mesh    string
		wantErr error
	}{
		{name: "known mesh", mesh: "cube"},
		{name: "unknown mesh", mesh: "teapot", wantErr: ErrUnknownMesh},
		{name: "unknown material", mesh: "orphan", wantErr: ErrUnknownMaterial},
		{name: "empty name", mesh: "", wantErr: ErrUnknownMesh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newTestQueue(t)
			err := q.SubmitInstance(mgl32.Ident4(), tt.mesh)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SubmitInstance(%q) = %v, want %v", tt.mesh, err, tt.wantErr)
			}
			wantPending := 1
			if tt.wantErr != nil {
				wantPending = 0
			}
			if got := q.Pending(); got != wantPending {
				t.Errorf("Pending = %d, want %d", got, wantPending)
			}
		})
	}
}

func TestSubmitInstanceReleasesGuardOnFailure(t *testing.T) {
	q := newTestQueue(t)
	_ = q.SubmitInstance(mgl32.Ident4(), "teapot")

	done := make(chan struct{})
	go func() {
		_ = q.SubmitInstance(mgl32.Ident4(), "cube")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("guard still held after failed submission")
	}
}

func TestDrawOrderAndDuplicates(t *testing.T) {
	q := newTestQueue(t)
	for i := range 3 {
		if err := q.SubmitInstance(mgl32.Translate3D(float32(i), 0, 0), "cube"); err != nil {
			t.Fatal(err)
		}
	}
	i := q.Advance(nil)
	draws := q.Slot(i).Draws()
	if len(draws) != 3 {
		t.Fatalf("len(draws) = %d, want 3", len(draws))
	}
	for j, d := range draws {
		if d.World[12] != float32(j) {
			t.Errorf("draw %d translation = %v, want %d", j, d.World[12], j)
		}
		if d.Mesh.Name != "cube" || d.Material.Name != "stone" {
			t.Errorf("draw %d resolved to %q/%q", j, d.Mesh.Name, d.Material.Name)
		}
	}
}

func TestAdvanceAlternatesSlots(t *testing.T) {
	q := newTestQueue(t)
	if q.InFlight() != nil || q.InFlightIndex() != -1 {
		t.Fatal("no slot should be in flight before the first Advance")
	}
	for frameN := range 5 {
		active := q.Active()
		got := q.Advance(nil)
		if got != active {
			t.Fatalf("frame %d: in-flight = %d, want previous active %d", frameN, got, active)
		}
		if q.Active() == q.InFlightIndex() {
			t.Fatalf("frame %d: active and in-flight slots alias (%d)", frameN, got)
		}
		if q.InFlight().Index() != got {
			t.Fatalf("frame %d: InFlight().Index() = %d", frameN, q.InFlight().Index())
		}
	}
	if q.Stats().Frames != 5 {
		t.Errorf("Frames = %d, want 5", q.Stats().Frames)
	}
}

func TestSubmissionsDuringRenderLandInNextSlot(t *testing.T) {
	q := newTestQueue(t)
	_ = q.SubmitInstance(mgl32.Ident4(), "cube")
	inFlight := q.Advance(nil)

	// producer keeps filling while the in-flight slot renders
	_ = q.SubmitInstance(mgl32.Ident4(), "cube")
	_ = q.SubmitInstance(mgl32.Ident4(), "cube")

	if n := len(q.Slot(inFlight).Draws()); n != 1 {
		t.Errorf("in-flight draws = %d, want 1", n)
	}
	if n := q.Pending(); n != 2 {
		t.Errorf("pending draws = %d, want 2", n)
	}
}

func TestDrain(t *testing.T) {
	q := newTestQueue(t)
	for range 4 {
		_ = q.SubmitInstance(mgl32.Ident4(), "cube")
	}
	i := q.Advance(nil)

	if n := q.Drain(i); n != 4 {
		t.Fatalf("Drain = %d, want 4", n)
	}
	if n := q.Drain(i); n != 0 {
		t.Fatalf("second Drain = %d, want 0", n)
	}
	if n := len(q.Slot(i).Draws()); n != 0 {
		t.Fatalf("slot still has %d draws", n)
	}
	if cap(q.Slot(i).Draws()) < 4 {
		t.Errorf("drain should keep the slot's storage, cap = %d", cap(q.Slot(i).Draws()))
	}
	if s := q.Stats(); s.Submitted != 4 || s.Released != 4 {
		t.Errorf("stats = %+v, want 4 submitted and released", s)
	}
}

func TestDrainEmptySlot(t *testing.T) {
	q := newTestQueue(t)
	i := q.Advance(nil)
	if n := q.Drain(i); n != 0 {
		t.Fatalf("Drain of empty slot = %d", n)
	}
}

func TestDrainAll(t *testing.T) {
	q := newTestQueue(t)
	_ = q.SubmitInstance(mgl32.Ident4(), "cube")
	_ = q.SubmitInstance(mgl32.Ident4(), "cube")
	q.Advance(nil)
	_ = q.SubmitInstance(mgl32.Ident4(), "cube")

	if n := q.DrainAll(); n != 3 {
		t.Fatalf("DrainAll = %d, want 3", n)
	}
	if n := q.DrainAll(); n != 0 {
		t.Fatalf("second DrainAll = %d, want 0", n)
	}
}

func TestCloseRefusesSubmissions(t *testing.T) {
	q := newTestQueue(t)
	_ = q.SubmitInstance(mgl32.Ident4(), "cube")
	q.Advance(nil)
	_ = q.SubmitInstance(mgl32.Ident4(), "cube")

	if n := q.Close(); n != 2 {
		t.Fatalf("Close = %d, want 2", n)
	}
	if err := q.SubmitInstance(mgl32.Ident4(), "cube"); !errors.Is(err, ErrClosed) {
		t.Fatalf("SubmitInstance after Close = %v, want ErrClosed", err)
	}
	if q.Pending() != 0 {
		t.Errorf("Pending = %d after Close", q.Pending())
	}
	if n := q.Close(); n != 0 {
		t.Errorf("second Close = %d, want 0", n)
	}
	if st := q.Stats(); st.Rejected != 0 || st.Submitted != 2 {
		t.Errorf("stats = %+v, a closed queue does not count rejections", st)
	}
}

// gatedMeshes blocks ResolveMesh, which runs under the queue guard, until release is closed.
type gatedMeshes struct {
	assets.MeshResolver
	entered chan struct{}
	release chan struct{}
}

func (g *gatedMeshes) ResolveMesh(name string) (*assets.Mesh, error) {
	close(g.entered)
	<-g.release
	return g.MeshResolver.ResolveMesh(name)
}

func TestCloseDuringSubmitReleasesEverything(t *testing.T) {
	reg := assets.NewRegistry()
	reg.AddMaterial(assets.Material{Name: "stone", ShaderName: "gbuffer"})
	reg.AddMesh(assets.Mesh{Name: "cube", VertexBuffer: 1, IndexBuffer: 2, IndexCount: 36, MaterialName: "stone"})
	gate := &gatedMeshes{MeshResolver: reg, entered: make(chan struct{}), release: make(chan struct{})}
	q := NewQueue(gate, reg, frame.DefaultCameraParams())

	submitted := make(chan error, 1)
	go func() { submitted <- q.SubmitInstance(mgl32.Ident4(), "cube") }()
	<-gate.entered

	closed := make(chan int, 1)
	go func() { closed <- q.Close() }()
	close(gate.release)

	if err := <-submitted; err != nil {
		t.Fatalf("SubmitInstance = %v", err)
	}
	if n := <-closed; n != 1 {
		t.Fatalf("Close released %d, want the in-progress draw", n)
	}
	if st := q.Stats(); st.Submitted != st.Released {
		t.Errorf("stats = %+v, every submitted draw must be released", st)
	}
}

func TestRenderSlotDoesNotTakeGuard(t *testing.T) {
	q := newTestQueue(t)
	if q.RenderSlot() != nil {
		t.Fatal("RenderSlot before Advance must be nil")
	}
	sealed := q.Advance(nil)

	held := make(chan struct{})
	release := make(chan struct{})
	go q.guard.Do(func() {
		close(held)
		<-release
	})
	<-held
	defer close(release)

	got := make(chan *Slot, 1)
	go func() { got <- q.RenderSlot() }()
	select {
	case s := <-got:
		if s.Index() != sealed {
			t.Errorf("RenderSlot().Index() = %d, want %d", s.Index(), sealed)
		}
	case <-time.After(time.Second):
		t.Fatal("RenderSlot blocked on the submission guard")
	}
}

func TestAdvanceSealsSlot(t *testing.T) {
	q := newTestQueue(t)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, 1, 200)
	q.SubmitViewMatrix(view)
	q.SubmitProjMatrix(proj)

	lights := light.NewBuffer(0)
	_ = lights.Add(light.NewLight(light.LightTypePoint))

	i := q.Advance(func(s *Slot, scalars frame.Scalars) {
		s.Frame = frame.Build(s.View(), s.Proj(), scalars, light.DefaultEnvironment())
		lights.SnapshotInto(&s.Lights)
	})

	slot := q.Slot(i)
	if slot.Frame.View != view || slot.Frame.Proj != proj {
		t.Error("sealed frame context does not carry the submitted matrices")
	}
	if slot.Frame.Scalars.Far != 200 {
		t.Errorf("scalars.Far = %v, want 200", slot.Frame.Scalars.Far)
	}
	if slot.Lights.Len() != 1 || lights.Len() != 0 {
		t.Errorf("snapshot len = %d, buffer len = %d", slot.Lights.Len(), lights.Len())
	}
	// matrices carry over to the next active slot
	next := q.Slot(q.Active())
	if next.View() != view || next.Proj() != proj {
		t.Error("next active slot lost the submitted matrices")
	}
}

func TestSetCameraRecomputesScalars(t *testing.T) {
	q := newTestQueue(t)
	p := frame.DefaultCameraParams()
	p.ImageWidth, p.ImageHeight = 800, 800
	q.SetCamera(p)

	if got := q.Scalars().ViewAspect; got != 1 {
		t.Errorf("ViewAspect = %v, want 1", got)
	}
	if q.Camera() != p {
		t.Errorf("Camera = %+v, want %+v", q.Camera(), p)
	}
}

func TestConcurrentSubmission(t *testing.T) {
	q := newTestQueue(t)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				_ = q.SubmitInstance(mgl32.Ident4(), "cube")
				_ = q.SubmitInstance(mgl32.Ident4(), "teapot")
			}
		}()
	}
	wg.Wait()

	if n := q.Pending(); n != 200 {
		t.Fatalf("Pending = %d, want 200", n)
	}
	if s := q.Stats(); s.Submitted != 200 || s.Rejected != 200 {
		t.Errorf("stats = %+v", s)
	}
}
