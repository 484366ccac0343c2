package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/helix/engine/camera"
	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/Carmen-Shannon/helix/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// fakeRenderer records the calls the engine makes. Methods the engine never calls are
// left to the embedded nil interface.
type fakeRenderer struct {
	renderer.Renderer

	mu        sync.Mutex
	frames    int
	shutdowns int
	closed    bool
	views     int
	params    frame.CameraParams
	resized   [][2]int
	renderErr error
}

func (f *fakeRenderer) RenderScene() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return renderer.ErrRendererShutdown
	}
	if f.renderErr != nil {
		return f.renderErr
	}
	f.frames++
	return nil
}

func (f *fakeRenderer) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.shutdowns++
}

func (f *fakeRenderer) Resize(width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resized = append(f.resized, [2]int{width, height})
	return nil
}

func (f *fakeRenderer) SubmitViewMatrix(mgl32.Mat4) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views++
}

func (f *fakeRenderer) SubmitProjMatrix(mgl32.Mat4) {}

func (f *fakeRenderer) SetCamera(p frame.CameraParams) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = p
}

func runWithTimeout(t *testing.T, e Engine) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestRunUntilQuit(t *testing.T) {
	r := &fakeRenderer{}
	var e Engine
	calls := 0
	e = NewEngine(r,
		WithTickInterval(time.Millisecond),
		WithCamera(camera.NewCamera()),
		WithTickCallback(func(float32) {
			calls++
			if calls == 3 {
				e.Quit()
			}
		}),
	)

	if err := runWithTimeout(t, e); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls < 3 {
		t.Errorf("tick callback ran %d times, want at least 3", calls)
	}
	if r.shutdowns != 1 {
		t.Errorf("Shutdown called %d times, want 1", r.shutdowns)
	}
	if r.frames < 2 || r.views < 3 {
		t.Errorf("frames = %d views = %d", r.frames, r.views)
	}
	if r.params != frame.DefaultCameraParams() {
		t.Errorf("camera params = %+v", r.params)
	}
	e.Quit()
}

func TestRunStopsWhenRendererShutsDown(t *testing.T) {
	r := &fakeRenderer{closed: true}
	e := NewEngine(r, WithTickInterval(time.Millisecond))

	if err := runWithTimeout(t, e); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if e.Ticks() != 0 {
		t.Errorf("Ticks() = %d, want 0", e.Ticks())
	}
}

func TestRunRecoversTickPanic(t *testing.T) {
	r := &fakeRenderer{}
	e := NewEngine(r,
		WithTickInterval(time.Millisecond),
		WithTickCallback(func(float32) { panic("boom") }),
	)

	err := runWithTimeout(t, e)
	if err == nil {
		t.Fatal("Run() returned nil after a tick panic")
	}
	if r.shutdowns != 1 {
		t.Errorf("Shutdown called %d times, want 1", r.shutdowns)
	}
}

func TestRenderErrorKeepsTicking(t *testing.T) {
	r := &fakeRenderer{renderErr: errors.New("transient")}
	var e Engine
	calls := 0
	e = NewEngine(r,
		WithTickInterval(time.Millisecond),
		WithTickCallback(func(float32) {
			calls++
			if calls == 5 {
				e.Quit()
			}
		}),
	)

	if err := runWithTimeout(t, e); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls < 5 {
		t.Errorf("tick callback ran %d times, want at least 5", calls)
	}
	if e.Ticks() != 0 {
		t.Errorf("Ticks() = %d, failed frames must not count", e.Ticks())
	}
}

func TestResize(t *testing.T) {
	r := &fakeRenderer{}
	cam := camera.NewCamera()
	e := NewEngine(r, WithCamera(cam)).(*engine)

	e.resize(0, 100)
	e.resize(800, 600)

	if len(r.resized) != 1 || r.resized[0] != [2]int{800, 600} {
		t.Errorf("resized = %v", r.resized)
	}
	if p := cam.Params(); p.ImageWidth != 800 || p.ImageHeight != 600 {
		t.Errorf("camera image size = %vx%v", p.ImageWidth, p.ImageHeight)
	}
}

func TestSetTickRate(t *testing.T) {
	e := NewEngine(&fakeRenderer{}, WithTickRate(0)).(*engine)
	if e.engineTickRate != time.Second/60 {
		t.Errorf("engineTickRate = %v", e.engineTickRate)
	}

	e.SetTickRate(100)
	e.SetTickRate(50)
	if got := <-e.tickRateChannel; got != 20*time.Millisecond {
		t.Errorf("pending rate = %v, want the latest update", got)
	}
}
