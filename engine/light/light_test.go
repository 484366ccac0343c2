package light

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewLightDefaults(t *testing.T) {
	l := NewLight(LightTypePoint, WithPosition(1, 2, 3), WithColor(0.5, 0.25, 1))
	if l.Type != LightTypePoint {
		t.Errorf("Type = %v, want Point", l.Type)
	}
	if l.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("Position = %v", l.Position)
	}
	if l.Radius != DefaultPointRadius {
		t.Errorf("Radius = %v, want %v", l.Radius, DefaultPointRadius)
	}
	d := NewLight(LightTypeSpot, WithDirection(0, 0, -4))
	if !d.Direction.ApproxEqual(mgl32.Vec3{0, 0, -1}) {
		t.Errorf("Direction = %v, want normalized", d.Direction)
	}
}

func TestBufferSnapshotCopiesThenClears(t *testing.T) {
	b := NewBuffer(0)
	for i := 0; i < 3; i++ {
		if err := b.Add(NewLight(LightTypePoint, WithPosition(float32(i), 0, 0))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	var snap Snapshot
	b.SnapshotInto(&snap)
	if snap.Len() != 3 {
		t.Fatalf("snapshot Len = %d, want 3", snap.Len())
	}
	if b.Len() != 0 {
		t.Fatalf("buffer Len after snapshot = %d, want 0", b.Len())
	}

	// lights added after the snapshot belong to the next frame
	_ = b.Add(NewLight(LightTypePoint, WithPosition(99, 0, 0)))
	if snap.Len() != 3 {
		t.Fatalf("snapshot changed after Add: Len = %d", snap.Len())
	}
	for i, l := range snap.Lights() {
		if l.Position[0] != float32(i) {
			t.Errorf("light %d position = %v", i, l.Position)
		}
	}

	var next Snapshot
	b.SnapshotInto(&next)
	if next.Len() != 1 || next.Lights()[0].Position[0] != 99 {
		t.Fatalf("next snapshot = %+v", next.Lights())
	}
}

func TestBufferCapacity(t *testing.T) {
	b := NewBuffer(2)
	_ = b.Add(Light{})
	_ = b.Add(Light{})
	if err := b.Add(Light{}); !errors.Is(err, ErrLightBufferFull) {
		t.Fatalf("Add over capacity = %v, want ErrLightBufferFull", err)
	}
}

func TestBufferConcurrentSnapshotIsolation(t *testing.T) {
	b := NewBuffer(MaxLights)
	var wg sync.WaitGroup
	total := 0
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = b.Add(NewLight(LightTypePoint))
		}
	}()
	for i := 0; i < 50; i++ {
		var s Snapshot
		b.SnapshotInto(&s)
		mu.Lock()
		total += s.Len()
		mu.Unlock()
	}
	wg.Wait()

	var last Snapshot
	b.SnapshotInto(&last)
	total += last.Len()
	if total != 200 {
		t.Fatalf("lights seen across snapshots = %d, want 200", total)
	}
}

func TestEnvironmentSetters(t *testing.T) {
	e := DefaultEnvironment()

	e.SetSunDirection(mgl32.Vec3{0, -10, 0})
	if !e.SunDirection.ApproxEqual(mgl32.Vec3{0, -1, 0}) {
		t.Errorf("SunDirection = %v", e.SunDirection)
	}

	e.SetSunColor(mgl32.Vec3{-1, 0.5, 3})
	if e.SunColor != (mgl32.Vec3{0, 0.5, 1}) {
		t.Errorf("SunColor = %v, want clamped to [0,1]", e.SunColor)
	}

	e.SetAmbient(mgl32.Vec3{-0.5, 0.2, 2})
	if e.Ambient != (mgl32.Vec3{-0.5, 0.2, 1}) {
		t.Errorf("Ambient = %v, want upper bound 1 only", e.Ambient)
	}
}

func TestPointLightConstantsMarshal(t *testing.T) {
	c := NewPointLightConstants(NewLight(LightTypePoint,
		WithPosition(1, 2, 3), WithColor(0.1, 0.2, 0.3), WithRadius(40)))

	if c.Size() != 48 {
		t.Fatalf("Size = %d, want 48", c.Size())
	}
	buf := c.Marshal()
	if len(buf) != 48 {
		t.Fatalf("len = %d, want 48", len(buf))
	}
	f := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])) }

	want := []float32{1, 2, 3, 1, 0.1, 0.2, 0.3, 1, 40}
	for i, w := range want {
		if f(i) != w {
			t.Errorf("float %d = %v, want %v", i, f(i), w)
		}
	}

	unset := NewPointLightConstants(Light{Type: LightTypePoint})
	if unset.Radius != DefaultPointRadius {
		t.Errorf("Radius = %v, want %v for an unset radius", unset.Radius, DefaultPointRadius)
	}
}
