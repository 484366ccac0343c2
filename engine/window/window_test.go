package window

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestDragTracker(t *testing.T) {
	var d dragTracker

	if _, _, ok := d.move(10, 10); ok {
		t.Fatal("move without press must not report a drag")
	}

	d.press(10, 20)
	dx, dy, ok := d.move(15, 18)
	if !ok || dx != 5 || dy != -2 {
		t.Fatalf("move = (%v, %v, %v), want (5, -2, true)", dx, dy, ok)
	}
	dx, dy, _ = d.move(15, 28)
	if dx != 0 || dy != 10 {
		t.Errorf("second move = (%v, %v), want deltas from the previous position", dx, dy)
	}

	d.release()
	if _, _, ok := d.move(0, 0); ok {
		t.Error("move after release must not report a drag")
	}
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  glfw.Key
		want Key
	}{
		{glfw.KeyLeft, KeyLeft},
		{glfw.KeyA, KeyLeft},
		{glfw.KeyD, KeyRight},
		{glfw.KeyW, KeyUp},
		{glfw.KeyDown, KeyDown},
		{glfw.KeyEqual, KeyZoomIn},
		{glfw.KeyKPSubtract, KeyZoomOut},
		{glfw.KeySpace, KeySpace},
		{glfw.KeyQ, KeyUnknown},
	}
	for _, tt := range tests {
		if got := translateKey(tt.key); got != tt.want {
			t.Errorf("translateKey(%v) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{width: 1024, height: 768}
	for _, opt := range []WindowBuilderOption{
		WithTitle("demo"),
		WithSize(640, 0),
		WithSizeLimits(100, 100, 800, 600),
	} {
		opt(w)
	}
	if w.title != "demo" || w.width != 640 || w.height != 768 {
		t.Errorf("window = %q %dx%d", w.title, w.width, w.height)
	}
	if w.minWidth != 100 || w.maxHeight != 600 {
		t.Errorf("limits = %d..%d", w.minWidth, w.maxHeight)
	}
}
