// Package deferred implements the two passes of the deferred renderer: the geometry pass that
// fills the G-buffer and the lighting pass that accumulates one full-screen draw per point light
// into the presentable target.
//
// Both passes only issue commands through gpu.Context. They run on the render goroutine and
// must not be shared between goroutines.
package deferred

import (
	"fmt"

	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
)

// GBufferInputSlots is the number of pixel stage resource slots the G-buffer occupies when
// it is read by the lighting pass: albedo, normal and depth.
const GBufferInputSlots = 3

// nullViews unbinds the G-buffer input slots.
var nullViews [GBufferInputSlots]gpu.ShaderResourceView

// Clear colors for each attachment.
var (
	AlbedoClearColor = gpu.Color{R: 0, G: 0.125, B: 0.3, A: 1}
	NormalClearColor = gpu.Color{}
	DepthClearColor  = gpu.Color{}
	BackClearColor   = gpu.Color{R: 0, G: 0, B: 0, A: 1}
)

// ClearDepthValue is the depth the depth-stencil surfaces are cleared to.
const ClearDepthValue float32 = 1.0

// PassStats reports what a pass issued in one frame.
type PassStats struct {
	Draws   int    // draw calls issued
	Indices uint64 // indices drawn
	Skipped int    // records accepted but not drawn (non-point lights)
}

// Add accumulates o into s.
func (s *PassStats) Add(o PassStats) {
	s.Draws += o.Draws
	s.Indices += o.Indices
	s.Skipped += o.Skipped
}

func requireSlot(op string, slot int) {
	if slot < 0 || slot >= gpu.MaxConstantSlots {
		gpu.Fatal(op, fmt.Errorf("constant slot %d out of range [0, %d)", slot, gpu.MaxConstantSlots))
	}
}

func requireHandle[H ~uint64](op, what string, h H) {
	if gpu.IsNull(h) {
		gpu.Fatal(op, fmt.Errorf("%s: %w", what, gpu.ErrNullHandle))
	}
}
