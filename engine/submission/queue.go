// Package submission implements the double-buffered draw submission queue shared by the
// producer goroutine and the render goroutine.
//
// The producer appends draws and matrices to the active slot under the queue guard. Once per
// frame it seals the active slot and advances; the sealed slot becomes the in-flight slot the
// render goroutine reads and drains without taking the guard. The active and in-flight slots
// are never the same slot.
package submission

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/helix/engine/assets"
	"github.com/Carmen-Shannon/helix/engine/frame"
	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/Carmen-Shannon/helix/engine/signal"
	"github.com/go-gl/mathgl/mgl32"
)

// NumSlots is the number of submission slots.
const NumSlots = 2

// ErrUnknownMesh is returned when a submitted mesh name does not resolve.
var ErrUnknownMesh = errors.New("unknown mesh")

// ErrUnknownMaterial is returned when a mesh names a material that does not resolve.
var ErrUnknownMaterial = errors.New("unknown material")

// ErrClosed is returned by SubmitInstance once the queue has been closed.
var ErrClosed = errors.New("submission queue closed")

// DrawRequest is one object to draw in a frame.
type DrawRequest struct {
	World    mgl32.Mat4
	Mesh     *assets.Mesh
	Material *assets.Material
}

// Slot is one frame's worth of submissions.
type Slot struct {
	index int
	draws []DrawRequest
	view  mgl32.Mat4
	proj  mgl32.Mat4

	// Frame and Lights are filled when the slot is sealed.
	Frame  frame.Context
	Lights light.Snapshot
}

// Index returns the slot's position in the queue.
func (s *Slot) Index() int {
	return s.index
}

// Draws returns the slot's draw requests in submission order. The slice aliases the slot.
func (s *Slot) Draws() []DrawRequest {
	return s.draws
}

// View returns the view matrix submitted for this slot.
func (s *Slot) View() mgl32.Mat4 {
	return s.view
}

// Proj returns the projection matrix submitted for this slot.
func (s *Slot) Proj() mgl32.Mat4 {
	return s.proj
}

// Stats are cumulative queue counters.
type Stats struct {
	Submitted uint64 // draws appended
	Rejected  uint64 // submissions refused with ErrUnknownMesh or ErrUnknownMaterial
	Released  uint64 // draws released by Drain and DrainAll
	Frames    uint64 // calls to Advance
}

// Queue is the double-buffered submission queue.
type Queue struct {
	guard *signal.Guard

	slots    [NumSlots]Slot
	active   int
	inFlight int
	closed   bool

	camera  frame.CameraParams
	scalars frame.Scalars

	meshes    assets.MeshResolver
	materials assets.MaterialResolver

	submitted atomic.Uint64
	rejected  atomic.Uint64
	released  atomic.Uint64
	frames    atomic.Uint64
}

// NewQueue creates a queue resolving meshes and their materials through the given resolvers.
// Slot 0 starts active; matrices start as identity.
//
// Parameters:
//   - meshes: resolves mesh names at submission
//   - materials: resolves the material named by each mesh
//   - camera: the camera constants used to recompute frame scalars
//
// Returns:
//   - *Queue: the new queue
func NewQueue(meshes assets.MeshResolver, materials assets.MaterialResolver, camera frame.CameraParams) *Queue {
	q := &Queue{
		guard:     signal.NewGuard(),
		camera:    camera,
		scalars:   frame.ComputeScalars(camera),
		meshes:    meshes,
		materials: materials,
		inFlight:  -1,
	}
	for i := range q.slots {
		q.slots[i].index = i
		q.slots[i].view = mgl32.Ident4()
		q.slots[i].proj = mgl32.Ident4()
	}
	return q
}

// SubmitInstance resolves meshName and its material and appends a draw to the active slot.
// On failure nothing is appended.
//
// Parameters:
//   - world: the instance's world matrix
//   - meshName: the mesh to draw
//
// Returns:
//   - error: wraps ErrUnknownMesh or ErrUnknownMaterial; ErrClosed after Close
func (q *Queue) SubmitInstance(world mgl32.Mat4, meshName string) error {
	err := q.guard.DoErr(func() error {
		if q.closed {
			return ErrClosed
		}
		mesh, err := q.meshes.ResolveMesh(meshName)
		if err != nil || mesh == nil {
			return fmt.Errorf("%w %q: %v", ErrUnknownMesh, meshName, err)
		}
		mat, err := q.materials.ResolveMaterial(mesh.MaterialName)
		if err != nil || mat == nil {
			return fmt.Errorf("%w %q for mesh %q: %v", ErrUnknownMaterial, mesh.MaterialName, meshName, err)
		}
		slot := &q.slots[q.active]
		slot.draws = append(slot.draws, DrawRequest{World: world, Mesh: mesh, Material: mat})
		return nil
	})
	if errors.Is(err, ErrClosed) {
		return err
	}
	if err != nil {
		q.rejected.Add(1)
		return err
	}
	q.submitted.Add(1)
	return nil
}

// SubmitViewMatrix stores the view matrix for the active slot and recomputes the camera scalars.
func (q *Queue) SubmitViewMatrix(m mgl32.Mat4) {
	q.guard.Do(func() {
		q.slots[q.active].view = m
		q.scalars = frame.ComputeScalars(q.camera)
	})
}

// SubmitProjMatrix stores the projection matrix for the active slot and recomputes the camera scalars.
func (q *Queue) SubmitProjMatrix(m mgl32.Mat4) {
	q.guard.Do(func() {
		q.slots[q.active].proj = m
		q.scalars = frame.ComputeScalars(q.camera)
	})
}

// SetCamera replaces the camera constants used for scalar recomputation.
func (q *Queue) SetCamera(p frame.CameraParams) {
	q.guard.Do(func() {
		q.camera = p
		q.scalars = frame.ComputeScalars(p)
	})
}

// Camera returns the current camera constants.
func (q *Queue) Camera() frame.CameraParams {
	var p frame.CameraParams
	q.guard.Do(func() { p = q.camera })
	return p
}

// Scalars returns the most recently computed camera scalars.
func (q *Queue) Scalars() frame.Scalars {
	var s frame.Scalars
	q.guard.Do(func() { s = q.scalars })
	return s
}

// Advance seals the active slot and makes it the in-flight slot, then activates the next slot.
// seal runs under the guard with the slot being sealed and the current camera scalars; it fills
// the slot's frame context and light snapshot. The next active slot keeps the sealed slot's
// matrices so a producer that submits them only on change still renders with them.
//
// Only the producer calls Advance, once per rendered frame, and only while the render
// goroutine is idle.
//
// Parameters:
//   - seal: fills the sealed slot; may be nil
//
// Returns:
//   - int: the in-flight slot index
func (q *Queue) Advance(seal func(s *Slot, scalars frame.Scalars)) int {
	var sealed int
	q.guard.Do(func() {
		sealed = q.active
		slot := &q.slots[sealed]
		if seal != nil {
			seal(slot, q.scalars)
		}
		q.inFlight = sealed
		q.active = (sealed + 1) % NumSlots

		next := &q.slots[q.active]
		next.view = slot.view
		next.proj = slot.proj
	})
	q.frames.Add(1)
	return sealed
}

// Active returns the active slot index.
func (q *Queue) Active() int {
	var i int
	q.guard.Do(func() { i = q.active })
	return i
}

// InFlightIndex returns the in-flight slot index, or -1 before the first Advance.
func (q *Queue) InFlightIndex() int {
	var i int
	q.guard.Do(func() { i = q.inFlight })
	return i
}

// InFlight returns the in-flight slot, or nil before the first Advance.
func (q *Queue) InFlight() *Slot {
	i := q.InFlightIndex()
	if i < 0 {
		return nil
	}
	return &q.slots[i]
}

// RenderSlot returns the in-flight slot without taking the guard, or nil before the first
// Advance. Only the render goroutine calls it, after receiving the start signal sent once
// Advance returned; that handoff orders the read after Advance's write.
func (q *Queue) RenderSlot() *Slot {
	if q.inFlight < 0 {
		return nil
	}
	return &q.slots[q.inFlight]
}

// Slot returns slot i. The caller must own the slot: the producer owns the active slot,
// the render goroutine owns the in-flight slot between the start signal and its drain.
func (q *Queue) Slot(i int) *Slot {
	return &q.slots[i]
}

// Pending returns the number of draws in the active slot.
func (q *Queue) Pending() int {
	var n int
	q.guard.Do(func() { n = len(q.slots[q.active].draws) })
	return n
}

// Drain releases every draw in slot i and returns how many were released. The slot keeps its
// backing storage for reuse. Draining an empty slot is a no-op.
//
// Parameters:
//   - i: the slot index
//
// Returns:
//   - int: the number of draws released
func (q *Queue) Drain(i int) int {
	slot := &q.slots[i]
	n := len(slot.draws)
	clear(slot.draws)
	slot.draws = slot.draws[:0]
	q.released.Add(uint64(n))
	return n
}

// DrainAll releases the draws of every slot under the guard. Used at shutdown once the
// render goroutine has stopped.
//
// Returns:
//   - int: the number of draws released
func (q *Queue) DrainAll() int {
	total := 0
	q.guard.Do(func() {
		for i := range q.slots {
			total += q.Drain(i)
		}
	})
	return total
}

// Close refuses further submissions and releases the draws of every slot, both under the
// guard, so no draw can be appended after the final drain. Used at shutdown once the render
// goroutine has stopped. Closing again releases nothing.
//
// Returns:
//   - int: the number of draws released
func (q *Queue) Close() int {
	total := 0
	q.guard.Do(func() {
		q.closed = true
		for i := range q.slots {
			total += q.Drain(i)
		}
	})
	return total
}

// Stats returns the cumulative counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Submitted: q.submitted.Load(),
		Rejected:  q.rejected.Load(),
		Released:  q.released.Load(),
		Frames:    q.frames.Load(),
	}
}
