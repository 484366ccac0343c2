package light

import (
	"errors"
	"sync"
)

// MaxLights is the capacity of the shared light buffer and of every Snapshot.
const MaxLights = 256

// ErrLightBufferFull is returned by Add once MaxLights lights are pending.
var ErrLightBufferFull = errors.New("light buffer full")

// Snapshot is a fixed-capacity copy of the lights submitted for one frame.
// It is taken once per frame and only read afterwards.
type Snapshot struct {
	lights [MaxLights]Light
	count  int
}

// Len returns the number of lights in the snapshot.
func (s *Snapshot) Len() int {
	return s.count
}

// Lights returns the captured lights. The slice aliases the snapshot.
func (s *Snapshot) Lights() []Light {
	return s.lights[:s.count]
}

// Buffer accumulates lights submitted by the producer between frames.
type Buffer struct {
	mu       *sync.Mutex
	lights   [MaxLights]Light
	count    int
	capacity int
}

// NewBuffer creates an empty light buffer holding at most capacity lights.
// A capacity outside (0, MaxLights] selects MaxLights.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 || capacity > MaxLights {
		capacity = MaxLights
	}
	return &Buffer{mu: &sync.Mutex{}, capacity: capacity}
}

// Add appends a light for the next frame.
//
// Parameters:
//   - l: the light to copy into the buffer
//
// Returns:
//   - error: ErrLightBufferFull when the buffer is at capacity
func (b *Buffer) Add(l Light) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count >= b.capacity {
		return ErrLightBufferFull
	}
	b.lights[b.count] = l
	b.count++
	return nil
}

// Len returns the number of pending lights.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// SnapshotInto copies every pending light into dst and clears the buffer in one critical
// section. Lights added after the call land in the next snapshot.
//
// Parameters:
//   - dst: the snapshot to overwrite
func (b *Buffer) SnapshotInto(dst *Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dst.count = copy(dst.lights[:], b.lights[:b.count])
	b.count = 0
}
