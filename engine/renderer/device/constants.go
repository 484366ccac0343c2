package device

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/helix/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrConstantOverflow is the cause of the fatal error raised when one frame writes more
// constant blocks than a ring holds.
var ErrConstantOverflow = errors.New("constant ring exhausted")

// ErrConstantSize is the cause of the fatal error raised when a write exceeds the block size.
var ErrConstantSize = errors.New("constant block too large")

// constantAlignment is the dynamic offset alignment WebGPU guarantees to support.
const constantAlignment = 256

// constantRing is a uniform buffer split into equally sized blocks. Every WriteConstants
// takes the next block so draws recorded into one command buffer each see their own data.
// The ring rewinds once the frame is submitted.
type constantRing struct {
	label     string
	buffer    *wgpu.Buffer
	blockSize uint64
	stride    uint64
	capacity  int

	next    int
	current uint64
}

func newConstantRing(label string, blockSize, capacity int) *constantRing {
	return &constantRing{
		label:     label,
		blockSize: uint64(blockSize),
		stride:    uint64(common.Align(blockSize, constantAlignment)),
		capacity:  capacity,
	}
}

// size returns the byte size of the backing buffer.
func (r *constantRing) size() uint64 {
	return r.stride * uint64(r.capacity)
}

// reserve takes the next block for n bytes and makes it current.
//
// Returns:
//   - uint64: the byte offset of the block
//   - error: wraps ErrConstantSize or ErrConstantOverflow
func (r *constantRing) reserve(n int) (uint64, error) {
	if uint64(n) > r.blockSize {
		return 0, fmt.Errorf("%s: %d bytes, block holds %d: %w", r.label, n, r.blockSize, ErrConstantSize)
	}
	if r.next >= r.capacity {
		return 0, fmt.Errorf("%s: %d blocks: %w", r.label, r.capacity, ErrConstantOverflow)
	}
	off := uint64(r.next) * r.stride
	r.next++
	r.current = off
	return off, nil
}

// rewind makes every block available again. The current offset is kept so a slot bound
// before the rewind still reads the last data written to it.
func (r *constantRing) rewind() {
	r.next = 0
}

// used returns how many blocks the current frame has taken.
func (r *constantRing) used() int {
	return r.next
}
