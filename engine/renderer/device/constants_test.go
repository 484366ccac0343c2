package device

import (
	"errors"
	"testing"
)

func TestConstantRingStride(t *testing.T) {
	tests := []struct {
		block      int
		wantStride uint64
	}{
		{48, 256},
		{192, 256},
		{464, 512},
		{256, 256},
	}
	for _, tt := range tests {
		r := newConstantRing("ring", tt.block, 4)
		if r.stride != tt.wantStride {
			t.Errorf("block %d: stride = %d, want %d", tt.block, r.stride, tt.wantStride)
		}
		if r.size() != tt.wantStride*4 {
			t.Errorf("block %d: size = %d", tt.block, r.size())
		}
	}
}

func TestConstantRingReserve(t *testing.T) {
	r := newConstantRing("object", 192, 3)
	for i := range 3 {
		off, err := r.reserve(192)
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		if want := uint64(i) * 256; off != want || r.current != want {
			t.Errorf("reserve %d: offset %d, current %d, want %d", i, off, r.current, want)
		}
	}
	if _, err := r.reserve(192); !errors.Is(err, ErrConstantOverflow) {
		t.Errorf("overflow err = %v", err)
	}
	if r.used() != 3 {
		t.Errorf("used = %d", r.used())
	}

	r.rewind()
	if r.used() != 0 || r.current != 512 {
		t.Errorf("after rewind: used %d, current %d", r.used(), r.current)
	}
	if off, err := r.reserve(10); err != nil || off != 0 {
		t.Errorf("reserve after rewind = %d, %v", off, err)
	}
}

func TestConstantRingBlockSize(t *testing.T) {
	r := newConstantRing("light", 48, 8)
	if _, err := r.reserve(64); !errors.Is(err, ErrConstantSize) {
		t.Errorf("err = %v, want ErrConstantSize", err)
	}
	if r.used() != 0 {
		t.Error("a rejected write must not take a block")
	}
}
