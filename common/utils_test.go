package common

import "testing"

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 3, 4); got != 3 {
		t.Errorf("Coalesce ints = %d, want 3", got)
	}
	if got := Coalesce("", "fallback"); got != "fallback" {
		t.Errorf("Coalesce strings = %q, want %q", got, "fallback")
	}
	if got := Coalesce[float32](); got != 0 {
		t.Errorf("Coalesce empty = %v, want 0", got)
	}
}

func TestSliceToBytes(t *testing.T) {
	if got := SliceToBytes([]uint16{}); got != nil {
		t.Errorf("SliceToBytes(empty) = %v, want nil", got)
	}
	b := SliceToBytes([]uint16{1, 2, 0, 3})
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
}
