package device

import (
	"testing"

	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestParsePresentMode(t *testing.T) {
	tests := []struct {
		in      string
		want    PresentMode
		wantErr bool
	}{
		{"vsync", PresentModeVSync, false},
		{"", PresentModeVSync, false},
		{" Uncapped ", PresentModeUncapped, false},
		{"immediate", PresentModeUncapped, false},
		{"mailbox", PresentModeVSync, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePresentMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("mode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPresentModeMapping(t *testing.T) {
	if PresentModeVSync.wgpuPresentMode() != wgpu.PresentModeFifo {
		t.Error("vsync must map to fifo")
	}
	if PresentModeUncapped.wgpuPresentMode() != wgpu.PresentModeImmediate {
		t.Error("uncapped must map to immediate")
	}
	if PresentModeVSync.String() != "vsync" || PresentMode(9).String() != "unknown" {
		t.Error("String")
	}
}

func TestDefaultConstantSlots(t *testing.T) {
	slots := defaultConstantSlots(gpu.ConstantBuffers{Frame: 1, Object: 2, Light: 3})
	for i, want := range []gpu.Buffer{1, 2, 3} {
		if got := slots[constantBindings[i]]; got != want {
			t.Errorf("binding %d: slot %d holds %d, want %d", i, constantBindings[i], got, want)
		}
	}
	if slots[2] != 0 {
		t.Error("slot 2 is not a constant binding and must stay empty")
	}
}

func TestBuilderOptions(t *testing.T) {
	d := &WGPUDevice{objectCapacity: DefaultObjectCapacity, lightCapacity: DefaultLightCapacity}
	for _, opt := range []DeviceBuilderOption{
		WithPresentMode(PresentModeUncapped),
		WithFallbackAdapter(true),
		WithObjectCapacity(0),
		WithLightCapacity(64),
		WithMaxTextureSize(512),
	} {
		opt(d)
	}
	if d.presentMode != PresentModeUncapped || !d.forceFallback {
		t.Errorf("mode %v fallback %v", d.presentMode, d.forceFallback)
	}
	if d.objectCapacity != DefaultObjectCapacity {
		t.Errorf("objectCapacity = %d, zero must keep the default", d.objectCapacity)
	}
	if d.lightCapacity != 64 || d.maxTextureSize != 512 {
		t.Errorf("lightCapacity %d maxTextureSize %d", d.lightCapacity, d.maxTextureSize)
	}
}

func TestFrameStateReset(t *testing.T) {
	var f frameState
	f.reset()
	f.clearColor[1] = gpu.Color{R: 1}
	f.clearDepth[2] = 1
	f.reset()
	if len(f.clearColor) != 0 || len(f.clearDepth) != 0 {
		t.Error("reset must drop pending clears")
	}
	f.abandon()
}
