package gpu_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
	"github.com/Carmen-Shannon/helix/engine/renderer/gpu/gputest"
)

func TestDeviceHandlesValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(h *gpu.DeviceHandles)
		wantErr error
	}{
		{"complete", func(h *gpu.DeviceHandles) {}, nil},
		{"no context", func(h *gpu.DeviceHandles) { h.Context = nil }, gpu.ErrNullHandle},
		{"no swap chain", func(h *gpu.DeviceHandles) { h.SwapChain = nil }, gpu.ErrNullHandle},
		{"no back buffer", func(h *gpu.DeviceHandles) { h.BackBuffer = 0 }, gpu.ErrNullHandle},
		{"no normal target", func(h *gpu.DeviceHandles) { h.GBuffer.Normal.RTV = 0 }, gpu.ErrNullHandle},
		{"no depth view", func(h *gpu.DeviceHandles) { h.GBuffer.Depth.SRV = 0 }, gpu.ErrNullHandle},
		{"no g-buffer depth-stencil", func(h *gpu.DeviceHandles) { h.GBuffer.DepthStencil = 0 }, gpu.ErrNullHandle},
		{"no sampler", func(h *gpu.DeviceHandles) { h.States.Sampler = 0 }, gpu.ErrNullHandle},
		{"no light constants", func(h *gpu.DeviceHandles) { h.Constants.Light = 0 }, gpu.ErrNullHandle},
		{"no quad", func(h *gpu.DeviceHandles) { h.QuadIB = 0 }, gpu.ErrNullHandle},
		{"zero size", func(h *gpu.DeviceHandles) {
			h.GBuffer.Width, h.BackWidth = 0, 0
		}, gpu.ErrAttachmentSize},
		{"size mismatch", func(h *gpu.DeviceHandles) { h.GBuffer.Height = 10 }, gpu.ErrAttachmentSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := gputest.NewHandles(gputest.NewRecorder(), 64, 32)
			tt.mutate(&h)
			err := h.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMustValidatePanicsWithFatalError(t *testing.T) {
	h := gputest.NewHandles(gputest.NewRecorder(), 64, 32)
	h.States.Rasterizer = 0

	defer func() {
		r := recover()
		fe, ok := r.(*gpu.FatalError)
		if !ok {
			t.Fatalf("recovered %T, want *gpu.FatalError", r)
		}
		if !errors.Is(fe, gpu.ErrNullHandle) {
			t.Errorf("FatalError does not wrap ErrNullHandle: %v", fe)
		}
	}()
	h.MustValidate()
}

func TestIsNull(t *testing.T) {
	if !gpu.IsNull(gpu.Buffer(0)) {
		t.Error("zero buffer should be null")
	}
	if gpu.IsNull(gpu.PixelShader(3)) {
		t.Error("non-zero shader should not be null")
	}
}

func TestAttachmentOrder(t *testing.T) {
	a := gputest.NewHandles(gputest.NewRecorder(), 8, 8).GBuffer
	rtvs := a.RenderTargets()
	if rtvs[0] != gputest.AlbedoRTV || rtvs[1] != gputest.NormalRTV || rtvs[2] != gputest.DepthRTV {
		t.Errorf("RenderTargets() = %v", rtvs)
	}
	srvs := a.ShaderViews()
	if srvs[0] != gputest.AlbedoSRV || srvs[1] != gputest.NormalSRV || srvs[2] != gputest.DepthSRV {
		t.Errorf("ShaderViews() = %v", srvs)
	}
}
