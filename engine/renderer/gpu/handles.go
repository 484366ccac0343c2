package gpu

import (
	"errors"
	"fmt"
)

// ErrNullHandle marks a required handle that was not provided.
var ErrNullHandle = errors.New("null handle")

// ErrAttachmentSize marks a G-buffer whose attachments disagree on size.
var ErrAttachmentSize = errors.New("attachment size mismatch")

// FatalError is raised with panic for unrecoverable device or programming errors:
// a null resource at initialization or during a pass, or an exhausted constant slot.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal panics with a *FatalError.
//
// Parameters:
//   - op: the operation that failed
//   - err: the cause
func Fatal(op string, err error) {
	panic(&FatalError{Op: op, Err: err})
}

// Target is one G-buffer render target: the view it is written through and the view it is read through.
type Target struct {
	RTV RenderTargetView
	SRV ShaderResourceView
}

// Attachments is the G-buffer: albedo, encoded normal and linear depth targets plus the
// depth-stencil surface rasterization tests against. All four share Width and Height.
type Attachments struct {
	Albedo Target
	Normal Target
	Depth  Target

	DepthStencil    DepthStencilView
	DepthStencilSRV ShaderResourceView

	Width  int
	Height int
}

// RenderTargets returns the three color targets in binding order.
func (a Attachments) RenderTargets() []RenderTargetView {
	return []RenderTargetView{a.Albedo.RTV, a.Normal.RTV, a.Depth.RTV}
}

// ShaderViews returns the three color targets' shader views in binding order.
func (a Attachments) ShaderViews() []ShaderResourceView {
	return []ShaderResourceView{a.Albedo.SRV, a.Normal.SRV, a.Depth.SRV}
}

// Validate checks that every attachment is present and that the set has a positive size.
//
// Returns:
//   - error: wraps ErrNullHandle or ErrAttachmentSize
func (a Attachments) Validate() error {
	checks := []struct {
		name string
		null bool
	}{
		{"albedo target", IsNull(a.Albedo.RTV)},
		{"albedo view", IsNull(a.Albedo.SRV)},
		{"normal target", IsNull(a.Normal.RTV)},
		{"normal view", IsNull(a.Normal.SRV)},
		{"depth target", IsNull(a.Depth.RTV)},
		{"depth view", IsNull(a.Depth.SRV)},
		{"depth-stencil view", IsNull(a.DepthStencil)},
	}
	for _, c := range checks {
		if c.null {
			return fmt.Errorf("g-buffer %s: %w", c.name, ErrNullHandle)
		}
	}
	if a.Width <= 0 || a.Height <= 0 {
		return fmt.Errorf("g-buffer size %dx%d: %w", a.Width, a.Height, ErrAttachmentSize)
	}
	return nil
}

// States holds the fixed pipeline state objects used by the two passes.
type States struct {
	Rasterizer    RasterizerState
	GBufferBlend  BlendState
	GBufferDepth  DepthStencilState
	LightingBlend BlendState
	LightingDepth DepthStencilState
	Sampler       SamplerState
}

// ConstantBuffers holds the three constant buffers: per frame, per object and per light.
type ConstantBuffers struct {
	Frame  Buffer
	Object Buffer
	Light  Buffer
}

// DeviceHandles is everything the renderer consumes from the device layer. One renderer owns
// one DeviceHandles; the device that created them releases them.
type DeviceHandles struct {
	Context   Context
	SwapChain SwapChain

	BackBuffer       RenderTargetView
	BackDepthStencil DepthStencilView
	BackWidth        int
	BackHeight       int

	GBuffer   Attachments
	States    States
	Constants ConstantBuffers

	// QuadVB and QuadIB hold the full-screen quad used by the lighting pass.
	QuadVB Buffer
	QuadIB Buffer
}

// Validate checks every required handle.
//
// Returns:
//   - error: the first missing handle or size mismatch, wrapping ErrNullHandle or ErrAttachmentSize
func (h DeviceHandles) Validate() error {
	if h.Context == nil {
		return fmt.Errorf("device context: %w", ErrNullHandle)
	}
	if h.SwapChain == nil {
		return fmt.Errorf("swap chain: %w", ErrNullHandle)
	}
	if IsNull(h.BackBuffer) {
		return fmt.Errorf("back buffer: %w", ErrNullHandle)
	}
	if IsNull(h.BackDepthStencil) {
		return fmt.Errorf("back depth-stencil: %w", ErrNullHandle)
	}
	if err := h.GBuffer.Validate(); err != nil {
		return err
	}
	if h.BackWidth != h.GBuffer.Width || h.BackHeight != h.GBuffer.Height {
		return fmt.Errorf("back buffer %dx%d vs g-buffer %dx%d: %w",
			h.BackWidth, h.BackHeight, h.GBuffer.Width, h.GBuffer.Height, ErrAttachmentSize)
	}

	states := []struct {
		name string
		null bool
	}{
		{"rasterizer state", IsNull(h.States.Rasterizer)},
		{"g-buffer blend state", IsNull(h.States.GBufferBlend)},
		{"g-buffer depth state", IsNull(h.States.GBufferDepth)},
		{"lighting blend state", IsNull(h.States.LightingBlend)},
		{"lighting depth state", IsNull(h.States.LightingDepth)},
		{"sampler", IsNull(h.States.Sampler)},
		{"frame constants", IsNull(h.Constants.Frame)},
		{"object constants", IsNull(h.Constants.Object)},
		{"light constants", IsNull(h.Constants.Light)},
		{"quad vertex buffer", IsNull(h.QuadVB)},
		{"quad index buffer", IsNull(h.QuadIB)},
	}
	for _, s := range states {
		if s.null {
			return fmt.Errorf("%s: %w", s.name, ErrNullHandle)
		}
	}
	return nil
}

// MustValidate panics with a *FatalError if Validate fails.
func (h DeviceHandles) MustValidate() {
	if err := h.Validate(); err != nil {
		Fatal("validate device handles", err)
	}
}
