// Package gputest provides a recording implementation of the gpu contracts for tests.
package gputest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
)

// Call is one recorded device call.
type Call struct {
	Op   string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Op, c.Args)
}

// Recorder implements gpu.Context and gpu.SwapChain by recording every call.
// It is safe for concurrent use so tests can inspect it while a render goroutine runs.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// constants holds the last bytes written to each constant buffer, writes every write in order.
	constants map[gpu.Buffer][]byte
	writes    map[gpu.Buffer][][]byte

	presents int

	// PresentHook, when set, runs inside Present before it returns. Tests use it to hold
	// the render goroutine mid-frame.
	PresentHook func()

	// PresentErr is returned from Present.
	PresentErr error
}

var _ gpu.Context = (*Recorder)(nil)
var _ gpu.SwapChain = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{constants: make(map[gpu.Buffer][]byte), writes: make(map[gpu.Buffer][][]byte)}
}

func (r *Recorder) record(op string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Op: op, Args: args})
	r.mu.Unlock()
}

// Calls returns a copy of every recorded call in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many times op was recorded.
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Filter returns the recorded calls named op, in order.
func (r *Recorder) Filter(op string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Constants returns the last bytes written to buf.
func (r *Recorder) Constants(buf gpu.Buffer) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.constants[buf]
}

// ConstantWrites returns every payload written to buf, oldest first.
func (r *Recorder) ConstantWrites(buf gpu.Buffer) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.writes[buf]...)
}

// Presents returns the number of Present calls.
func (r *Recorder) Presents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presents
}

// Reset clears recorded calls. Present counts and constants are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Recorder) ClearRenderTarget(rtv gpu.RenderTargetView, c gpu.Color) {
	r.record("ClearRenderTarget", rtv, c)
}

func (r *Recorder) ClearDepth(dsv gpu.DepthStencilView, depth float32) {
	r.record("ClearDepth", dsv, depth)
}

func (r *Recorder) SetRenderTargets(rtvs []gpu.RenderTargetView, dsv gpu.DepthStencilView) {
	cp := append([]gpu.RenderTargetView(nil), rtvs...)
	r.record("SetRenderTargets", cp, dsv)
}

func (r *Recorder) SetDepthStencilState(s gpu.DepthStencilState) {
	r.record("SetDepthStencilState", s)
}

func (r *Recorder) SetBlendState(s gpu.BlendState) {
	r.record("SetBlendState", s)
}

func (r *Recorder) SetRasterizerState(s gpu.RasterizerState) {
	r.record("SetRasterizerState", s)
}

func (r *Recorder) SetPSResources(start int, views []gpu.ShaderResourceView) {
	cp := append([]gpu.ShaderResourceView(nil), views...)
	r.record("SetPSResources", start, cp)
}

func (r *Recorder) SetPSSamplers(start int, samplers []gpu.SamplerState) {
	cp := append([]gpu.SamplerState(nil), samplers...)
	r.record("SetPSSamplers", start, cp)
}

func (r *Recorder) WriteConstants(buf gpu.Buffer, data []byte) {
	cp := append([]byte(nil), data...)
	r.mu.Lock()
	r.constants[buf] = cp
	r.writes[buf] = append(r.writes[buf], cp)
	r.mu.Unlock()
	r.record("WriteConstants", buf, len(cp))
}

func (r *Recorder) SetVSConstants(slot int, buf gpu.Buffer) {
	r.record("SetVSConstants", slot, buf)
}

func (r *Recorder) SetPSConstants(slot int, buf gpu.Buffer) {
	r.record("SetPSConstants", slot, buf)
}

func (r *Recorder) SetInputLayout(l gpu.InputLayout) {
	r.record("SetInputLayout", l)
}

func (r *Recorder) SetVertexBuffer(buf gpu.Buffer, stride uint32) {
	r.record("SetVertexBuffer", buf, stride)
}

func (r *Recorder) SetIndexBuffer(buf gpu.Buffer, format gpu.IndexFormat) {
	r.record("SetIndexBuffer", buf, format)
}

func (r *Recorder) SetTopology(t gpu.Topology) {
	r.record("SetTopology", t)
}

func (r *Recorder) SetShaders(vs gpu.VertexShader, ps gpu.PixelShader) {
	r.record("SetShaders", vs, ps)
}

func (r *Recorder) DrawIndexed(indexCount uint32) {
	r.record("DrawIndexed", indexCount)
}

func (r *Recorder) Present() error {
	r.record("Present")
	if r.PresentHook != nil {
		r.PresentHook()
	}
	r.mu.Lock()
	r.presents++
	r.mu.Unlock()
	return r.PresentErr
}
