package renderer

import (
	"time"

	"github.com/Carmen-Shannon/helix/engine/profiler"
	"github.com/Carmen-Shannon/helix/engine/renderer/deferred"
	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
)

// State is the render goroutine's position in its frame loop.
type State int32

const (
	// StateWaitingForStart means the goroutine has signalled ready and waits for RenderScene.
	StateWaitingForStart State = iota
	// StateRendering means the G-buffer and lighting passes are being recorded.
	StateRendering
	// StatePresenting means the frame is being presented and its slot drained.
	StatePresenting
	// StateStopped means the goroutine has exited.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateWaitingForStart:
		return "WaitingForStart"
	case StateRendering:
		return "Rendering"
	case StatePresenting:
		return "Presenting"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

func (r *renderer) setState(s State) {
	r.state.Store(int32(s))
}

// renderLoop is the body of the render goroutine. Each iteration signals ready, waits for a
// sealed frame, renders and presents it, then drains its slot. A shutdown request is honored
// between frames; the in-progress frame always completes.
func (r *renderer) renderLoop() {
	defer func() {
		// readiness is signalled once more so a producer blocked in RenderScene wakes up
		r.setState(StateStopped)
		r.ready.Set()
	}()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("render goroutine failed", "panic", p)
			panic(p)
		}
	}()

	for {
		r.setState(StateWaitingForStart)
		r.ready.Set()

		select {
		case <-r.start.C():
		case <-r.quit:
			return
		}

		r.renderFrame()

		if r.shutdownRequested.Load() {
			return
		}
	}
}

func (r *renderer) renderFrame() {
	begin := time.Now()
	r.setState(StateRendering)

	h := r.handles
	ctx := h.Context
	slot := r.queue.RenderSlot()

	ctx.SetPSSamplers(0, r.samplers[:])

	constants := slot.Frame.Constants()
	ctx.WriteConstants(h.Constants.Frame, constants.Marshal())
	ctx.SetVSConstants(gpu.FrameConstantSlot, h.Constants.Frame)
	ctx.SetPSConstants(gpu.FrameConstantSlot, h.Constants.Frame)

	gs := r.gbuffer.Execute(slot.Draws(), &slot.Frame)
	ls := r.lighting.Execute(slot.Lights.Lights())

	r.setState(StatePresenting)
	presentErr := h.SwapChain.Present()
	if presentErr != nil {
		r.logger.Warn("present failed", "err", presentErr)
	}

	released := r.queue.Drain(slot.Index())
	elapsed := time.Since(begin)
	r.recordFrame(gs, ls, elapsed, presentErr != nil)

	r.logger.Debug("frame rendered",
		"slot", slot.Index(),
		"draws", gs.Draws,
		"lights", ls.Draws,
		"skippedLights", ls.Skipped,
		"released", released,
		"elapsed", elapsed,
	)
	if r.profiler != nil {
		r.profiler.Tick(profiler.Sample{Draws: gs.Draws, LightDraws: ls.Draws, FrameTime: elapsed})
	}
}

func (r *renderer) recordFrame(gs, ls deferred.PassStats, elapsed time.Duration, presentFailed bool) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats.Frames++
	r.stats.Draws += uint64(gs.Draws)
	r.stats.Indices += gs.Indices
	r.stats.LightDraws += uint64(ls.Draws)
	r.stats.SkippedLights += uint64(ls.Skipped)
	if presentFailed {
		r.stats.PresentErrors++
	}
	r.stats.LastGBuffer = gs
	r.stats.LastLighting = ls
	r.stats.LastFrame = elapsed
}
