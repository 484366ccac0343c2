package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/helix/engine/logging"
)

// Sample is what one rendered frame contributes to the profiler.
type Sample struct {
	Draws      int
	LightDraws int
	FrameTime  time.Duration
}

// Report is the summary computed at the end of each update interval.
type Report struct {
	FPS            float64
	AvgDraws       float64
	AvgLightDraws  float64
	AvgFrameTime   time.Duration
	MaxFrameTime   time.Duration
	HeapMB         float64
	AllocRateMBps  float64
	GCCount        uint32
	LastGCPauseUs  uint64
	MaxGCPauseUs   uint64
	SysMB          float64
	IntervalFrames int
}

// Profiler tracks frame rate, per-frame draw counts and memory statistics.
// Outputs a report to the logger at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	draws          int
	lightDraws     int
	frameTime      time.Duration
	maxFrameTime   time.Duration
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	last Report
	out  *slog.Logger
	now  func() time.Time
}

// ProfilerOption configures a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often a report is produced.
//
// Parameters:
//   - d: the interval; values <= 0 keep the default of one second
//
// Returns:
//   - ProfilerOption: option function to apply
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithLogger sets the logger reports are written to. Defaults to logging.Logger().
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ProfilerOption: option function to apply
func WithLogger(l *slog.Logger) ProfilerOption {
	return func(p *Profiler) {
		if l != nil {
			p.out = l
		}
	}
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per rendered frame.
// Logs a report when the update interval has elapsed.
// Statistics include: FPS, draws per frame, frame time, heap usage, allocation rate, GC count/pause times, total memory.
//
// Parameters:
//   - s: the frame's sample
//
// Returns:
//   - bool: true if a report was produced this tick, false otherwise
func (p *Profiler) Tick(s Sample) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	p.draws += s.Draws
	p.lightDraws += s.LightDraws
	p.frameTime += s.FrameTime
	p.maxFrameTime = max(p.maxFrameTime, s.FrameTime)

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	frames := float64(p.frameCount)
	r := Report{
		FPS:            frames / elapsed.Seconds(),
		AvgDraws:       float64(p.draws) / frames,
		AvgLightDraws:  float64(p.lightDraws) / frames,
		AvgFrameTime:   p.frameTime / time.Duration(p.frameCount),
		MaxFrameTime:   p.maxFrameTime,
		HeapMB:         float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:          float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMBps:  float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:        p.memStats.NumGC,
		IntervalFrames: p.frameCount,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	if gcCount > 0 {
		r.LastGCPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			r.MaxGCPauseUs = max(r.MaxGCPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.log().Info("profiler",
		"fps", r.FPS,
		"drawsPerFrame", r.AvgDraws,
		"lightsPerFrame", r.AvgLightDraws,
		"frameTime", r.AvgFrameTime,
		"maxFrameTime", r.MaxFrameTime,
		"heapMB", r.HeapMB,
		"allocRateMBps", r.AllocRateMBps,
		"gc", r.GCCount,
		"gcLastPauseUs", r.LastGCPauseUs,
		"gcMaxPauseUs", r.MaxGCPauseUs,
		"sysMB", r.SysMB,
	)

	p.last = r
	p.frameCount = 0
	p.draws = 0
	p.lightDraws = 0
	p.frameTime = 0
	p.maxFrameTime = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent report. The zero Report means no interval has completed yet.
func (p *Profiler) Last() Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Profiler) log() *slog.Logger {
	if p.out != nil {
		return p.out
	}
	return logging.Logger()
}
