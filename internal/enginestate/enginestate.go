// Package enginestate holds the telemetry atomics described in spec.md §3
// ("EngineState"). The telemetry fields are written only by the audio
// thread and the load-time fields once by the setup thread before the
// stream starts; any other thread (a meter, a CLI status line) only reads.
package enginestate

import (
	"math"
	"sync/atomic"
)

// EngineState is allocated once at setup and shared read-only thereafter
// with anything that wants to observe playback progress.
type EngineState struct {
	frameCounter    atomic.Uint64
	playbackTimeSec atomic.Uint64 // float64 bits
	cpuLoad         atomic.Uint32 // float32 bits, 0..1
	xrunCount       atomic.Uint64

	// Set once at load, before the stream starts.
	numSources       atomic.Int32
	numSpeakers      atomic.Int32
	sceneDurationSec atomic.Uint64 // float64 bits
}

func New() *EngineState {
	return &EngineState{}
}

// SetLoadTimeInfo records the set-once-at-load telemetry. Must be called on
// the setup thread before the audio stream starts.
func (s *EngineState) SetLoadTimeInfo(numSources, numSpeakers int, sceneDurationSec float64) {
	s.numSources.Store(int32(numSources))
	s.numSpeakers.Store(int32(numSpeakers))
	s.sceneDurationSec.Store(math.Float64bits(sceneDurationSec))
}

func (s *EngineState) NumSources() int        { return int(s.numSources.Load()) }
func (s *EngineState) NumSpeakers() int       { return int(s.numSpeakers.Load()) }
func (s *EngineState) SceneDurationSec() float64 {
	return math.Float64frombits(s.sceneDurationSec.Load())
}

func (s *EngineState) FrameCounter() uint64 { return s.frameCounter.Load() }

// AdvanceFrameCounter adds n frames, audio-thread-only.
func (s *EngineState) AdvanceFrameCounter(n uint64) {
	s.frameCounter.Add(n)
}

func (s *EngineState) PlaybackTimeSec() float64 {
	return math.Float64frombits(s.playbackTimeSec.Load())
}

// SetPlaybackTimeSec publishes the current playback time, audio-thread-only.
func (s *EngineState) SetPlaybackTimeSec(v float64) {
	s.playbackTimeSec.Store(math.Float64bits(v))
}

func (s *EngineState) CPULoad() float32 {
	return math.Float32frombits(s.cpuLoad.Load())
}

// SetCPULoad clamps to [0, 1] and publishes, audio-thread-only.
func (s *EngineState) SetCPULoad(v float32) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.cpuLoad.Store(math.Float32bits(v))
}

func (s *EngineState) XrunCount() uint64 { return s.xrunCount.Load() }

// IncrementXrun records one underrun, audio-thread-only.
func (s *EngineState) IncrementXrun() {
	s.xrunCount.Add(1)
}
