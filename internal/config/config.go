// Package config holds the process-wide runtime configuration described in
// spec.md §3 ("RealtimeConfig"): init-time constants plus the small set of
// atomics the setup thread, the audio thread, and any control surface share
// while the stream is running.
package config

import (
	"math"
	"sync/atomic"
)

// ElevationMode selects how Pose reshapes a direction's elevation to fit a
// speaker layout's elevation span (spec.md §4.2 "Layout reshaping of
// elevation").
type ElevationMode int32

const (
	ElevationClamp ElevationMode = iota
	ElevationRescaleAtmosUp
	ElevationRescaleFullSphere
)

func (m ElevationMode) String() string {
	switch m {
	case ElevationClamp:
		return "clamp"
	case ElevationRescaleAtmosUp:
		return "atmos-up"
	case ElevationRescaleFullSphere:
		return "full-sphere"
	default:
		return "unknown"
	}
}

// RealtimeConfig is created once on the setup thread before the audio
// stream starts. SampleRate, BufferSize and OutputChannels are fixed at
// construction; everything else is a relaxed atomic that the audio thread
// reads once per block (spec.md §5 "Atomic contract": relaxed on both
// sides, stale-by-one-block is acceptable).
type RealtimeConfig struct {
	SampleRate     int
	BufferSize     int
	OutputChannels int

	masterGain            atomic.Uint32 // float32 bits
	loudspeakerMix        atomic.Uint32 // float32 bits, linear gain
	subMix                atomic.Uint32 // float32 bits, linear gain
	dbapFocus             atomic.Uint32 // float32 bits
	focusAutoCompensation atomic.Bool
	paused                atomic.Bool
	shouldExit            atomic.Bool
	playing               atomic.Bool
	elevationMode         atomic.Int32
}

// New builds a RealtimeConfig with spec.md §6 CLI defaults: master gain 0.5,
// unity trims, focus 1.5, elevation clamp.
func New(sampleRate, bufferSize, outputChannels int) *RealtimeConfig {
	c := &RealtimeConfig{
		SampleRate:     sampleRate,
		BufferSize:     bufferSize,
		OutputChannels: outputChannels,
	}
	c.SetMasterGain(0.5)
	c.SetLoudspeakerMix(1.0)
	c.SetSubMix(1.0)
	c.SetDBAPFocus(1.5)
	c.SetElevationMode(ElevationClamp)
	c.playing.Store(true)
	return c
}

func loadFloat32(a *atomic.Uint32) float32 {
	return math.Float32frombits(a.Load())
}

func storeFloat32(a *atomic.Uint32, v float32) {
	a.Store(math.Float32bits(v))
}

func (c *RealtimeConfig) MasterGain() float32          { return loadFloat32(&c.masterGain) }
func (c *RealtimeConfig) SetMasterGain(v float32)      { storeFloat32(&c.masterGain, v) }
func (c *RealtimeConfig) LoudspeakerMix() float32      { return loadFloat32(&c.loudspeakerMix) }
func (c *RealtimeConfig) SetLoudspeakerMix(v float32)  { storeFloat32(&c.loudspeakerMix, v) }
func (c *RealtimeConfig) SubMix() float32              { return loadFloat32(&c.subMix) }
func (c *RealtimeConfig) SetSubMix(v float32)          { storeFloat32(&c.subMix, v) }
func (c *RealtimeConfig) DBAPFocus() float32           { return loadFloat32(&c.dbapFocus) }
func (c *RealtimeConfig) SetDBAPFocus(v float32)       { storeFloat32(&c.dbapFocus, v) }
func (c *RealtimeConfig) AutoCompensation() bool       { return c.focusAutoCompensation.Load() }
func (c *RealtimeConfig) SetAutoCompensation(v bool)   { c.focusAutoCompensation.Store(v) }
func (c *RealtimeConfig) Paused() bool                 { return c.paused.Load() }
func (c *RealtimeConfig) SetPaused(v bool)             { c.paused.Store(v) }
func (c *RealtimeConfig) ShouldExit() bool             { return c.shouldExit.Load() }
func (c *RealtimeConfig) SetShouldExit(v bool)         { c.shouldExit.Store(v) }
func (c *RealtimeConfig) Playing() bool                { return c.playing.Load() }
func (c *RealtimeConfig) SetPlaying(v bool)            { c.playing.Store(v) }

func (c *RealtimeConfig) ElevationMode() ElevationMode {
	return ElevationMode(c.elevationMode.Load())
}

func (c *RealtimeConfig) SetElevationMode(m ElevationMode) {
	c.elevationMode.Store(int32(m))
}

// DBToLinear converts a decibel trim (as taken from the CLI) to the linear
// gain stored in LoudspeakerMix/SubMix.
func DBToLinear(db float64) float32 {
	return float32(math.Pow(10, db/20))
}
