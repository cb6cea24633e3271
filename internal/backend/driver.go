// Package backend implements the per-block control driver from spec.md
// §4.4: it snapshots runtime config once per block, smooths the loudness
// trims, handles the pause fade, drives Pose and Spatializer, and hands
// the result to a device backend (oto or headless).
package backend

import (
	"math"

	"github.com/Cult-DSP/sonopleth/internal/config"
	"github.com/Cult-DSP/sonopleth/internal/enginestate"
	"github.com/Cult-DSP/sonopleth/internal/pose"
	"github.com/Cult-DSP/sonopleth/internal/spatial"
	"github.com/Cult-DSP/sonopleth/internal/streaming"
)

// gainSmoothingTauSec is the exponential smoothing time constant for the
// loudness trims, per spec.md §4.4 ("alpha = 1 - exp(-dt/tau), tau=50ms").
const gainSmoothingTauSec = 0.050

// pauseFadeSec is the linear ramp duration applied across a pause/resume
// edge, spec.md §4.4.
const pauseFadeSec = 0.008

// Driver is created once at setup and its ProcessBlock method is the only
// thing the audio callback calls every block.
type Driver struct {
	cfg   *config.RealtimeConfig
	state *enginestate.EngineState
	pose  *pose.Engine
	spat  *spatial.Engine

	streams       []*streaming.SourceStream
	isLFE         []bool
	blocks        [][]float32          // per-source scratch, reused across blocks
	sourceBlocks  []spatial.SourceBlock // reused across blocks to avoid allocating

	alpha                float32
	smoothedMasterGain   float32
	smoothedLoudspeaker  float32
	smoothedSub          float32

	pauseFadeFrames int
	fadeGain        float32 // 0..1, current pause-fade multiplier
	fadeStep        float32 // per-frame delta while ramping
	fadeTarget      float32 // 0 (fading to silence) or 1 (fading back up)
	wasPaused       bool

	playbackTimeSec float64

	silenceBuf  [][]float32 // pre-zeroed, reused while fully paused
	silenceView [][]float32 // reused outer slice, resliced to frames per call
}

// NewDriver wires together the pose and spatial engines with the sources
// feeding them. maxBlockFrames sizes the reused per-source scratch
// buffers so ProcessBlock never allocates.
func NewDriver(cfg *config.RealtimeConfig, state *enginestate.EngineState, poseEngine *pose.Engine, spatialEngine *spatial.Engine, streams []*streaming.SourceStream, isLFE []bool, maxBlockFrames int) *Driver {
	blockDurationSec := float64(cfg.BufferSize) / float64(cfg.SampleRate)
	alpha := float32(1 - math.Exp(-blockDurationSec/gainSmoothingTauSec))

	blocks := make([][]float32, len(streams))
	for i := range blocks {
		blocks[i] = make([]float32, maxBlockFrames)
	}

	numDeviceChannels := spatialEngine.NumDeviceChannels()
	silence := make([][]float32, numDeviceChannels)
	for i := range silence {
		silence[i] = make([]float32, maxBlockFrames)
	}

	return &Driver{
		cfg:                 cfg,
		state:               state,
		pose:                poseEngine,
		spat:                spatialEngine,
		streams:             streams,
		isLFE:               isLFE,
		blocks:              blocks,
		sourceBlocks:        make([]spatial.SourceBlock, len(streams)),
		alpha:               alpha,
		smoothedMasterGain:  cfg.MasterGain(),
		smoothedLoudspeaker: cfg.LoudspeakerMix(),
		smoothedSub:         cfg.SubMix(),
		pauseFadeFrames:     int(float64(cfg.SampleRate) * pauseFadeSec),
		fadeGain:            1,
		fadeTarget:          1,
		silenceBuf:          silence,
		silenceView:         make([][]float32, numDeviceChannels),
	}
}

func smoothTowards(current, target, alpha float32) float32 {
	return current + alpha*(target-current)
}

// ProcessBlock renders one block of frames device-channel audio. It is
// the entire audio-thread hot path: it reads the gain and pause atomics at
// the top of the block, pulls one block of samples per source from
// streaming, computes poses,
// renders through the spatializer, applies the pause fade, and publishes
// telemetry. No allocation, no locking, no I/O.
func (d *Driver) ProcessBlock(frames int) [][]float32 {
	d.smoothedMasterGain = smoothTowards(d.smoothedMasterGain, d.cfg.MasterGain(), d.alpha)
	d.smoothedLoudspeaker = smoothTowards(d.smoothedLoudspeaker, d.cfg.LoudspeakerMix(), d.alpha)
	d.smoothedSub = smoothTowards(d.smoothedSub, d.cfg.SubMix(), d.alpha)

	paused := d.cfg.Paused()
	if paused != d.wasPaused {
		d.startPauseFade(!paused) // fading up (resume) when no longer paused
		d.wasPaused = paused
	}

	if paused && d.fadeGain == 0 && d.fadeTarget == 0 {
		// Fully paused and faded out: spec.md §4.4 step 3 — only CPU load is
		// published, the frame counter does not advance.
		d.state.SetCPULoad(0)
		for i, buf := range d.silenceBuf {
			d.silenceView[i] = buf[:frames]
		}
		return d.silenceView
	}

	tSec := d.playbackTimeSec
	poses := d.pose.ComputePositions(tSec)

	anyEOF := false
	for i, s := range d.streams {
		buf := d.blocks[i][:frames]
		n, eof := s.GetBlock(buf)
		if n < frames {
			clearTail(buf, n)
			d.state.IncrementXrun()
		}
		if eof {
			anyEOF = true
		}
		d.sourceBlocks[i] = spatial.SourceBlock{
			Samples: buf,
			Pose:    poses[i],
			IsLFE:   d.isLFE[i],
		}
	}

	out := d.spat.RenderBlock(d.sourceBlocks, frames, spatial.Gains{
		MasterGain:     d.smoothedMasterGain,
		LoudspeakerMix: d.smoothedLoudspeaker,
		SubMix:         d.smoothedSub,
	})

	d.applyPauseFade(out, frames)

	d.playbackTimeSec += float64(frames) / float64(d.cfg.SampleRate)
	d.state.SetPlaybackTimeSec(d.playbackTimeSec)
	d.state.AdvanceFrameCounter(uint64(frames))
	if anyEOF {
		d.cfg.SetPlaying(false)
	}

	return out
}

func clearTail(buf []float32, from int) {
	for i := from; i < len(buf); i++ {
		buf[i] = 0
	}
}

func (d *Driver) startPauseFade(fadeUp bool) {
	if fadeUp {
		d.fadeTarget = 1
	} else {
		d.fadeTarget = 0
	}
	if d.pauseFadeFrames <= 0 {
		d.fadeGain = d.fadeTarget
		d.fadeStep = 0
		return
	}
	d.fadeStep = (d.fadeTarget - d.fadeGain) / float32(d.pauseFadeFrames)
}

// applyPauseFade ramps every device channel linearly across the pause
// edge (spec.md §4.4: 8ms linear ramp, not a hard mute/unmute click).
func (d *Driver) applyPauseFade(out [][]float32, frames int) {
	if d.fadeGain == d.fadeTarget && d.fadeTarget == 1 && !d.cfg.Paused() {
		return // steady-state playing, nothing to ramp
	}

	for f := 0; f < frames; f++ {
		if d.fadeGain != d.fadeTarget {
			d.fadeGain += d.fadeStep
			if (d.fadeStep > 0 && d.fadeGain > d.fadeTarget) || (d.fadeStep < 0 && d.fadeGain < d.fadeTarget) {
				d.fadeGain = d.fadeTarget
			}
		}
		g := d.fadeGain
		for ch := range out {
			out[ch][f] *= g
		}
	}
}
