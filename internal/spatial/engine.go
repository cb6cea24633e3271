package spatial

import (
	"github.com/Cult-DSP/sonopleth/internal/config"
	"github.com/Cult-DSP/sonopleth/internal/layout"
	"github.com/Cult-DSP/sonopleth/internal/pose"
)

// SourceBlock is one source's decoded audio plus its current pose for a
// single render_block call.
type SourceBlock struct {
	Samples []float32
	Pose    pose.Vec3
	IsLFE   bool
}

// Engine is the DBAP spatializer from spec.md §4.3: it turns per-source
// samples and poses into a per-device-channel render buffer every block.
type Engine struct {
	cfg *config.RealtimeConfig

	numLayoutChannels int
	speakerPos        []pose.Vec3 // DBAP-space position, one per panning speaker
	speakerChannel     []int       // layout channel index, parallel to speakerPos
	subChannels       []int       // layout channel indices fed directly from the LFE bus

	remap        *layout.OutputRemap
	numDeviceChannels int

	weights   []float32   // reused scratch, len(speakerPos)
	layoutBuf [][]float32 // [layoutChannel][frame], reused across blocks
	deviceBuf [][]float32 // [deviceChannel][frame], reused across blocks

	focusCompensation float32 // 1.0 unless auto-compensation was computed at setup
}

// Init builds the fixed per-layout-channel geometry (speaker DBAP
// positions, subwoofer channel set) and preallocates the render buffers
// for up to maxBlockFrames samples. Setup-thread-only.
func Init(l *layout.SpeakerLayout, cfg *config.RealtimeConfig, maxBlockFrames int) *Engine {
	e := &Engine{cfg: cfg, focusCompensation: 1.0}

	maxChannel := -1
	for _, s := range l.Speakers {
		if s.DeviceChannel > maxChannel {
			maxChannel = s.DeviceChannel
		}
	}
	e.numLayoutChannels = maxChannel + 1

	for _, s := range l.Speakers {
		if s.Subwoofer {
			e.subChannels = append(e.subChannels, s.DeviceChannel)
			continue
		}
		e.speakerPos = append(e.speakerPos, speakerDBAPPosition(s))
		e.speakerChannel = append(e.speakerChannel, s.DeviceChannel)
	}

	e.weights = make([]float32, len(e.speakerPos))
	e.layoutBuf = make([][]float32, e.numLayoutChannels)
	for i := range e.layoutBuf {
		e.layoutBuf[i] = make([]float32, maxBlockFrames)
	}

	e.SetRemap(layout.NewIdentityRemap(e.numLayoutChannels))
	return e
}

// SetFocusCompensation installs a pre-computed compensation gain from
// ComputeFocusCompensation. Setup-thread-only, stream-stopped-only.
func (e *Engine) SetFocusCompensation(gain float32) { e.focusCompensation = gain }

// SetRemap installs the output channel remap and resizes the device
// buffer to match. Setup-thread-only.
func (e *Engine) SetRemap(r *layout.OutputRemap) {
	e.remap = r
	maxDevice := -1
	for _, p := range r.Pairs {
		if p.DeviceChannel > maxDevice {
			maxDevice = p.DeviceChannel
		}
	}
	e.numDeviceChannels = maxDevice + 1
	e.deviceBuf = make([][]float32, e.numDeviceChannels)
	for i := range e.deviceBuf {
		e.deviceBuf[i] = make([]float32, cap(e.layoutBuf[0]))
	}
}

func (e *Engine) NumDeviceChannels() int { return e.numDeviceChannels }

// Gains are the already-smoothed loudness trims for one block. The
// control driver owns the per-block exponential smoothing (spec.md §4.4)
// and hands the result in here rather than RenderBlock reading the raw
// atomics itself, so a zippered parameter change never reaches the mix
// as a single-block discontinuity.
type Gains struct {
	MasterGain     float32
	LoudspeakerMix float32
	SubMix         float32
}

// RenderBlock mixes every source's samples into the layout channels (DBAP
// panning for normal sources, direct bus routing for LFE sources), trims
// with the supplied gains, and remaps to device channel order.
// Audio-thread-only: no allocation beyond the first call's buffer sizing,
// no locking, no I/O.
func (e *Engine) RenderBlock(sources []SourceBlock, frames int, gains Gains) [][]float32 {
	for ch := range e.layoutBuf {
		clear(e.layoutBuf[ch][:frames])
	}

	loudspeakerTrim := gains.LoudspeakerMix * gains.MasterGain * e.focusCompensation
	// LFE sources split master_gain*0.95 evenly across the subwoofer
	// channels before the sub_mix trim, leaving a little headroom versus
	// a panned source placed directly on a speaker.
	subTrim := float32(0)
	if len(e.subChannels) > 0 {
		subTrim = gains.SubMix * gains.MasterGain * 0.95 / float32(len(e.subChannels))
	}

	for _, src := range sources {
		if src.IsLFE {
			for _, ch := range e.subChannels {
				buf := e.layoutBuf[ch]
				for f := 0; f < frames && f < len(src.Samples); f++ {
					buf[f] += src.Samples[f] * subTrim
				}
			}
			continue
		}

		dbapWeights(e.weights, e.speakerPos, src.Pose, e.cfg.DBAPFocus())
		for i, w := range e.weights {
			ch := e.speakerChannel[i]
			buf := e.layoutBuf[ch]
			gain := w * loudspeakerTrim
			for f := 0; f < frames && f < len(src.Samples); f++ {
				buf[f] += src.Samples[f] * gain
			}
		}
	}

	if e.remap.Identity {
		return e.layoutBuf
	}

	for ch := range e.deviceBuf {
		clear(e.deviceBuf[ch][:frames])
	}
	// Multiple layout channels may target the same device channel; sum
	// rather than overwrite so none of them is silently dropped.
	for _, p := range e.remap.Pairs {
		dst := e.deviceBuf[p.DeviceChannel]
		src := e.layoutBuf[p.LayoutChannel]
		for f := 0; f < frames; f++ {
			dst[f] += src[f]
		}
	}
	return e.deviceBuf
}
