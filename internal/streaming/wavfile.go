package streaming

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Cult-DSP/sonopleth/internal/engineerr"
)

// monoFile is a ChunkSource backed by a single-channel WAV file, used for
// mono-scene sources (spec.md §4.1 "load_mono_scene").
type monoFile struct {
	f       *os.File
	decoder *wav.Decoder
	buf     *audio.IntBuffer
}

// OpenMonoWAV opens path and validates it against the engine's sample
// rate, returning a ChunkSource that decodes sequentially. Stereo or
// multi-channel files are rejected: mono sources must be mono (spec.md §7
// "channel-count mismatch").
func OpenMonoWAV(path string, expectedSampleRate int) (ChunkSource, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, engineerr.New(engineerr.KindFileOpen, "streaming", path, err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, nil, engineerr.New(engineerr.KindFileOpen, "streaming", path, fmt.Errorf("not a valid WAV file"))
	}
	dec.ReadInfo()
	if int(dec.SampleRate) != expectedSampleRate {
		f.Close()
		return nil, nil, engineerr.New(engineerr.KindSampleRateMismatch, "streaming", path,
			fmt.Errorf("file sample rate %d != engine sample rate %d", dec.SampleRate, expectedSampleRate))
	}
	if dec.NumChans != 1 {
		f.Close()
		return nil, nil, engineerr.New(engineerr.KindChannelCountMismatch, "streaming", path,
			fmt.Errorf("mono source file has %d channels", dec.NumChans))
	}

	m := &monoFile{
		f:       f,
		decoder: dec,
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: 1, SampleRate: expectedSampleRate},
		},
	}
	return m, f.Close, nil
}

func (m *monoFile) FillChunk(dst []float32) (frames int, eof bool, err error) {
	m.buf.Data = make([]int, len(dst))
	n, err := m.decoder.PCMBuffer(m.buf)
	if err != nil {
		return 0, false, err
	}
	bitDepth := m.decoder.SampleBitDepth()
	scale := float32(1.0)
	if bitDepth > 0 {
		scale = 1.0 / float32(int64(1)<<(bitDepth-1))
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(m.buf.Data[i]) * scale
	}
	return n, n < len(dst), nil
}

// multichannelDemuxer reads interleaved frames once per "round" from a
// shared decoder and hands each channel's samples out to that channel's
// channelView. Only the first channelView to ask in a round triggers the
// actual disk read; the rest just copy out of the already-demuxed round
// buffer. This is the "cyclic-ownership handoff-handle" pattern: every
// channelView holds a pointer back to the shared demuxer plus the
// generation it last consumed, never the decoder itself.
type multichannelDemuxer struct {
	mu          sync.Mutex
	f           *os.File
	decoder     *wav.Decoder
	buf         *audio.IntBuffer
	numChannels int
	scale       float32

	roundGen    uint64
	roundFrames int
	roundEOF    bool
	roundData   [][]float32 // [channel][frame], sized numChannels x chunkFrames
}

// OpenMultichannelWAV opens the ADM/multichannel file and returns the
// shared demuxer (whose ChannelView method builds a per-channel
// ChunkSource), the detected channel count, and a close function, for
// callers to resolve each source key's channel index
// (spec.md §4.1 "load_multichannel_scene": "N.1" -> index N-1, "LFE" ->
// index 3 when >=4 channels).
func OpenMultichannelWAV(path string, expectedSampleRate, chunkFrames int) (*multichannelDemuxer, int, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, nil, engineerr.New(engineerr.KindFileOpen, "streaming", path, err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, 0, nil, engineerr.New(engineerr.KindFileOpen, "streaming", path, fmt.Errorf("not a valid WAV file"))
	}
	dec.ReadInfo()
	if int(dec.SampleRate) != expectedSampleRate {
		f.Close()
		return nil, 0, nil, engineerr.New(engineerr.KindSampleRateMismatch, "streaming", path,
			fmt.Errorf("file sample rate %d != engine sample rate %d", dec.SampleRate, expectedSampleRate))
	}

	bitDepth := dec.SampleBitDepth()
	scale := float32(1.0)
	if bitDepth > 0 {
		scale = 1.0 / float32(int64(1)<<(bitDepth-1))
	}

	numChannels := int(dec.NumChans)
	roundData := make([][]float32, numChannels)
	for i := range roundData {
		roundData[i] = make([]float32, chunkFrames)
	}

	d := &multichannelDemuxer{
		f:       f,
		decoder: dec,
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: numChannels, SampleRate: expectedSampleRate},
		},
		numChannels: numChannels,
		scale:       scale,
		roundData:   roundData,
	}
	return d, numChannels, f.Close, nil
}

// fillRound performs the shared interleaved read and demux for the chunk
// that starts at readRound, if it hasn't already happened for this round.
func (d *multichannelDemuxer) fillRound(readRound uint64, chunkFrames int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if readRound < d.roundGen {
		return // a later round already advanced past this; nothing to do
	}

	d.buf.Data = make([]int, chunkFrames*d.numChannels)
	n, err := d.decoder.PCMBuffer(d.buf)
	frames := n / d.numChannels
	if err != nil {
		frames = 0
	}

	for ch := 0; ch < d.numChannels; ch++ {
		for i := 0; i < frames; i++ {
			d.roundData[ch][i] = float32(d.buf.Data[i*d.numChannels+ch]) * d.scale
		}
	}
	d.roundFrames = frames
	d.roundEOF = frames < chunkFrames
	d.roundGen++
}

// channelView is the ChunkSource exposed to one SourceStream, extracting
// a single channel out of the shared demuxer's current round.
type channelView struct {
	demux       *multichannelDemuxer
	channel     int
	chunkFrames int
	lastGen     uint64
}

// ChannelView builds the ChunkSource for a single device channel index
// within this multichannel file.
func (d *multichannelDemuxer) ChannelView(channel, chunkFrames int) ChunkSource {
	return &channelView{demux: d, channel: channel, chunkFrames: chunkFrames}
}

func (v *channelView) FillChunk(dst []float32) (frames int, eof bool, err error) {
	v.demux.fillRound(v.lastGen, v.chunkFrames)
	v.demux.mu.Lock()
	defer v.demux.mu.Unlock()

	v.lastGen = v.demux.roundGen
	n := copy(dst, v.demux.roundData[v.channel][:v.demux.roundFrames])
	return n, v.demux.roundEOF, nil
}

// ChannelIndexForKey applies spec.md §4.1's mapping convention from a
// source key to a device channel index within the multichannel file:
// "N.1" -> index N-1, "LFE" -> index 3 when the file has >=4 channels.
func ChannelIndexForKey(key string, numChannels int) (int, bool) {
	if key == "LFE" && numChannels >= 4 {
		return 3, true
	}
	var n int
	if _, err := fmt.Sscanf(key, "%d.1", &n); err == nil && n >= 1 && n <= numChannels {
		return n - 1, true
	}
	return 0, false
}
