//go:build !headless

package backend

import (
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
)

// OtoDevice drives a Driver through an oto.Player, interleaving the
// Driver's per-device-channel float32 blocks into the int16 PCM stream
// oto expects. Grounded on the teacher's audio_backend_oto.go: a small
// io.Reader adapter feeding a single long-lived oto.Player.
type OtoDevice struct {
	ctx    *oto.Context
	player oto.Player
	driver *Driver
	reader *driverReader

	sampleRate int
	channels   int
	blockSize  int
}

// NewOtoDevice creates the oto context and player for the given sample
// rate/channel count, ready to start playback. Setup-thread-only.
func NewOtoDevice(driver *Driver, sampleRate, channels, blockSize int) (*OtoDevice, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("oto backend: %w", err)
	}
	<-ready

	reader := &driverReader{driver: driver, channels: channels, blockSize: blockSize}
	player := ctx.NewPlayer(reader)

	return &OtoDevice{
		ctx:        ctx,
		player:     player,
		driver:     driver,
		reader:     reader,
		sampleRate: sampleRate,
		channels:   channels,
		blockSize:  blockSize,
	}, nil
}

// Start begins playback; oto pulls blocks from driverReader on its own
// goroutine as the device needs more audio.
func (d *OtoDevice) Start() { d.player.Play() }

// Stop halts playback and releases the player.
func (d *OtoDevice) Stop() error {
	d.player.Pause()
	return d.player.Close()
}

// driverReader adapts Driver.ProcessBlock to io.Reader, interleaving and
// converting float32 [-1,1] samples to little-endian int16 PCM, exactly
// the shape oto.NewPlayer expects (grounded on the teacher's
// audio_backend_oto.go PCM conversion).
type driverReader struct {
	driver    *Driver
	channels  int
	blockSize int
	pcmBuf    []byte
	pcmPos    int
}

func (r *driverReader) Read(p []byte) (int, error) {
	if r.pcmPos >= len(r.pcmBuf) {
		out := r.driver.ProcessBlock(r.blockSize)
		r.pcmBuf = interleaveToPCM16(out, r.blockSize, r.pcmBuf[:0])
		r.pcmPos = 0
	}
	n := copy(p, r.pcmBuf[r.pcmPos:])
	r.pcmPos += n
	return n, nil
}

func interleaveToPCM16(channels [][]float32, frames int, dst []byte) []byte {
	need := frames * len(channels) * 2
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]
	i := 0
	for f := 0; f < frames; f++ {
		for ch := range channels {
			v := channels[ch][f]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			sample := int16(v * 32767)
			dst[i] = byte(sample)
			dst[i+1] = byte(sample >> 8)
			i += 2
		}
	}
	return dst
}

var _ io.Reader = (*driverReader)(nil)
