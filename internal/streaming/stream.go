// Package streaming implements the lock-free double-buffered disk-to-RAM
// audio delivery from spec.md §4.1. Each Source gets one SourceStream; a
// background loader goroutine keeps the idle buffer filled while the audio
// thread drains the other one without ever allocating, locking, or
// touching disk.
package streaming

import (
	"sync/atomic"
)

// BufferState is the per-buffer state spec.md §4.1 and §5 define:
// Empty (nothing decoded, eligible for the loader to claim), Loading (the
// loader owns it and is filling it), Ready (fully decoded, waiting to be
// swapped in), Playing (the audio thread is currently draining it).
type BufferState int32

const (
	StateEmpty BufferState = iota
	StateLoading
	StateReady
	StatePlaying
)

// ChunkSource supplies one chunk's worth of mono float32 samples at a
// time, sequentially, from whatever backs a Source (a mono WAV file, or a
// channel view onto a shared multichannel WAV). It is only ever called
// from the background loader goroutine, never the audio thread.
type ChunkSource interface {
	// FillChunk decodes up to len(dst) samples into dst, returning how many
	// were written. eof is true once the underlying source is exhausted;
	// frames may be >0 and eof true in the same call (final partial chunk).
	FillChunk(dst []float32) (frames int, eof bool, err error)
}

// chunk is one double-buffer slot.
type chunk struct {
	state  atomic.Int32
	data   []float32
	frames int // valid samples in data, <= cap(data)
	eof    bool
}

func (c *chunk) State() BufferState   { return BufferState(c.state.Load()) }
func (c *chunk) setState(s BufferState) { c.state.Store(int32(s)) }

// SourceStream is the double-buffered delivery pipe for one Source. The
// loader goroutine owns writes to the idle chunk; the audio thread owns
// reads from the active one. Hand-off between them is a single atomic
// store/load pair (spec.md §5 "Atomic contract": acquire on the audio
// thread's read of state, release on the loader's publish).
type SourceStream struct {
	source ChunkSource

	chunks    [2]chunk
	activeIdx atomic.Int32 // which of chunks[0], chunks[1] the audio thread is draining

	readPos     int  // audio-thread-only cursor into chunks[activeIdx]
	reachedEOF  atomic.Bool
	framesTotal atomic.Int64 // frames delivered to the audio thread so far, for telemetry

	shutdown atomic.Bool
}

// NewSourceStream allocates both chunk buffers up front (chunkFrames each)
// so the audio thread never triggers an allocation while running.
func NewSourceStream(source ChunkSource, chunkFrames int) *SourceStream {
	s := &SourceStream{source: source}
	s.chunks[0].data = make([]float32, chunkFrames)
	s.chunks[1].data = make([]float32, chunkFrames)
	return s
}

// Prime performs the first, setup-thread, synchronous fill of both chunks
// so playback can start immediately: chunk 0 becomes Playing, chunk 1
// Ready, or Empty if chunk 0 already reached the end of the source.
func (s *SourceStream) Prime() error {
	frames, eof, err := s.source.FillChunk(s.chunks[0].data)
	if err != nil {
		return err
	}
	s.chunks[0].frames = frames
	s.chunks[0].eof = eof
	s.chunks[0].setState(StatePlaying)
	s.activeIdx.Store(0)
	s.readPos = 0

	if eof {
		s.chunks[1].setState(StateEmpty)
		return nil
	}

	frames2, eof2, err := s.source.FillChunk(s.chunks[1].data)
	if err != nil {
		return err
	}
	s.chunks[1].frames = frames2
	s.chunks[1].eof = eof2
	s.chunks[1].setState(StateReady)
	return nil
}

// idleIndex returns the chunk index the loader should be looking at: the
// one that is not currently Playing.
func (s *SourceStream) idleIndex() int {
	return 1 - int(s.activeIdx.Load())
}

// LoaderTick is called repeatedly from the background loader goroutine. If
// the idle chunk is Empty it claims it (Loading), decodes a chunk, and
// publishes Ready. A no-op if the idle chunk is already Ready/Loading or
// the stream has reached EOF with nothing left to read.
func (s *SourceStream) LoaderTick() error {
	idx := s.idleIndex()
	c := &s.chunks[idx]

	if c.State() != StateEmpty {
		return nil
	}
	if s.reachedEOF.Load() {
		return nil
	}

	c.setState(StateLoading)
	frames, eof, err := s.source.FillChunk(c.data)
	if err != nil {
		// Leave the chunk Empty so a future tick (or shutdown) can observe the
		// failure path cleanly; the caller surfaces err to setup/telemetry.
		c.setState(StateEmpty)
		return err
	}
	c.frames = frames
	c.eof = eof

	c.setState(StateReady) // release: audio thread may now acquire this chunk
	return nil
}

// GetBlock fills dst with up to len(dst) mono samples, advancing the
// internal read cursor and swapping to the idle chunk when the active one
// is exhausted. It is audio-thread-only: no allocation, no locking, no I/O.
// Returns the number of samples written; fewer than len(dst) means either
// end-of-source (eof=true) or the idle chunk was not yet Ready (underrun).
func (s *SourceStream) GetBlock(dst []float32) (written int, eof bool) {
	for written < len(dst) {
		active := int(s.activeIdx.Load())
		c := &s.chunks[active]

		remaining := c.frames - s.readPos
		if remaining > 0 {
			n := copy(dst[written:], c.data[s.readPos:c.frames])
			s.readPos += n
			written += n
			continue
		}

		// Active chunk exhausted.
		if c.eof {
			s.reachedEOF.Store(true)
			s.framesTotal.Add(int64(written))
			return written, true
		}

		idle := 1 - active
		other := &s.chunks[idle]
		if other.State() != StateReady {
			// Loader hasn't caught up: underrun, return what we have.
			s.framesTotal.Add(int64(written))
			return written, false
		}

		// Swap: the exhausted chunk becomes Empty for the loader to refill;
		// the Ready chunk becomes Playing (acquire).
		other.setState(StatePlaying)
		s.activeIdx.Store(int32(idle))
		s.readPos = 0
		c.setState(StateEmpty)
	}
	s.framesTotal.Add(int64(written))
	return written, false
}

// GetSample returns one sample via GetBlock; used by callers that pull one
// frame at a time (e.g. a sample-accurate mixer loop).
func (s *SourceStream) GetSample() (v float32, eof bool) {
	var buf [1]float32
	n, eof := s.GetBlock(buf[:])
	if n == 0 {
		return 0, eof
	}
	return buf[0], eof
}

// FramesDelivered reports total samples handed to the audio thread so far.
func (s *SourceStream) FramesDelivered() int64 { return s.framesTotal.Load() }

// Shutdown signals the background loader to stop claiming new chunks.
func (s *SourceStream) Shutdown() { s.shutdown.Store(true) }

func (s *SourceStream) shuttingDown() bool { return s.shutdown.Load() }
