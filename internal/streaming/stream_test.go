package streaming

import "testing"

// sequenceSource produces consecutive integers (1, 2, 3, ...) as float32
// samples, optionally ending after totalFrames.
type sequenceSource struct {
	next        int
	totalFrames int // 0 means unbounded
}

func (s *sequenceSource) FillChunk(dst []float32) (int, bool, error) {
	for i := range dst {
		if s.totalFrames > 0 && s.next >= s.totalFrames {
			return i, true, nil
		}
		s.next++
		dst[i] = float32(s.next)
	}
	eof := s.totalFrames > 0 && s.next >= s.totalFrames
	return len(dst), eof, nil
}

func TestSourceStreamPrimeAndReadWithinFirstChunk(t *testing.T) {
	s := NewSourceStream(&sequenceSource{}, 8)
	if err := s.Prime(); err != nil {
		t.Fatalf("Prime: %v", err)
	}

	dst := make([]float32, 4)
	n, eof := s.GetBlock(dst)
	if n != 4 || eof {
		t.Fatalf("want 4 samples no eof, got n=%d eof=%v", n, eof)
	}
	want := []float32{1, 2, 3, 4}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("sample %d: want %v got %v", i, want[i], dst[i])
		}
	}
}

func TestSourceStreamSwapsChunksAcrossBoundary(t *testing.T) {
	s := NewSourceStream(&sequenceSource{}, 4)
	if err := s.Prime(); err != nil {
		t.Fatalf("Prime: %v", err)
	}

	dst := make([]float32, 6) // spans chunk 0 (4 samples) + chunk 1 (2 samples)
	n, eof := s.GetBlock(dst)
	if n != 6 || eof {
		t.Fatalf("want 6 samples no eof, got n=%d eof=%v", n, eof)
	}
	want := []float32{1, 2, 3, 4, 5, 6}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("sample %d: want %v got %v", i, want[i], dst[i])
		}
	}
}

func TestSourceStreamUnderrunWhenIdleNotReady(t *testing.T) {
	s := NewSourceStream(&sequenceSource{}, 4)
	// Manually prime only chunk 0, leaving chunk 1 Empty (simulating the
	// loader not having run yet).
	frames, eof, err := s.source.FillChunk(s.chunks[0].data)
	if err != nil {
		t.Fatalf("FillChunk: %v", err)
	}
	s.chunks[0].frames = frames
	s.chunks[0].eof = eof
	s.chunks[0].setState(StatePlaying)
	s.activeIdx.Store(0)

	dst := make([]float32, 6)
	n, eof := s.GetBlock(dst)
	if eof {
		t.Fatal("want no eof on underrun")
	}
	if n != 4 {
		t.Fatalf("want underrun to return only the 4 available samples, got %d", n)
	}
}

func TestSourceStreamLoaderTickFillsIdleChunk(t *testing.T) {
	s := NewSourceStream(&sequenceSource{}, 4)
	if err := s.Prime(); err != nil {
		t.Fatalf("Prime: %v", err)
	}
	// Read one sample past chunk 0 so GetBlock swaps to chunk 1 and chunk 0
	// becomes Empty, giving the loader work.
	dst := make([]float32, 5)
	s.GetBlock(dst)

	idle := s.idleIndex()
	if s.chunks[idle].State() != StateEmpty {
		t.Fatalf("want idle chunk Empty after drain+swap, got %v", s.chunks[idle].State())
	}
	if err := s.LoaderTick(); err != nil {
		t.Fatalf("LoaderTick: %v", err)
	}
	if s.chunks[idle].State() != StateReady {
		t.Fatalf("want idle chunk Ready after LoaderTick, got %v", s.chunks[idle].State())
	}
}

func TestSourceStreamReachesEOF(t *testing.T) {
	s := NewSourceStream(&sequenceSource{totalFrames: 5}, 4)
	if err := s.Prime(); err != nil {
		t.Fatalf("Prime: %v", err)
	}
	dst := make([]float32, 10)
	n, eof := s.GetBlock(dst)
	if n != 5 {
		t.Fatalf("want 5 samples total, got %d", n)
	}
	if !eof {
		t.Fatal("want eof true once source exhausted")
	}
}

func TestChannelIndexForKeyConventions(t *testing.T) {
	cases := []struct {
		key         string
		numChannels int
		wantIdx     int
		wantOK      bool
	}{
		{"1.1", 6, 0, true},
		{"2.1", 6, 1, true},
		{"LFE", 6, 3, true},
		{"LFE", 2, 0, false},
		{"bogus", 6, 0, false},
		{"7.1", 6, 0, false},
	}
	for _, c := range cases {
		idx, ok := ChannelIndexForKey(c.key, c.numChannels)
		if ok != c.wantOK || (ok && idx != c.wantIdx) {
			t.Errorf("ChannelIndexForKey(%q, %d) = (%d, %v), want (%d, %v)",
				c.key, c.numChannels, idx, ok, c.wantIdx, c.wantOK)
		}
	}
}
