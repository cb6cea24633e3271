package enginestate

import "testing"

func TestSetLoadTimeInfo(t *testing.T) {
	s := New()
	s.SetLoadTimeInfo(4, 8, 12.5)

	if got := s.NumSources(); got != 4 {
		t.Errorf("NumSources = %d, want 4", got)
	}
	if got := s.NumSpeakers(); got != 8 {
		t.Errorf("NumSpeakers = %d, want 8", got)
	}
	if got := s.SceneDurationSec(); got != 12.5 {
		t.Errorf("SceneDurationSec = %v, want 12.5", got)
	}
}

func TestFrameCounterAdvancesCumulatively(t *testing.T) {
	s := New()
	if got := s.FrameCounter(); got != 0 {
		t.Fatalf("initial FrameCounter = %d, want 0", got)
	}
	s.AdvanceFrameCounter(512)
	s.AdvanceFrameCounter(512)
	if got := s.FrameCounter(); got != 1024 {
		t.Errorf("FrameCounter = %d, want 1024", got)
	}
}

func TestPlaybackTimeSec(t *testing.T) {
	s := New()
	s.SetPlaybackTimeSec(3.25)
	if got := s.PlaybackTimeSec(); got != 3.25 {
		t.Errorf("PlaybackTimeSec = %v, want 3.25", got)
	}
}

func TestCPULoadClamps(t *testing.T) {
	s := New()
	s.SetCPULoad(-0.5)
	if got := s.CPULoad(); got != 0 {
		t.Errorf("CPULoad after negative set = %v, want 0", got)
	}
	s.SetCPULoad(1.5)
	if got := s.CPULoad(); got != 1 {
		t.Errorf("CPULoad after >1 set = %v, want 1", got)
	}
	s.SetCPULoad(0.42)
	if got := s.CPULoad(); got != 0.42 {
		t.Errorf("CPULoad = %v, want 0.42", got)
	}
}

func TestXrunCountIncrements(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		s.IncrementXrun()
	}
	if got := s.XrunCount(); got != 3 {
		t.Errorf("XrunCount = %d, want 3", got)
	}
}
