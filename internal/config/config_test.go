package config

import "testing"

func TestNewAppliesCLIDefaults(t *testing.T) {
	c := New(48000, 512, 8)

	if got := c.MasterGain(); got != 0.5 {
		t.Errorf("MasterGain = %v, want 0.5", got)
	}
	if got := c.LoudspeakerMix(); got != 1.0 {
		t.Errorf("LoudspeakerMix = %v, want 1.0", got)
	}
	if got := c.SubMix(); got != 1.0 {
		t.Errorf("SubMix = %v, want 1.0", got)
	}
	if got := c.DBAPFocus(); got != 1.5 {
		t.Errorf("DBAPFocus = %v, want 1.5", got)
	}
	if got := c.ElevationMode(); got != ElevationClamp {
		t.Errorf("ElevationMode = %v, want ElevationClamp", got)
	}
	if !c.Playing() {
		t.Error("Playing() = false, want true immediately after New")
	}
	if c.Paused() || c.ShouldExit() || c.AutoCompensation() {
		t.Error("Paused/ShouldExit/AutoCompensation should default false")
	}
}

func TestFloatAtomicsRoundTrip(t *testing.T) {
	c := New(48000, 512, 2)

	c.SetMasterGain(0.707)
	if got := c.MasterGain(); got != 0.707 {
		t.Errorf("MasterGain = %v, want 0.707", got)
	}

	c.SetDBAPFocus(2.75)
	if got := c.DBAPFocus(); got != 2.75 {
		t.Errorf("DBAPFocus = %v, want 2.75", got)
	}
}

func TestBoolAtomicsRoundTrip(t *testing.T) {
	c := New(48000, 512, 2)

	c.SetPaused(true)
	if !c.Paused() {
		t.Error("Paused() = false after SetPaused(true)")
	}
	c.SetPlaying(false)
	if c.Playing() {
		t.Error("Playing() = true after SetPlaying(false)")
	}
	c.SetShouldExit(true)
	if !c.ShouldExit() {
		t.Error("ShouldExit() = false after SetShouldExit(true)")
	}
}

func TestElevationModeRoundTrip(t *testing.T) {
	c := New(48000, 512, 2)

	for _, m := range []ElevationMode{ElevationClamp, ElevationRescaleAtmosUp, ElevationRescaleFullSphere} {
		c.SetElevationMode(m)
		if got := c.ElevationMode(); got != m {
			t.Errorf("ElevationMode() = %v, want %v", got, m)
		}
	}
}

func TestElevationModeString(t *testing.T) {
	cases := map[ElevationMode]string{
		ElevationClamp:             "clamp",
		ElevationRescaleAtmosUp:    "atmos-up",
		ElevationRescaleFullSphere: "full-sphere",
		ElevationMode(99):          "unknown",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Errorf("ElevationMode(%d).String() = %q, want %q", mode, got, want)
		}
	}
}

func TestDBToLinear(t *testing.T) {
	cases := []struct {
		db   float64
		want float32
	}{
		{0, 1.0},
		{-20, 0.1},
		{20, 10.0},
	}
	for _, c := range cases {
		got := DBToLinear(c.db)
		diff := got - c.want
		if diff < 0 {
			diff = -diff
		}
		if diff > 1e-4 {
			t.Errorf("DBToLinear(%v) = %v, want %v", c.db, got, c.want)
		}
	}
}
