package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLayoutFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp layout: %v", err)
	}
	return path
}

func TestLoadLayoutDerivesStats(t *testing.T) {
	path := writeLayoutFile(t, `{
		"speakers": [
			{"id": "L", "azimuthDeg": -30, "elevationDeg": 0, "radiusM": 2.0, "deviceChannel": 0},
			{"id": "R", "azimuthDeg": 30, "elevationDeg": 0, "radiusM": 2.0, "deviceChannel": 1},
			{"id": "C", "azimuthDeg": 0, "elevationDeg": 0, "radiusM": 2.2, "deviceChannel": 2},
			{"id": "Sub", "azimuthDeg": 0, "elevationDeg": 0, "radiusM": 2.0, "deviceChannel": 3, "subwoofer": true}
		]
	}`)

	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.NumSpeakers() != 3 {
		t.Fatalf("want 3 panning speakers, got %d", l.NumSpeakers())
	}
	if !l.Is2D() {
		t.Fatal("want 2D layout (elevation span 0)")
	}
	if !l.IsSubwooferChannel(3) {
		t.Fatal("want device channel 3 marked subwoofer")
	}
	if l.IsSubwooferChannel(0) {
		t.Fatal("channel 0 should not be a subwoofer channel")
	}
	if l.MedianRadiusM() != 2.0 {
		t.Fatalf("want median radius 2.0, got %v", l.MedianRadiusM())
	}
}

func TestLoadLayoutNoSpeakers(t *testing.T) {
	path := writeLayoutFile(t, `{"speakers": []}`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for empty speaker list")
	}
}

func TestLoadLayoutAllSubwoofers(t *testing.T) {
	path := writeLayoutFile(t, `{
		"speakers": [{"id": "Sub", "deviceChannel": 0, "subwoofer": true}]
	}`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error when no panning-eligible speaker exists")
	}
}

func TestLoad3DLayoutElevationSpan(t *testing.T) {
	path := writeLayoutFile(t, `{
		"speakers": [
			{"id": "L", "azimuthDeg": -30, "elevationDeg": 0, "radiusM": 2.0, "deviceChannel": 0},
			{"id": "Ltop", "azimuthDeg": -30, "elevationDeg": 45, "radiusM": 2.0, "deviceChannel": 1}
		]
	}`)
	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.Is2D() {
		t.Fatal("want 3D layout given 45deg elevation span")
	}
	min, max := l.ElevationRangeDeg()
	if min != 0 || max != 45 {
		t.Fatalf("want [0,45], got [%v,%v]", min, max)
	}
}
