package pose

import (
	"math"

	"github.com/Cult-DSP/sonopleth/internal/config"
	"github.com/Cult-DSP/sonopleth/internal/layout"
	"github.com/Cult-DSP/sonopleth/internal/scene"
)

// sourceCursor tracks one source's interpolation state across blocks. The
// segment index is a search hint: each call to position() resumes its
// linear scan from where the last call left off instead of re-searching
// from the start (spec.md §4.2
// "compute_positions": audio-thread-only, no allocation after load).
type sourceCursor struct {
	key         string
	keyframes   []scene.Keyframe
	segment     int
	lastGoodDir Vec3 // pre-seeded at load so degeneracy never allocates
	isLFE       bool
}

// Engine computes per-block poses for every source in a loaded scene. It
// is created once at setup; ComputePositions is the only method the audio
// thread calls.
type Engine struct {
	cursors []sourceCursor
	layout  *layout.SpeakerLayout
	cfg     *config.RealtimeConfig

	// poses is reused across calls to avoid the audio thread allocating.
	poses []Vec3
}

// NewEngine builds a pose Engine bound to a speaker layout (for elevation
// reshaping) and the runtime config (for the active ElevationMode).
func NewEngine(l *layout.SpeakerLayout, cfg *config.RealtimeConfig) *Engine {
	return &Engine{layout: l, cfg: cfg}
}

// LoadScene seeds one cursor per source, pre-computing each source's
// initial last-known-good direction from its first keyframe (or the
// forward default if the source has none) so the audio thread's
// degeneracy fallback never needs to synthesize one on the fly.
func (e *Engine) LoadScene(sc *scene.Scene) {
	e.cursors = make([]sourceCursor, len(sc.Sources))
	e.poses = make([]Vec3, len(sc.Sources))

	for i, src := range sc.Sources {
		c := sourceCursor{
			key:       src.Key,
			keyframes: src.Keyframes,
			isLFE:     src.IsLFE(),
			lastGoodDir: Vec3{0, 1, 0},
		}
		if len(src.Keyframes) > 0 {
			kf := src.Keyframes[0]
			c.lastGoodDir = SafeNormalize(Vec3{kf.X, kf.Y, kf.Z}, Vec3{0, 1, 0})
		}
		e.cursors[i] = c
	}
}

// ComputePositions advances every source's cursor to tSec and returns the
// reshaped, DBAP-ready direction for each. Called once per block on the
// audio thread; it never allocates (the returned slice is the Engine's
// own reused buffer, valid until the next call).
func (e *Engine) ComputePositions(tSec float64) []Vec3 {
	mode := e.cfg.ElevationMode()
	minEl, maxEl := e.layout.ElevationRangeDeg()
	r := e.layout.MedianRadiusM()

	for i := range e.cursors {
		c := &e.cursors[i]
		if c.isLFE {
			e.poses[i] = Vec3{}
			continue
		}
		dir := c.position(tSec)
		if e.layout.Is2D() {
			// spec.md §4.2: 2-D layouts skip the elevation switch entirely
			// and flatten straight to the horizontal plane.
			dir.Z = 0
			dir = SafeNormalize(dir, Vec3{0, 1, 0})
		} else {
			dir = reshapeElevation(dir, mode, minEl, maxEl)
		}
		e.poses[i] = dbapTransform(dir, float32(r))
	}
	return e.poses
}

// GetPoses returns the poses computed by the most recent ComputePositions
// call without recomputing anything.
func (e *Engine) GetPoses() []Vec3 { return e.poses }

// position interpolates c's direction at tSec, moving the segment cursor
// forward from its previous position, or back if tSec lies before the
// current segment (spec.md §4.2).
func (c *sourceCursor) position(tSec float64) Vec3 {
	n := len(c.keyframes)
	if n == 0 {
		return c.lastGoodDir
	}
	if n == 1 || tSec <= c.keyframes[0].TimeSec {
		dir := SafeNormalize(Vec3{c.keyframes[0].X, c.keyframes[0].Y, c.keyframes[0].Z}, c.lastGoodDir)
		c.lastGoodDir = dir
		return dir
	}
	if tSec >= c.keyframes[n-1].TimeSec {
		last := c.keyframes[n-1]
		dir := SafeNormalize(Vec3{last.X, last.Y, last.Z}, c.lastGoodDir)
		c.lastGoodDir = dir
		return dir
	}

	if c.segment >= n-1 {
		c.segment = 0
	}
	for c.segment < n-2 && c.keyframes[c.segment+1].TimeSec < tSec {
		c.segment++
	}
	for c.segment > 0 && c.keyframes[c.segment].TimeSec > tSec {
		c.segment--
	}

	a, b := c.keyframes[c.segment], c.keyframes[c.segment+1]
	span := b.TimeSec - a.TimeSec
	u := float32(0)
	if span > 0 {
		u = float32((tSec - a.TimeSec) / span)
	}

	dirA := SafeNormalize(Vec3{a.X, a.Y, a.Z}, c.lastGoodDir)
	dirB := SafeNormalize(Vec3{b.X, b.Y, b.Z}, c.lastGoodDir)
	dir := Slerp(dirA, dirB, u)
	c.lastGoodDir = dir
	return dir
}

// reshapeElevation applies the active ElevationMode to fit a direction's
// elevation angle within the speaker layout's elevation span (spec.md
// §4.2 "Layout reshaping of elevation").
func reshapeElevation(dir Vec3, mode config.ElevationMode, minElDeg, maxElDeg float64) Vec3 {
	elDeg, azRad := toAzEl(dir)

	switch mode {
	case config.ElevationClamp:
		if elDeg < minElDeg {
			elDeg = minElDeg
		} else if elDeg > maxElDeg {
			elDeg = maxElDeg
		}
	case config.ElevationRescaleAtmosUp:
		// Map the source's upward range [0, 90] linearly onto [minElDeg,
		// maxElDeg]; the input is clamped to [0, 90] first, so anything at
		// or below the horizon lands on minElDeg.
		e := elDeg
		if e < 0 {
			e = 0
		} else if e > 90 {
			e = 90
		}
		elDeg = minElDeg + e/90*(maxElDeg-minElDeg)
	case config.ElevationRescaleFullSphere:
		// Map the source's full [-90, 90] range onto [minElDeg, maxElDeg].
		if maxElDeg > minElDeg {
			t := (elDeg + 90) / 180
			elDeg = minElDeg + t*(maxElDeg-minElDeg)
		}
	}

	return fromAzEl(azRad, elDeg)
}

// toAzEl decomposes a pose-space unit direction into azimuth and elevation
// per spec.md §4.2: az = atan2(d.x, d.y) about the forward axis Y, el =
// asin(d.z) about the up axis Z.
func toAzEl(dir Vec3) (elDeg float64, azRad float64) {
	z := float64(dir.Z)
	if z > 1 {
		z = 1
	} else if z < -1 {
		z = -1
	}
	elDeg = math.Asin(z) * 180 / math.Pi
	azRad = math.Atan2(float64(dir.X), float64(dir.Y))
	return elDeg, azRad
}

// fromAzEl recomposes a unit direction per spec.md §4.2:
// (sin(az)cos(el), cos(az)cos(el), sin(el)).
func fromAzEl(azRad, elDeg float64) Vec3 {
	elRad := elDeg * math.Pi / 180
	cosEl := math.Cos(elRad)
	return Vec3{
		X: float32(math.Sin(azRad) * cosEl),
		Y: float32(math.Cos(azRad) * cosEl),
		Z: float32(math.Sin(elRad)),
	}
}

// dbapTransform converts a pose-space unit direction and the layout's
// median radius into the AlloLib-style coordinate a DBAP weight
// computation expects: (x*R, z*R, -y*R).
func dbapTransform(dir Vec3, r float32) Vec3 {
	return Vec3{X: dir.X * r, Y: dir.Z * r, Z: -dir.Y * r}
}
