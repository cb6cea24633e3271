// Package spatial implements the DBAP gain computation, LFE routing, and
// output remap from spec.md §4.3.
package spatial

import (
	"math"

	"github.com/Cult-DSP/sonopleth/internal/layout"
	"github.com/Cult-DSP/sonopleth/internal/pose"
)

// speakerDBAPPosition converts a speaker's azimuth/elevation/radius into
// the same DBAP-space coordinate frame pose.dbapTransform produces for
// sources. Per spec.md §4.2's convention (az = atan2(d.x, d.y) about the
// forward axis Y, el = asin(d.z) about the up axis Z), the pose-space
// direction is (sin(az)cos(el), cos(az)cos(el), sin(el)), then transformed
// the same way as a source pose: (x*r, z*r, -y*r).
func speakerDBAPPosition(s layout.Speaker) pose.Vec3 {
	azRad := s.AzimuthDeg * math.Pi / 180
	elRad := s.ElevationDeg * math.Pi / 180
	cosEl := math.Cos(elRad)
	dir := pose.Vec3{
		X: float32(math.Sin(azRad) * cosEl),
		Y: float32(math.Cos(azRad) * cosEl),
		Z: float32(math.Sin(elRad)),
	}
	r := float32(s.RadiusM)
	return pose.Vec3{X: dir.X * r, Y: dir.Z * r, Z: -dir.Y * r}
}

func distance(a, b pose.Vec3) float32 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}

// minDBAPDistance floors the distance used in the 1/d^phi weight so a
// source sitting exactly on a speaker never produces a divide-by-zero or
// unbounded weight.
const minDBAPDistance = 1e-6

// dbapWeights computes the normalized per-speaker gain for one source
// position, per spec.md §4.3: w_i = 1/d_i^phi, normalized so sum(w_i^2)=1.
// dst must be len(speakerPos); it is overwritten and returned to avoid
// allocating on the audio thread.
func dbapWeights(dst []float32, speakerPos []pose.Vec3, sourcePos pose.Vec3, phi float32) []float32 {
	var sumSq float32
	for i, sp := range speakerPos {
		d := distance(sourcePos, sp)
		if d < minDBAPDistance {
			d = minDBAPDistance
		}
		w := float32(math.Pow(float64(d), -float64(phi)))
		dst[i] = w
		sumSq += w * w
	}
	if sumSq <= 0 {
		return dst
	}
	norm := float32(1 / math.Sqrt(float64(sumSq)))
	for i := range dst {
		dst[i] *= norm
	}
	return dst
}

// focusCompensationMinGain and focusCompensationMaxGain bound the
// automatic focus compensation factor to a +-10dB range (spec.md §4.3
// "compute_focus_compensation").
const (
	focusCompensationMinGain = 0.316
	focusCompensationMaxGain = 3.162
)

// referenceFocus is rendered alongside the current focus as the
// uncompensated baseline (every speaker weighted equally).
const referenceFocus = 0.0

// ComputeFocusCompensation derives the gain that keeps a single
// straight-ahead source at roughly constant loudness as dbap_focus
// changes, by comparing the raw (pre-normalization) power of a unit
// impulse at the canonical front reference position against the same
// impulse rendered at referenceFocus. Setup-thread-only, called while the
// stream is stopped (spec.md §4.3).
func ComputeFocusCompensation(l *layout.SpeakerLayout, phi float32) float32 {
	speakerPos := make([]pose.Vec3, 0, len(l.Speakers))
	for _, s := range l.Speakers {
		if s.Subwoofer {
			continue
		}
		speakerPos = append(speakerPos, speakerDBAPPosition(s))
	}
	if len(speakerPos) == 0 {
		return 1.0
	}

	r := float32(l.MedianRadiusM())
	// spec.md §4.3's canonical front reference direction is straight ahead
	// (az=0, el=0), i.e. pose-space (0,1,0); transformed into the same
	// DBAP-space frame speakerDBAPPosition uses ((x*r, z*r, -y*r)) that is
	// (0, 0, -r), so distances to it are comparable to the speaker
	// positions above.
	impulse := pose.Vec3{X: 0, Y: 0, Z: -r}

	rawPower := func(focus float32) float32 {
		var sumSq float32
		for _, sp := range speakerPos {
			d := distance(impulse, sp)
			if d < minDBAPDistance {
				d = minDBAPDistance
			}
			w := float32(math.Pow(float64(d), -float64(focus)))
			sumSq += w * w
		}
		return sumSq
	}

	refPower := rawPower(referenceFocus)
	curPower := rawPower(phi)
	if curPower <= 0 || refPower <= 0 {
		return 1.0
	}

	gain := float32(math.Sqrt(float64(refPower / curPower)))
	if gain < focusCompensationMinGain {
		gain = focusCompensationMinGain
	} else if gain > focusCompensationMaxGain {
		gain = focusCompensationMaxGain
	}
	return gain
}
