// Package layout holds the speaker layout model from spec.md §3
// ("SpeakerLayout") and the output channel remap from spec.md §6
// ("Output remap CSV").
package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/Cult-DSP/sonopleth/internal/engineerr"
)

// Speaker is one loudspeaker position in a layout, in degrees/metres.
type Speaker struct {
	ID           string
	AzimuthDeg   float64
	ElevationDeg float64
	RadiusM      float64
	// DeviceChannel is this speaker's index into the device's output
	// channel array before any remap is applied.
	DeviceChannel int
	// Subwoofer marks a speaker whose device channel carries LFE content
	// directly rather than panned content (spec.md §3 "SpeakerLayout").
	Subwoofer bool
}

// SpeakerLayout is immutable once loaded. It derives the aggregate
// statistics spec.md §4.2 and §4.3 need: number of speakers, median
// radius, elevation span, and whether the layout is effectively 2D.
type SpeakerLayout struct {
	Speakers []Speaker

	numSpeakers     int
	medianRadiusM   float64
	minElevationDeg float64
	maxElevationDeg float64
	is2D            bool

	subwooferChannels map[int]struct{}
}

// is2DElevationSpanDeg is the elevation span below which a layout is
// treated as effectively 2D (spec.md §3 "is_2d").
const is2DElevationSpanDeg = 3.0

// NumSpeakers returns the number of panning-eligible speakers (subwoofers
// excluded, since they never receive a DBAP weight).
func (l *SpeakerLayout) NumSpeakers() int { return l.numSpeakers }

func (l *SpeakerLayout) MedianRadiusM() float64 { return l.medianRadiusM }

func (l *SpeakerLayout) ElevationRangeDeg() (min, max float64) {
	return l.minElevationDeg, l.maxElevationDeg
}

func (l *SpeakerLayout) Is2D() bool { return l.is2D }

// IsSubwooferChannel reports whether a device channel index is routed
// directly from the LFE bus rather than panned.
func (l *SpeakerLayout) IsSubwooferChannel(deviceChannel int) bool {
	_, ok := l.subwooferChannels[deviceChannel]
	return ok
}

type jsonLayout struct {
	Speakers []jsonSpeaker `json:"speakers"`
}

type jsonSpeaker struct {
	ID            string  `json:"id"`
	AzimuthDeg    float64 `json:"azimuthDeg"`
	ElevationDeg  float64 `json:"elevationDeg"`
	RadiusM       float64 `json:"radiusM"`
	DeviceChannel int     `json:"deviceChannel"`
	Subwoofer     bool    `json:"subwoofer"`
}

// Load reads a SpeakerLayout JSON document and derives its aggregate
// statistics.
func Load(path string) (*SpeakerLayout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, engineerr.New(engineerr.KindFileOpen, "layout", path, err)
	}
	defer f.Close()

	var doc jsonLayout
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, engineerr.New(engineerr.KindMalformedJSON, "layout", path, err)
	}
	if len(doc.Speakers) == 0 {
		return nil, engineerr.New(engineerr.KindInvalidLayout, "layout", path, fmt.Errorf("layout has no speakers"))
	}

	speakers := make([]Speaker, 0, len(doc.Speakers))
	subs := make(map[int]struct{})
	radii := make([]float64, 0, len(doc.Speakers))
	minEl, maxEl := math.Inf(1), math.Inf(-1)
	panningCount := 0

	for _, s := range doc.Speakers {
		sp := Speaker{
			ID:            s.ID,
			AzimuthDeg:    s.AzimuthDeg,
			ElevationDeg:  s.ElevationDeg,
			RadiusM:       s.RadiusM,
			DeviceChannel: s.DeviceChannel,
			Subwoofer:     s.Subwoofer,
		}
		speakers = append(speakers, sp)
		if sp.Subwoofer {
			subs[sp.DeviceChannel] = struct{}{}
			continue
		}
		panningCount++
		radii = append(radii, sp.RadiusM)
		if sp.ElevationDeg < minEl {
			minEl = sp.ElevationDeg
		}
		if sp.ElevationDeg > maxEl {
			maxEl = sp.ElevationDeg
		}
	}

	if panningCount == 0 {
		return nil, engineerr.New(engineerr.KindInvalidLayout, "layout", path, fmt.Errorf("layout has no panning-eligible speakers"))
	}

	sort.Float64s(radii)
	median := radii[len(radii)/2]
	if len(radii)%2 == 0 {
		median = (radii[len(radii)/2-1] + radii[len(radii)/2]) / 2
	}

	return &SpeakerLayout{
		Speakers:          speakers,
		numSpeakers:       panningCount,
		medianRadiusM:     median,
		minElevationDeg:   minEl,
		maxElevationDeg:   maxEl,
		is2D:              (maxEl - minEl) < is2DElevationSpanDeg,
		subwooferChannels: subs,
	}, nil
}
