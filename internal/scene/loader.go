package scene

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/Cult-DSP/sonopleth/internal/engineerr"
)

// jsonDoc mirrors the Scene JSON (v0.5+) document from spec.md §6. Field
// names follow the wire format exactly; Go-side naming is adapted in the
// rest of the package.
type jsonDoc struct {
	Version    string      `json:"version"`
	SampleRate float64     `json:"sampleRate"`
	TimeUnit   string      `json:"timeUnit"`
	Frames     []jsonFrame `json:"frames"`
}

type jsonFrame struct {
	Time  float64    `json:"time"`
	Nodes []jsonNode `json:"nodes"`
}

type jsonNode struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Cart []float32 `json:"cart"`
}

const (
	nodeTypeAudioObject   = "audio_object"
	nodeTypeDirectSpeaker = "direct_speaker"
	nodeTypeLFE           = "LFE"
)

// forwardDirection is the repair target for non-finite or zero-magnitude
// coordinates, spec.md §4.2 "Degeneracy".
var forwardDirection = Keyframe{X: 0, Y: 1, Z: 0}

// Load reads a Scene JSON document from path per spec.md §6.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, engineerr.New(engineerr.KindFileOpen, "scene", path, err)
	}
	defer f.Close()

	var doc jsonDoc
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, engineerr.New(engineerr.KindMalformedJSON, "scene", path, err)
	}

	toSeconds, err := timeUnitConverter(doc.TimeUnit, doc.SampleRate)
	if err != nil {
		return nil, engineerr.New(engineerr.KindMalformedJSON, "scene", path, err)
	}

	bySource := make(map[string][]Keyframe)
	order := make([]string, 0)

	for _, frame := range doc.Frames {
		t := toSeconds(frame.Time)
		for _, node := range frame.Nodes {
			switch node.Type {
			case nodeTypeAudioObject, nodeTypeDirectSpeaker:
				kf, ok := cartKeyframe(t, node.Cart)
				if !ok {
					kf = Keyframe{TimeSec: t, X: forwardDirection.X, Y: forwardDirection.Y, Z: forwardDirection.Z}
				}
				if _, seen := bySource[node.ID]; !seen {
					order = append(order, node.ID)
				}
				bySource[node.ID] = append(bySource[node.ID], kf)
			case nodeTypeLFE:
				if _, seen := bySource[ReservedLFEKey]; !seen {
					order = append(order, ReservedLFEKey)
				}
				bySource[ReservedLFEKey] = append(bySource[ReservedLFEKey], Keyframe{TimeSec: t})
			default:
				// Unrecognised node types are ignored rather than failing the
				// whole scene, matching spec.md §6's permissive node handling.
			}
		}
	}

	sources := make([]Source, 0, len(order))
	duration := 0.0
	for _, key := range order {
		kf := normalizeKeyframes(bySource[key])
		if n := len(kf); n > 0 && kf[n-1].TimeSec > duration {
			duration = kf[n-1].TimeSec
		}
		sources = append(sources, Source{Key: key, Keyframes: kf})
	}

	return &Scene{Sources: sources, DurationSec: duration}, nil
}

// cartKeyframe converts a "cart": [x,y,z] node into a Keyframe. Returns
// ok=false if the cart is missing, the wrong length, non-finite or of zero
// magnitude, signalling the caller to substitute the forward direction
// (spec.md §4.2 "Degeneracy").
func cartKeyframe(t float64, cart []float32) (Keyframe, bool) {
	if len(cart) != 3 {
		return Keyframe{}, false
	}
	x, y, z := cart[0], cart[1], cart[2]
	if !isFinite(x) || !isFinite(y) || !isFinite(z) {
		return Keyframe{}, false
	}
	mag := math.Sqrt(float64(x)*float64(x) + float64(y)*float64(y) + float64(z)*float64(z))
	if mag == 0 {
		return Keyframe{}, false
	}
	return Keyframe{TimeSec: t, X: x, Y: y, Z: z}, true
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// timeUnitConverter returns a function mapping a raw frame time to seconds,
// per spec.md §6's "timeUnit" field (seconds|s, samples|samp,
// milliseconds|ms).
func timeUnitConverter(unit string, sampleRate float64) (func(float64) float64, error) {
	switch strings.ToLower(unit) {
	case "", "seconds", "s":
		return func(t float64) float64 { return t }, nil
	case "samples", "samp":
		if sampleRate <= 0 {
			return nil, fmt.Errorf("timeUnit %q requires a positive sampleRate", unit)
		}
		return func(t float64) float64 { return t / sampleRate }, nil
	case "milliseconds", "ms":
		return func(t float64) float64 { return t / 1000 }, nil
	default:
		return nil, fmt.Errorf("unrecognised timeUnit %q", unit)
	}
}
