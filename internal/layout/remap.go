package layout

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Cult-DSP/sonopleth/internal/engineerr"
)

// RemapPair maps one rendered layout channel to one physical device
// channel (spec.md §6 "Output remap CSV").
type RemapPair struct {
	LayoutChannel int
	DeviceChannel int
}

// OutputRemap is immutable once loaded. Identity is true when every pair
// maps a channel to itself, letting render_block take a copy fast path
// (spec.md §4.3 "Remap").
type OutputRemap struct {
	Pairs    []RemapPair
	Identity bool
}

// NewIdentityRemap builds the implicit remap used when no CSV is supplied:
// layout channel i maps straight to device channel i.
func NewIdentityRemap(numChannels int) *OutputRemap {
	pairs := make([]RemapPair, numChannels)
	for i := range pairs {
		pairs[i] = RemapPair{LayoutChannel: i, DeviceChannel: i}
	}
	return &OutputRemap{Pairs: pairs, Identity: true}
}

// LoadRemapCSV reads a two-column CSV (case-insensitive "layout","device"
// header) mapping layout channels to device channels. Rows that are blank,
// "#"-commented, unparseable, or out of range are dropped with a single
// summary count rather than failing the load (spec.md §6).
func LoadRemapCSV(path string, numLayoutChannels, numDeviceChannels int) (*OutputRemap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, engineerr.New(engineerr.KindFileOpen, "remap", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	layoutCol, deviceCol := 0, 1
	headerSeen := false
	pairs := make([]RemapPair, 0)
	dropped := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		if !headerSeen {
			if idx := indexOfFold(fields, "layout"); idx >= 0 {
				layoutCol = idx
				deviceCol = indexOfFold(fields, "device")
				headerSeen = true
				continue
			}
			headerSeen = true // no recognisable header: treat this line as data
		}

		if layoutCol >= len(fields) || deviceCol >= len(fields) || deviceCol < 0 {
			dropped++
			continue
		}
		lc, err1 := strconv.Atoi(fields[layoutCol])
		dc, err2 := strconv.Atoi(fields[deviceCol])
		if err1 != nil || err2 != nil {
			dropped++
			continue
		}
		if lc < 0 || lc >= numLayoutChannels || dc < 0 || dc >= numDeviceChannels {
			dropped++
			continue
		}
		pairs = append(pairs, RemapPair{LayoutChannel: lc, DeviceChannel: dc})
	}
	if err := scanner.Err(); err != nil {
		return nil, engineerr.New(engineerr.KindFileOpen, "remap", path, err)
	}
	if len(pairs) == 0 {
		return nil, engineerr.New(engineerr.KindInvalidRemap, "remap", path, fmt.Errorf("no usable rows (dropped %d)", dropped))
	}
	if dropped > 0 {
		fmt.Printf("remap: %s: dropped %d unusable row(s)\n", path, dropped)
	}

	return &OutputRemap{Pairs: pairs, Identity: isIdentityBijection(pairs, numLayoutChannels)}, nil
}

func isIdentityBijection(pairs []RemapPair, numChannels int) bool {
	if len(pairs) != numChannels {
		return false
	}
	seen := make(map[int]bool, numChannels)
	for _, p := range pairs {
		if p.LayoutChannel != p.DeviceChannel {
			return false
		}
		if seen[p.LayoutChannel] {
			return false
		}
		seen[p.LayoutChannel] = true
	}
	return len(seen) == numChannels
}

func indexOfFold(fields []string, want string) int {
	for i, f := range fields {
		if strings.EqualFold(f, want) {
			return i
		}
	}
	return -1
}
