// Command sonopleth-realtime renders a keyframed spatial audio scene onto
// a speaker layout in real time, using distance-based amplitude panning.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/Cult-DSP/sonopleth/internal/backend"
	"github.com/Cult-DSP/sonopleth/internal/config"
	"github.com/Cult-DSP/sonopleth/internal/enginestate"
	"github.com/Cult-DSP/sonopleth/internal/engineerr"
	"github.com/Cult-DSP/sonopleth/internal/layout"
	"github.com/Cult-DSP/sonopleth/internal/pose"
	"github.com/Cult-DSP/sonopleth/internal/scene"
	"github.com/Cult-DSP/sonopleth/internal/spatial"
	"github.com/Cult-DSP/sonopleth/internal/streaming"
)

// Exit codes per spec.md §6: 0 success, 1 argument error, >=2 setup
// failure (the setup error's engineerr.Kind picks the code).
const (
	exitOK            = 0
	exitArgError      = 1
	exitSetupFailure  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cliArgs struct {
	layoutPath      string
	scenePath       string
	sourcesDir      string
	admPath         string
	sampleRate      int
	bufferSize      int
	gain            float64
	loudspeakerMixDB float64
	subMixDB        float64
	focus           float64
	autoComp        bool
	remapPath       string
	elevationMode   string
	help            bool
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("sonopleth-realtime", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var a cliArgs
	fs.StringVar(&a.layoutPath, "layout", "", "speaker layout JSON path (required)")
	fs.StringVar(&a.scenePath, "scene", "", "scene JSON path (required)")
	fs.StringVar(&a.sourcesDir, "sources", "", "directory of per-source mono WAV files")
	fs.StringVar(&a.admPath, "adm", "", "multichannel (ADM) WAV path, alias --multichannel")
	fs.StringVar(&a.admPath, "multichannel", "", "multichannel (ADM) WAV path")
	fs.IntVar(&a.sampleRate, "samplerate", 48000, "engine sample rate in Hz")
	fs.IntVar(&a.bufferSize, "buffersize", 512, "audio block size in frames")
	fs.Float64Var(&a.gain, "gain", 0.5, "master gain, linear 0..1")
	fs.Float64Var(&a.loudspeakerMixDB, "loudspeaker-mix-db", 0, "loudspeaker bus trim in dB")
	fs.Float64Var(&a.subMixDB, "sub-mix-db", 0, "subwoofer bus trim in dB")
	fs.Float64Var(&a.focus, "focus", 1.5, "DBAP focus exponent, 0.2..5.0")
	fs.BoolVar(&a.autoComp, "auto-compensation", false, "auto-compensate loudness for the chosen focus")
	fs.StringVar(&a.remapPath, "remap", "", "output channel remap CSV path")
	fs.StringVar(&a.elevationMode, "elevation-mode", "clamp", "clamp|atmos-up|full-sphere")
	fs.BoolVar(&a.help, "help", false, "show usage")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: sonopleth-realtime --layout <file> --scene <file> (--sources <dir> | --adm <file>) [options]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitArgError
	}
	if a.help {
		fs.Usage()
		return exitOK
	}

	if err := validateArgs(&a); err != nil {
		fmt.Fprintln(stderr, "argument error:", err)
		return exitArgError
	}

	printBanner(stdout)

	code, err := launch(a, stdout)
	if err != nil {
		fmt.Fprintln(stderr, "sonopleth-realtime:", err)
		return code
	}
	return exitOK
}

func validateArgs(a *cliArgs) error {
	if a.layoutPath == "" {
		return fmt.Errorf("--layout is required")
	}
	if a.scenePath == "" {
		return fmt.Errorf("--scene is required")
	}
	if (a.sourcesDir == "") == (a.admPath == "") {
		return fmt.Errorf("exactly one of --sources or --adm/--multichannel is required")
	}
	if a.focus < 0.2 || a.focus > 5.0 {
		return fmt.Errorf("--focus must be in [0.2, 5.0], got %v", a.focus)
	}
	switch a.elevationMode {
	case "clamp", "atmos-up", "full-sphere":
	default:
		return fmt.Errorf("--elevation-mode must be clamp|atmos-up|full-sphere, got %q", a.elevationMode)
	}
	if a.sampleRate <= 0 {
		return fmt.Errorf("--samplerate must be positive")
	}
	if a.bufferSize <= 0 {
		return fmt.Errorf("--buffersize must be positive")
	}
	return nil
}

func elevationModeFromFlag(s string) config.ElevationMode {
	switch s {
	case "atmos-up":
		return config.ElevationRescaleAtmosUp
	case "full-sphere":
		return config.ElevationRescaleFullSphere
	default:
		return config.ElevationClamp
	}
}

// launch performs setup (errors here map to exitSetupFailure and above)
// and then runs the engine until EOF or a clean SIGINT-driven stop.
func launch(a cliArgs, stdout *os.File) (exitCode int, err error) {
	lay, err := layout.Load(a.layoutPath)
	if err != nil {
		return setupExitCode(err), err
	}

	sc, err := scene.Load(a.scenePath)
	if err != nil {
		return setupExitCode(err), err
	}

	outputChannels := maxDeviceChannel(lay) + 1

	var remap *layout.OutputRemap
	if a.remapPath != "" {
		remap, err = layout.LoadRemapCSV(a.remapPath, outputChannels, outputChannels)
		if err != nil {
			return setupExitCode(err), err
		}
	} else {
		remap = layout.NewIdentityRemap(outputChannels)
	}

	cfg := config.New(a.sampleRate, a.bufferSize, outputChannels)
	cfg.SetMasterGain(float32(a.gain))
	cfg.SetLoudspeakerMix(config.DBToLinear(a.loudspeakerMixDB))
	cfg.SetSubMix(config.DBToLinear(a.subMixDB))
	cfg.SetDBAPFocus(float32(a.focus))
	cfg.SetAutoCompensation(a.autoComp)
	cfg.SetElevationMode(elevationModeFromFlag(a.elevationMode))

	state := enginestate.New()
	state.SetLoadTimeInfo(len(sc.Sources), lay.NumSpeakers(), sc.DurationSec)

	streams, isLFE, closers, err := openSourceStreams(a, sc, cfg)
	defer func() {
		for _, c := range closers {
			c()
		}
	}()
	if err != nil {
		return setupExitCode(err), err
	}

	poseEngine := pose.NewEngine(lay, cfg)
	poseEngine.LoadScene(sc)

	spatialEngine := spatial.Init(lay, cfg, a.bufferSize)
	spatialEngine.SetRemap(remap)
	if a.autoComp {
		spatialEngine.SetFocusCompensation(spatial.ComputeFocusCompensation(lay, float32(a.focus)))
	}

	driver := backend.NewDriver(cfg, state, poseEngine, spatialEngine, streams, isLFE, a.bufferSize)

	loaderCtx, cancelLoader := context.WithCancel(context.Background())
	defer cancelLoader()
	loader := streaming.StartLoader(loaderCtx, streams)
	defer loader.Stop()

	device, err := backend.NewOtoDevice(driver, a.sampleRate, outputChannels, a.bufferSize)
	if err != nil {
		return exitSetupFailure, err
	}
	device.Start()
	defer device.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(stdout, "sonopleth-realtime: rendering %d source(s) onto %d speaker(s)\n", len(sc.Sources), lay.NumSpeakers())

	for cfg.Playing() && !cfg.ShouldExit() {
		select {
		case <-ctx.Done():
			cfg.SetShouldExit(true)
		default:
		}
	}

	return exitOK, nil
}

func maxDeviceChannel(l *layout.SpeakerLayout) int {
	max := 0
	for _, s := range l.Speakers {
		if s.DeviceChannel > max {
			max = s.DeviceChannel
		}
	}
	return max
}

func setupExitCode(err error) int {
	var se *engineerr.SetupError
	if !errors.As(err, &se) {
		return exitSetupFailure
	}
	return exitSetupFailure + int(se.Kind)
}

func printBanner(stdout *os.File) {
	useColor := term.IsTerminal(int(stdout.Fd()))
	if useColor {
		fmt.Fprintln(stdout, "\x1b[36msonopleth\x1b[0m realtime spatial renderer")
	} else {
		fmt.Fprintln(stdout, "sonopleth realtime spatial renderer")
	}
}
