package main

import (
	"fmt"
	"path/filepath"

	"github.com/Cult-DSP/sonopleth/internal/config"
	"github.com/Cult-DSP/sonopleth/internal/engineerr"
	"github.com/Cult-DSP/sonopleth/internal/scene"
	"github.com/Cult-DSP/sonopleth/internal/streaming"
)

// chunkFramesFor picks the double-buffer chunk size: large enough that the
// background loader comfortably stays ahead of the audio thread, small
// enough that priming doesn't stall setup for long files.
func chunkFramesFor(sampleRate int) int {
	return sampleRate // one second per chunk
}

// openSourceStreams builds one SourceStream per scene source, backed
// either by a directory of mono WAV files (one per source key) or by a
// shared multichannel/ADM file demuxed per spec.md §4.1's channel mapping
// convention.
func openSourceStreams(a cliArgs, sc *scene.Scene, cfg *config.RealtimeConfig) (streams []*streaming.SourceStream, isLFE []bool, closers []func() error, err error) {
	chunkFrames := chunkFramesFor(cfg.SampleRate)

	if a.sourcesDir != "" {
		for _, src := range sc.Sources {
			// A source keyed "LFE" is expected to have its own LFE.wav in
			// mono mode, same as any other source key.
			path := filepath.Join(a.sourcesDir, src.Key+".wav")
			source, closeFn, openErr := streaming.OpenMonoWAV(path, cfg.SampleRate)
			if openErr != nil {
				return nil, nil, closers, openErr
			}
			closers = append(closers, closeFn)

			stream := streaming.NewSourceStream(source, chunkFrames)
			if primeErr := stream.Prime(); primeErr != nil {
				return nil, nil, closers, engineerr.New(engineerr.KindFileOpen, "streaming", path, primeErr)
			}
			streams = append(streams, stream)
			isLFE = append(isLFE, src.IsLFE())
		}
		return streams, isLFE, closers, nil
	}

	demux, numChannels, closeFn, openErr := streaming.OpenMultichannelWAV(a.admPath, cfg.SampleRate, chunkFrames)
	if openErr != nil {
		return nil, nil, closers, openErr
	}
	closers = append(closers, closeFn)

	for _, src := range sc.Sources {
		idx, ok := streaming.ChannelIndexForKey(src.Key, numChannels)
		if !ok {
			return nil, nil, closers, engineerr.New(engineerr.KindChannelCountMismatch, "streaming", a.admPath,
				fmt.Errorf("no channel mapping for source key %q in a %d-channel file", src.Key, numChannels))
		}
		view := demux.ChannelView(idx, chunkFrames)
		stream := streaming.NewSourceStream(view, chunkFrames)
		if primeErr := stream.Prime(); primeErr != nil {
			return nil, nil, closers, engineerr.New(engineerr.KindFileOpen, "streaming", a.admPath, primeErr)
		}
		streams = append(streams, stream)
		isLFE = append(isLFE, src.IsLFE())
	}
	return streams, isLFE, closers, nil
}
