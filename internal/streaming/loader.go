package streaming

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// loaderPollInterval is how often the background loader checks every
// SourceStream's idle chunk for refill, per spec.md §4.1 "start_loader".
const loaderPollInterval = 2 * time.Millisecond

// Loader drives LoaderTick for a set of SourceStreams on a background
// goroutine until shut down, keeping every stream's idle buffer full
// ahead of audio-thread consumption.
type Loader struct {
	streams []*SourceStream
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// StartLoader launches the background fill loop. Callers get the streams
// playable immediately after Prime(); the loader just keeps them fed.
func StartLoader(ctx context.Context, streams []*SourceStream) *Loader {
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)

	l := &Loader{streams: streams, cancel: cancel, group: group}

	group.Go(func() error {
		ticker := time.NewTicker(loaderPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				for _, s := range streams {
					if s.shuttingDown() {
						continue
					}
					if err := s.LoaderTick(); err != nil {
						return err
					}
				}
			}
		}
	})

	return l
}

// Stop signals every stream and the loader goroutine to stop, and waits
// for the goroutine to exit.
func (l *Loader) Stop() error {
	for _, s := range l.streams {
		s.Shutdown()
	}
	l.cancel()
	return l.group.Wait()
}
