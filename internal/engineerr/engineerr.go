// Package engineerr defines the typed setup-time failures described in
// spec.md §7: file open failure, sample-rate mismatch, channel-count
// mismatch, malformed JSON, and friends. The scene, layout, remap and WAV
// loaders report their failures with these; the audio device backend and
// the background loader return plain errors. Runtime anomalies are never
// thrown (spec.md §7 "Runtime anomalies").
package engineerr

import "fmt"

// Kind classifies a setup error for callers that want to branch on it
// (e.g. the CLI picks an exit code range from the kind).
type Kind int

const (
	KindUnknown Kind = iota
	KindFileOpen
	KindSampleRateMismatch
	KindChannelCountMismatch
	KindMalformedJSON
	KindInvalidLayout
	KindInvalidRemap
	KindLifecycle
)

// SetupError wraps a setup-time failure with the subsystem and kind that
// produced it, per spec.md §7 taxon 1.
type SetupError struct {
	Kind    Kind
	Subsys  string
	Source  string
	Err     error
}

func (e *SetupError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %v", e.Subsys, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Subsys, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

func New(kind Kind, subsys, source string, err error) *SetupError {
	return &SetupError{Kind: kind, Subsys: subsys, Source: source, Err: err}
}
