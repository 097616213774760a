// Package synth defines the interface to external speech-synthesis engines.
//
// The orchestrator treats every engine as an opaque, possibly slow and
// fallible capability: one call per job, returning decoded samples or an
// error classified as transient (retry) or fatal (report).
package synth

import (
	"context"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/character"
	"github.com/nadzzz/scriptvoice/internal/emotion"
)

// FastRateThreshold is the speech rate at and above which engines with only a
// discrete speed switch are asked for fast speech.
const FastRateThreshold = 1.3

// Request is one synthesis call.
type Request struct {
	Text string

	// Profile is the registry's profile for the speaking character. It must
	// not be modified.
	Profile *character.Profile

	// Emotion is the resolved emotion. Mode selects between the vector, the
	// descriptive payload and pure voice cloning.
	Emotion emotion.Resolution

	Pitch      float64
	SpeechRate float64
	Volume     float64
}

// Fast reports whether the request asks for fast speech.
func (r Request) Fast() bool { return r.SpeechRate >= FastRateThreshold }

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Synthesize generates audio for one request. Errors should be wrapped
	// with Transient or Fatal; unclassified errors are retried.
	Synthesize(ctx context.Context, req Request) (*audio.Buffer, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Prober is implemented by backends that can report whether the engine is
// reachable. Readiness checks use it when present.
type Prober interface {
	Probe(ctx context.Context) error
}
