package audio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nadzzz/scriptvoice/internal/script"
)

// Clip is the audio produced for one segment key.
type Clip struct {
	Key         script.Key
	CharacterID string
	Audio       *Buffer
}

// StitchError reports clips that cannot be reassembled.
type StitchError struct {
	Missing    []script.Key
	Duplicate  []script.Key
	Unexpected []script.Key
}

func (e *StitchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+joinKeys(e.Missing))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate "+joinKeys(e.Duplicate))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+joinKeys(e.Unexpected))
	}
	return "stitch failed: " + strings.Join(parts, "; ")
}

func joinKeys(keys []script.Key) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = k.String()
	}
	return strings.Join(s, ", ")
}

// StitcherOptions sets the output format.
type StitcherOptions struct {
	SampleRate int
	Channels   int

	// SpeakerPause is silence inserted between consecutive clips of
	// different characters.
	SpeakerPause time.Duration
}

// Stitcher concatenates clips in key order.
type Stitcher struct {
	opts StitcherOptions
}

// NewStitcher creates a stitcher, defaulting to DefaultSampleRate mono.
func NewStitcher(opts StitcherOptions) *Stitcher {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	return &Stitcher{opts: opts}
}

// Stitch reassembles one clip per key, ordered by key regardless of the order
// of either argument. Every key needs exactly one clip and every clip a key.
// Clips are converted to the output rate and channel count and joined with no
// crossfade.
func (s *Stitcher) Stitch(keys []script.Key, clips []Clip) (*Buffer, error) {
	want := make(map[script.Key]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	byKey := make(map[script.Key]Clip, len(clips))
	var serr StitchError
	for _, c := range clips {
		if !want[c.Key] {
			serr.Unexpected = append(serr.Unexpected, c.Key)
			continue
		}
		if _, dup := byKey[c.Key]; dup {
			serr.Duplicate = append(serr.Duplicate, c.Key)
			continue
		}
		byKey[c.Key] = c
	}

	ordered := make([]script.Key, 0, len(want))
	for k := range want {
		ordered = append(ordered, k)
		if _, ok := byKey[k]; !ok {
			serr.Missing = append(serr.Missing, k)
		}
	}
	if len(serr.Missing)+len(serr.Duplicate)+len(serr.Unexpected) > 0 {
		sortKeys(serr.Missing)
		sortKeys(serr.Duplicate)
		sortKeys(serr.Unexpected)
		return nil, &serr
	}
	sortKeys(ordered)

	out := &Buffer{SampleRate: s.opts.SampleRate, Channels: s.opts.Channels}
	var pause *Buffer
	if s.opts.SpeakerPause > 0 {
		pause = Silence(s.opts.SpeakerPause, s.opts.SampleRate, s.opts.Channels)
	}

	prev := ""
	for i, k := range ordered {
		c := byKey[k]
		if c.Audio == nil {
			return nil, fmt.Errorf("clip %s has no audio", k)
		}
		if pause != nil && i > 0 && c.CharacterID != prev {
			out.Samples = append(out.Samples, pause.Samples...)
		}
		b, err := Reformat(c.Audio, s.opts.SampleRate, s.opts.Channels)
		if err != nil {
			return nil, fmt.Errorf("clip %s: %w", k, err)
		}
		out.Samples = append(out.Samples, b.Samples...)
		prev = c.CharacterID
	}
	return out, nil
}

func sortKeys(keys []script.Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
