package audio

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/nadzzz/scriptvoice/internal/script"
)

func mono(rate int, samples ...float32) *Buffer {
	return &Buffer{Samples: samples, SampleRate: rate, Channels: 1}
}

func key(i, sub int) script.Key { return script.Key{Index: i, Sub: sub} }

func TestStitchOrdersByKey(t *testing.T) {
	keys := []script.Key{key(0, 0), key(1, 0), key(1, 1), key(2, 0)}
	clips := []Clip{
		{Key: key(2, 0), CharacterID: "a", Audio: mono(8000, 4)},
		{Key: key(0, 0), CharacterID: "a", Audio: mono(8000, 1)},
		{Key: key(1, 1), CharacterID: "a", Audio: mono(8000, 3)},
		{Key: key(1, 0), CharacterID: "a", Audio: mono(8000, 2)},
	}
	out, err := NewStitcher(StitcherOptions{SampleRate: 8000}).Stitch(keys, clips)
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}
	want := []float32{1, 2, 3, 4}
	for i := range want {
		if out.Samples[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, out.Samples)
		}
	}
}

func TestStitchOrderIndependence(t *testing.T) {
	var keys []script.Key
	var clips []Clip
	for i := 0; i < 12; i++ {
		k := key(i/3, i%3)
		keys = append(keys, k)
		samples := make([]float32, 50+i)
		for j := range samples {
			samples[j] = float32(i*100+j) / 2000
		}
		rate := 24000
		if i%2 == 1 {
			rate = 22050
		}
		clips = append(clips, Clip{Key: k, CharacterID: []string{"n", "h"}[i%2], Audio: mono(rate, samples...)})
	}

	st := NewStitcher(StitcherOptions{SampleRate: 24000, SpeakerPause: 2 * time.Millisecond})
	ref, err := st.Stitch(keys, clips)
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}
	refBytes, err := ref.PCM16()
	if err != nil {
		t.Fatalf("PCM16 failed: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]Clip(nil), clips...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		shuffledKeys := append([]script.Key(nil), keys...)
		rng.Shuffle(len(shuffledKeys), func(i, j int) { shuffledKeys[i], shuffledKeys[j] = shuffledKeys[j], shuffledKeys[i] })

		out, err := st.Stitch(shuffledKeys, shuffled)
		if err != nil {
			t.Fatalf("Stitch failed: %v", err)
		}
		got, err := out.PCM16()
		if err != nil {
			t.Fatalf("PCM16 failed: %v", err)
		}
		if !bytes.Equal(got, refBytes) {
			t.Fatalf("Trial %d: output differs from reference", trial)
		}
	}
}

func TestStitchSpeakerPause(t *testing.T) {
	keys := []script.Key{key(0, 0), key(0, 1), key(1, 0)}
	clips := []Clip{
		{Key: key(0, 0), CharacterID: "narrator", Audio: mono(1000, 1)},
		{Key: key(0, 1), CharacterID: "narrator", Audio: mono(1000, 1)},
		{Key: key(1, 0), CharacterID: "hero", Audio: mono(1000, 1)},
	}
	out, err := NewStitcher(StitcherOptions{SampleRate: 1000, SpeakerPause: 3 * time.Millisecond}).Stitch(keys, clips)
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}
	want := []float32{1, 1, 0, 0, 0, 1}
	if len(out.Samples) != len(want) {
		t.Fatalf("Expected %v, got %v", want, out.Samples)
	}
	for i := range want {
		if out.Samples[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, out.Samples)
			break
		}
	}
}

func TestStitchErrors(t *testing.T) {
	keys := []script.Key{key(0, 0), key(1, 0)}
	tests := []struct {
		name  string
		clips []Clip
		check func(*StitchError) bool
	}{
		{
			name:  "missing",
			clips: []Clip{{Key: key(0, 0), Audio: mono(8000, 0)}},
			check: func(e *StitchError) bool { return len(e.Missing) == 1 && e.Missing[0] == key(1, 0) },
		},
		{
			name: "duplicate",
			clips: []Clip{
				{Key: key(0, 0), Audio: mono(8000, 0)},
				{Key: key(0, 0), Audio: mono(8000, 0)},
				{Key: key(1, 0), Audio: mono(8000, 0)},
			},
			check: func(e *StitchError) bool { return len(e.Duplicate) == 1 },
		},
		{
			name: "unexpected",
			clips: []Clip{
				{Key: key(0, 0), Audio: mono(8000, 0)},
				{Key: key(1, 0), Audio: mono(8000, 0)},
				{Key: key(5, 0), Audio: mono(8000, 0)},
			},
			check: func(e *StitchError) bool { return len(e.Unexpected) == 1 && e.Unexpected[0] == key(5, 0) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStitcher(StitcherOptions{}).Stitch(keys, tt.clips)
			var serr *StitchError
			if !errors.As(err, &serr) {
				t.Fatalf("Expected StitchError, got %v", err)
			}
			if !tt.check(serr) {
				t.Errorf("Unexpected error contents: %+v", serr)
			}
		})
	}
}

func TestReformat(t *testing.T) {
	tests := []struct {
		name       string
		in         *Buffer
		rate       int
		channels   int
		wantFrames int
	}{
		{"upsample", mono(8000, 0, 0.5, 0, -0.5, 0, 0.5, 0, -0.5), 16000, 1, 16},
		{"downsample", mono(16000, make([]float32, 160)...), 8000, 1, 80},
		{"mono to stereo", mono(8000, 0.5, -0.5, 0.25, 0), 8000, 2, 4},
		{"stereo to mono", &Buffer{Samples: []float32{0.5, 0.5, -0.5, -0.5}, SampleRate: 8000, Channels: 2}, 8000, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Reformat(tt.in, tt.rate, tt.channels)
			if err != nil {
				t.Fatalf("Reformat failed: %v", err)
			}
			if out.SampleRate != tt.rate || out.Channels != tt.channels {
				t.Errorf("Expected %d Hz/%dch, got %d Hz/%dch", tt.rate, tt.channels, out.SampleRate, out.Channels)
			}
			if d := out.Frames() - tt.wantFrames; d < -1 || d > 1 {
				t.Errorf("Expected about %d frames, got %d", tt.wantFrames, out.Frames())
			}
		})
	}

	in := mono(8000, 0.5)
	same, err := Reformat(in, 8000, 1)
	if err != nil || same != in {
		t.Errorf("Expected matching format to return input, got %v", err)
	}
}

func TestStitchConvertsClipFormat(t *testing.T) {
	keys := []script.Key{key(0, 0), key(1, 0)}
	clips := []Clip{
		{Key: key(0, 0), Audio: mono(16000, make([]float32, 160)...)},
		{Key: key(1, 0), Audio: mono(8000, make([]float32, 80)...)},
	}
	out, err := NewStitcher(StitcherOptions{SampleRate: 8000, Channels: 2}).Stitch(keys, clips)
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}
	if out.Channels != 2 || out.SampleRate != 8000 {
		t.Errorf("Expected 8000 Hz stereo, got %d Hz/%dch", out.SampleRate, out.Channels)
	}
	if d := out.Frames() - 160; d < -2 || d > 2 {
		t.Errorf("Expected about 160 frames, got %d", out.Frames())
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	in := mono(16000, 0, 0.5, -1, 2)
	data, err := in.PCM16()
	if err != nil {
		t.Fatalf("PCM16 failed: %v", err)
	}
	if len(data) != 8 {
		t.Fatalf("Expected 8 bytes, got %d", len(data))
	}
	back, err := FromPCM16(data, 16000, 1)
	if err != nil {
		t.Fatalf("FromPCM16 failed: %v", err)
	}
	want := []float32{0, 0.5, -1, 1}
	for i, w := range want {
		if math.Abs(float64(back.Samples[i]-w)) > 1e-3 {
			t.Errorf("Sample %d: expected about %v, got %v", i, w, back.Samples[i])
		}
	}
	if _, err := FromPCM16([]byte{1, 2, 3}, 16000, 1); err == nil {
		t.Error("Expected error for odd byte count")
	}
}

func TestSilenceDuration(t *testing.T) {
	s := Silence(500*time.Millisecond, 24000, 1)
	if s.Frames() != 12000 || s.Duration() != 500*time.Millisecond {
		t.Errorf("Expected 12000 frames / 500ms, got %d / %s", s.Frames(), s.Duration())
	}
}
