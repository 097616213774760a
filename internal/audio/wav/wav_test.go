package wav

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nadzzz/scriptvoice/internal/audio"
)

func TestEncodeDecodeStereo(t *testing.T) {
	in := &audio.Buffer{
		Samples:    []float32{0, 0.5, -0.5, 0.25, 1, -1},
		SampleRate: 24000,
		Channels:   2,
	}
	data, err := EncodeBytes(in)
	if err != nil {
		t.Fatalf("EncodeBytes failed: %v", err)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("Expected RIFF/WAVE header, got %q", data[:12])
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.SampleRate != 24000 || out.Channels != 2 {
		t.Errorf("Expected 24000 Hz stereo, got %d Hz %d ch", out.SampleRate, out.Channels)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("Expected %d samples, got %d", len(in.Samples), len(out.Samples))
	}
	for i := range in.Samples {
		if d := out.Samples[i] - in.Samples[i]; d > 1.0/16384 || d < -1.0/16384 {
			t.Errorf("Sample %d: expected %v, got %v", i, in.Samples[i], out.Samples[i])
		}
	}
}

func TestEncodeToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	buf := &audio.Buffer{Samples: make([]float32, 240), SampleRate: audio.DefaultSampleRate, Channels: 1}
	if err := Encode(f, buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Frames() != 240 {
		t.Errorf("Expected 240 frames, got %d", out.Frames())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("definitely not audio")); err == nil {
		t.Error("Expected error for invalid data")
	}
}

func TestEncodeRejectsInvalidFormat(t *testing.T) {
	if _, err := EncodeBytes(&audio.Buffer{}); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}
