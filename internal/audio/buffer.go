// Package audio holds decoded sample buffers and reassembles synthesized clips
// into one ordered stream.
package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/up-zero/gotool/mediautil"
)

// DefaultSampleRate is the output rate used when none is configured.
const DefaultSampleRate = 24000

const (
	bitsPerSample = 16
	wavHeaderSize = 44
)

// Buffer is interleaved float PCM in [-1, 1].
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Silence returns a zeroed buffer of the given length.
func Silence(d time.Duration, sampleRate, channels int) *Buffer {
	frames := int(d * time.Duration(sampleRate) / time.Second)
	if frames < 0 {
		frames = 0
	}
	return &Buffer{
		Samples:    make([]float32, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// FromPCM16 decodes raw signed 16-bit little-endian PCM.
func FromPCM16(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid pcm format: rate %d, channels %d", sampleRate, channels)
	}
	if len(data)%(2*channels) != 0 {
		return nil, fmt.Errorf("pcm length %d is not a whole number of %d-channel frames", len(data), channels)
	}
	if len(data) == 0 {
		return &Buffer{SampleRate: sampleRate, Channels: channels}, nil
	}
	samples, err := mediautil.PcmBytesToFloat32(data, bitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("decoding pcm: %w", err)
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// PCM16 encodes the buffer as signed 16-bit little-endian PCM. Samples
// outside [-1, 1] are clipped.
func (b *Buffer) PCM16() ([]byte, error) {
	wav, err := b.wavBytes()
	if err != nil {
		return nil, err
	}
	return wav[wavHeaderSize:], nil
}

// wavBytes encodes the buffer as a canonical 16-bit WAV file.
func (b *Buffer) wavBytes() ([]byte, error) {
	clipped := make([]float32, len(b.Samples))
	for i, s := range b.Samples {
		if math.IsNaN(float64(s)) {
			continue
		}
		clipped[i] = max(-1, min(1, s))
	}
	wav, err := mediautil.Float32ToWavBytes(clipped, b.SampleRate, b.Channels, bitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("encoding pcm: %w", err)
	}
	return wav, nil
}

// Reformat converts b to the given sample rate and channel count. The input
// is returned as is when it already matches.
func Reformat(b *Buffer, rate, channels int) (*Buffer, error) {
	if b.SampleRate == rate && b.Channels == channels {
		return b, nil
	}
	if len(b.Samples) == 0 {
		return &Buffer{SampleRate: rate, Channels: channels}, nil
	}
	wav, err := b.wavBytes()
	if err != nil {
		return nil, err
	}
	out, err := mediautil.ReformatWavBytes(wav, rate, channels, bitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("reformatting %d Hz/%dch to %d Hz/%dch: %w", b.SampleRate, b.Channels, rate, channels, err)
	}
	samples, err := mediautil.PcmBytesToFloat32(out[wavHeaderSize:], bitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("decoding reformatted pcm: %w", err)
	}
	return &Buffer{Samples: samples, SampleRate: rate, Channels: channels}, nil
}

// ToInt16 converts one float sample to 16-bit, clipping out-of-range values.
func ToInt16(s float32) int16 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	v := math.Round(float64(s) * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
