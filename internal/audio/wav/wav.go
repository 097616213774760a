// Package wav reads and writes WAV containers for audio.Buffer using
// go-audio/wav. Output is always 16-bit PCM.
package wav

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/nadzzz/scriptvoice/internal/audio"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
	bitDepth         = 16
)

// ContentType is the MIME type of encoded output.
const ContentType = "audio/wav"

// Encode writes buf as a 16-bit PCM WAV file.
func Encode(w io.WriteSeeker, buf *audio.Buffer) error {
	if buf.SampleRate <= 0 || buf.Channels <= 0 {
		return fmt.Errorf("invalid buffer format: rate %d, channels %d", buf.SampleRate, buf.Channels)
	}
	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = int(audio.ToInt16(s))
	}

	enc := wav.NewEncoder(w, buf.SampleRate, bitDepth, buf.Channels, formatPCM)
	ib := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: buf.SampleRate, NumChannels: buf.Channels},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return nil
}

// EncodeBytes encodes buf into memory.
func EncodeBytes(buf *audio.Buffer) ([]byte, error) {
	var ws writeSeeker
	if err := Encode(&ws, buf); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// Decode parses a PCM WAV file.
func Decode(data []byte) (*audio.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("unsupported wav format %d", dec.WavAudioFormat)
	}

	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding wav: %w", err)
	}

	depth := int(dec.BitDepth)
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", depth)
	}
	scale := float32(int64(1) << (depth - 1))

	samples := make([]float32, len(ib.Data))
	for i, v := range ib.Data {
		if depth == 8 {
			// 8-bit WAV is unsigned.
			v -= 128
		}
		samples[i] = float32(v) / scale
	}
	return &audio.Buffer{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}

// writeSeeker is an in-memory io.WriteSeeker; the encoder seeks back to
// patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	w.pos = int(abs)
	return abs, nil
}
