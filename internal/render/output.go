package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/audio/wav"
)

// Output formats, selected by file extension.
const (
	FormatWAV = "wav"
	FormatPCM = "pcm"
)

// FormatFromPath maps a file extension to an output format.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return FormatWAV, nil
	case ".pcm", ".raw":
		return FormatPCM, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
}

// Encode renders buf in the given format and returns its MIME type.
func Encode(format string, buf *audio.Buffer) ([]byte, string, error) {
	switch format {
	case FormatWAV:
		data, err := wav.EncodeBytes(buf)
		return data, wav.ContentType, err
	case FormatPCM:
		data, err := buf.PCM16()
		return data, "audio/L16", err
	default:
		return nil, "", fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteOutput writes buf to path in the format named by its extension.
func WriteOutput(path string, buf *audio.Buffer) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	if format == FormatWAV {
		if err := wav.Encode(f, buf); err != nil {
			return err
		}
	} else {
		data, err := buf.PCM16()
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return f.Close()
}
