// Package queue runs renders as asynchronous asynq tasks backed by redis.
package queue

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nadzzz/scriptvoice/internal/character"
	"github.com/nadzzz/scriptvoice/internal/render"
)

// Enqueue errors a caller can act on. Anything else is a queue outage.
var (
	ErrInvalidPayload = errors.New("invalid render payload")
	ErrDuplicateJob   = errors.New("job id already queued")
)

// TypeRenderScript is the asynq task type for a script render.
const TypeRenderScript = "render:script"

// RenderPayload is the task body.
type RenderPayload struct {
	ID         string                             `json:"id"`
	Script     string                             `json:"script"`
	Characters map[string]character.ProfileConfig `json:"characters,omitempty"`

	// Format is the output format, "wav" or "pcm". Defaults to wav.
	Format string `json:"format,omitempty"`
}

// Request converts the payload to a render request.
func (p RenderPayload) Request() render.Request {
	return render.Request{ID: p.ID, Script: p.Script, Characters: p.Characters}
}

// OutputPath is where the worker writes the rendered audio for id.
func OutputPath(dir, id, format string) (string, error) {
	switch format {
	case "", render.FormatWAV:
		format = render.FormatWAV
	case render.FormatPCM:
	default:
		return "", fmt.Errorf("%w: unsupported output format %q", ErrInvalidPayload, format)
	}
	return filepath.Join(dir, id+"."+format), nil
}
