package orchestrator

import (
	"log/slog"
	"time"

	"github.com/nadzzz/scriptvoice/internal/script"
)

// Event is one job lifecycle transition.
type Event struct {
	RunID       string
	Key         script.Key
	CharacterID string
	State       State
	// Attempt is the 1-based attempt the event belongs to; 0 before the
	// first attempt.
	Attempt int
	Err     error
	Cached  bool
	Time    time.Time
}

// EventSink receives job events. Emit is called from worker goroutines and
// must be safe for concurrent use.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Emit calls f.
func (f EventSinkFunc) Emit(e Event) { f(e) }

// LogSink writes events to a slog logger.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs e at debug level, or warn for retries and failures.
func (s LogSink) Emit(e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"run_id", e.RunID,
		"job_key", e.Key.String(),
		"character", e.CharacterID,
		"state", e.State.String(),
		"attempt", e.Attempt,
	}
	if e.Cached {
		attrs = append(attrs, "cached", true)
	}
	switch e.State {
	case StateRetryScheduled, StateFailed:
		logger.Warn("synthesis job", append(attrs, "error", e.Err)...)
	case StateSkipped:
		logger.Info("synthesis job", attrs...)
	default:
		logger.Debug("synthesis job", attrs...)
	}
}
