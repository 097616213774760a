package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nadzzz/scriptvoice/internal/script"
)

// Failure is a job that ended in terminal failure.
type Failure struct {
	Key         script.Key `json:"key"`
	CharacterID string     `json:"character_id"`
	Attempts    int        `json:"attempts"`
	Err         error      `json:"-"`
}

// Cause returns the failure's error text.
func (f Failure) Cause() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Error reports a run that could not produce every clip. It lists every
// failed key with its cause and the keys never dispatched, so a caller can
// re-run only those indices.
type Error struct {
	RunID    string
	Failures []Failure
	Skipped  []script.Key
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d job(s) failed", e.RunID, len(e.Failures))
	for i, f := range e.Failures {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s (%s): %v", f.Key, f.CharacterID, f.Err)
	}
	if len(e.Skipped) > 0 {
		fmt.Fprintf(&b, "; %d job(s) skipped", len(e.Skipped))
	}
	return b.String()
}

// FailedIndices returns the distinct segment indices that need a re-run,
// failed or skipped, in ascending order.
func (e *Error) FailedIndices() []int {
	seen := make(map[int]bool)
	var out []int
	add := func(k script.Key) {
		if !seen[k.Index] {
			seen[k.Index] = true
			out = append(out, k.Index)
		}
	}
	for _, f := range e.Failures {
		add(f.Key)
	}
	for _, k := range e.Skipped {
		add(k)
	}
	sort.Ints(out)
	return out
}
