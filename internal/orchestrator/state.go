package orchestrator

import "fmt"

// State is a job's position in its lifecycle:
//
//	Pending → Running → Succeeded
//	                  → RetryScheduled → Running
//	                  → Failed
//
// Pending jobs that are never dispatched end Skipped; a job cancelled before
// or between attempts ends Failed.
type State int

const (
	StatePending State = iota
	StateRunning
	StateRetryScheduled
	StateSucceeded
	StateFailed
	StateSkipped
)

var stateNames = [...]string{
	StatePending:        "queued",
	StateRunning:        "started",
	StateRetryScheduled: "retried",
	StateSucceeded:      "succeeded",
	StateFailed:         "failed",
	StateSkipped:        "skipped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

var transitions = map[State][]State{
	StatePending:        {StateRunning, StateFailed, StateSkipped},
	StateRunning:        {StateSucceeded, StateRetryScheduled, StateFailed},
	StateRetryScheduled: {StateRunning, StateFailed},
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
