package synth

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"transient", Transient("x", boom), true},
		{"fatal", Fatal("x", boom), false},
		{"wrapped fatal", fmt.Errorf("job 3.0: %w", Fatal("x", boom)), false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", fmt.Errorf("dial: %w", context.Canceled), false},
		{"unclassified", boom, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestFromStatus(t *testing.T) {
	tests := map[int]bool{400: false, 404: false, 408: true, 422: false, 429: true, 500: true, 503: true}
	for status, transient := range tests {
		if got := IsTransient(FromStatus("x", status, errors.New("status"))); got != transient {
			t.Errorf("Status %d: expected transient=%v, got %v", status, transient, got)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	boom := errors.New("boom")
	err := Fatal("indextts", boom)
	if !errors.Is(err, boom) {
		t.Error("Expected wrapped error to match")
	}
	if err.Error() != "indextts synthesis error (fatal): boom" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestRequestFast(t *testing.T) {
	if (Request{SpeechRate: 1.29}).Fast() {
		t.Error("Expected 1.29 to be normal speed")
	}
	if !(Request{SpeechRate: 1.3}).Fast() {
		t.Error("Expected 1.3 to be fast")
	}
}
