package model

import "testing"

func TestSessionStatusTransitions(t *testing.T) {
	tests := []struct {
		from SessionStatus
		to   SessionStatus
		ok   bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},

		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusFailed, false},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
		{StatusFailed, StatusCompleted, false},
		{StatusPending, StatusPending, false},
		{StatusCompleted, StatusCompleted, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
		next, err := tt.from.Transition(tt.to)
		if tt.ok {
			if err != nil {
				t.Errorf("Transition(%s -> %s) = %v, want nil", tt.from, tt.to, err)
			}
			if next != tt.to {
				t.Errorf("Transition(%s -> %s) returned %s", tt.from, tt.to, next)
			}
		} else {
			if err == nil {
				t.Errorf("Transition(%s -> %s) succeeded, want error", tt.from, tt.to)
			}
			if next != tt.from {
				t.Errorf("failed Transition(%s -> %s) moved status to %s", tt.from, tt.to, next)
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []SessionStatus{StatusCompleted, StatusFailed} {
		for _, next := range []SessionStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
			if terminal.CanTransition(next) {
				t.Errorf("terminal state %s allows transition to %s", terminal, next)
			}
		}
	}
}
