package models

import (
	"testing"
	"time"
)

func TestDispatchable(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		task ScheduledTask
		want bool
	}{
		{"due and active", ScheduledTask{IsActive: true, NextExecutionAt: &past}, true},
		{"due exactly now", ScheduledTask{IsActive: true, NextExecutionAt: &now}, true},
		{"not yet due", ScheduledTask{IsActive: true, NextExecutionAt: &future}, false},
		{"paused", ScheduledTask{IsActive: true, IsPaused: true, NextExecutionAt: &past}, false},
		{"inactive", ScheduledTask{IsActive: false, NextExecutionAt: &past}, false},
		{"no next execution", ScheduledTask{IsActive: true}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.Dispatchable(now); got != tt.want {
				t.Fatalf("Dispatchable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	for status, want := range map[string]bool{
		ExecutionStatusPending:   false,
		ExecutionStatusRunning:   false,
		ExecutionStatusCompleted: true,
		ExecutionStatusFailed:    true,
	} {
		execution := TaskExecution{Status: status}
		if got := execution.Terminal(); got != want {
			t.Errorf("Terminal(%q) = %v, want %v", status, got, want)
		}
	}
}
