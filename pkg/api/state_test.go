package api

import (
	"strings"
	"testing"
)

func TestValidateRunTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    RunStatus
		to      RunStatus
		wantErr bool
	}{
		{name: "initial to running", from: "", to: RunStatusRunning},
		{name: "running to succeeded", from: RunStatusRunning, to: RunStatusSucceeded},
		{name: "running to exhausted", from: RunStatusRunning, to: RunStatusExhausted},
		{name: "running to cancelled", from: RunStatusRunning, to: RunStatusCancelled},

		{name: "initial to succeeded", from: "", to: RunStatusSucceeded, wantErr: true},
		{name: "succeeded to running", from: RunStatusSucceeded, to: RunStatusRunning, wantErr: true},
		{name: "exhausted to succeeded", from: RunStatusExhausted, to: RunStatusSucceeded, wantErr: true},
		{name: "cancelled to running", from: RunStatusCancelled, to: RunStatusRunning, wantErr: true},
		{name: "running to running", from: RunStatusRunning, to: RunStatusRunning, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRunTransition(%q, %q) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Message, "invalid transition") {
				t.Errorf("message = %q, want it to mention the invalid transition", err.Message)
			}
		})
	}
}

func TestRunTerminal(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{"", false},
		{RunStatusRunning, false},
		{RunStatusSucceeded, true},
		{RunStatusExhausted, true},
		{RunStatusCancelled, true},
	}
	for _, tt := range tests {
		r := &Run{Status: tt.status}
		if got := r.Terminal(); got != tt.want {
			t.Errorf("Run{Status: %q}.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
