package api

import (
	"strings"
	"testing"
)

func intPtr(i int) *int { return &i }

func TestValidateRunRequest(t *testing.T) {
	cfg := DefaultValidationConfig()

	tests := []struct {
		name      string
		req       RunRequest
		wantParam string
	}{
		{name: "valid", req: RunRequest{Task: "echo the input"}},
		{name: "valid with iterations", req: RunRequest{Task: "x", MaxIterations: intPtr(60)}},
		{name: "zero iterations", req: RunRequest{Task: "x", MaxIterations: intPtr(0)}},
		{name: "empty task", req: RunRequest{Task: "  "}, wantParam: "task"},
		{name: "oversized task", req: RunRequest{Task: strings.Repeat("a", cfg.MaxTaskSize+1)}, wantParam: "task"},
		{name: "negative iterations", req: RunRequest{Task: "x", MaxIterations: intPtr(-1)}, wantParam: "max_iterations"},
		{name: "too many iterations", req: RunRequest{Task: "x", MaxIterations: intPtr(61)}, wantParam: "max_iterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunRequest(&tt.req, cfg)
			if tt.wantParam == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for param %q", tt.wantParam)
			}
			if err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", err.Param, tt.wantParam)
			}
		})
	}
}
