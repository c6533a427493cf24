package sandbox

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rhuss/laph/pkg/observability"
)

type stubRunner struct {
	batch, interactive Result
}

func (s stubRunner) Run(context.Context, string) Result { return s.batch }
func (s stubRunner) RunInteractive(context.Context, string, []string) Result {
	return s.interactive
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		res  Result
		want string
	}{
		{Result{Stdout: "ok\n"}, "success"},
		{Result{Stderr: "Traceback", ExitCode: 1}, "failure"},
		{TimeoutResult(), "timeout"},
		{Result{Stderr: "[Execution Error] timed out after 8s", ExitCode: -1}, "error"},
		{Result{Stderr: "killed", ExitCode: -1}, "failure"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.res); got != tt.want {
			t.Errorf("Outcome(%+v) = %q, want %q", tt.res, got, tt.want)
		}
	}
}

func TestInstrumentCountsExecutions(t *testing.T) {
	before := counter(t, "interactive", "timeout")

	r := Instrument(stubRunner{interactive: TimeoutResult()})
	res := r.RunInteractive(context.Background(), "input()", []string{"a"})
	if res != TimeoutResult() {
		t.Errorf("RunInteractive() = %+v, want the wrapped result", res)
	}

	if after := counter(t, "interactive", "timeout"); after-before != 1 {
		t.Errorf("timeout count delta = %f, want 1", after-before)
	}
}

func counter(t *testing.T, labels ...string) float64 {
	t.Helper()
	c, err := observability.SandboxExecutionsTotal.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter: %v", err)
	}
	m := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
