package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/laph/pkg/sandbox"
)

type stubRunner struct {
	limits  sandbox.Limits
	started chan struct{}
	block   chan struct{}
	gotCode string
	gotIn   []string
	result  sandbox.Result
}

func (s *stubRunner) Run(_ context.Context, payload string) sandbox.Result {
	s.gotCode = payload
	if s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		<-s.block
	}
	return s.result
}

func (s *stubRunner) RunInteractive(_ context.Context, code string, inputs []string) sandbox.Result {
	s.gotCode = code
	s.gotIn = inputs
	return s.result
}

func newTestServer(stub *stubRunner, maxConcurrent int) *sandboxServer {
	s := newSandboxServer("python3", sandbox.DefaultLimits(), maxConcurrent, 30*time.Second)
	s.newRunner = func(l sandbox.Limits) sandbox.Runner {
		stub.limits = l
		return stub
	}
	return s
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(body)))
	return rec
}

func TestExecuteBatch(t *testing.T) {
	stub := &stubRunner{result: sandbox.Result{Stdout: "hi\n"}}
	h := newTestServer(stub, 1).routes()

	rec := post(h, `{"code":"print('hi')"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp sandbox.ExecuteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || resp.Stdout != "hi\n" || resp.ExitCode != 0 {
		t.Errorf("response = %+v", resp)
	}
	if stub.gotCode != "print('hi')" {
		t.Errorf("code = %q", stub.gotCode)
	}
	if stub.limits.Timeout != sandbox.DefaultLimits().Timeout {
		t.Errorf("timeout = %v, want default", stub.limits.Timeout)
	}
}

func TestExecuteInteractive(t *testing.T) {
	stub := &stubRunner{result: sandbox.Result{Stderr: "Traceback", ExitCode: 1}}
	h := newTestServer(stub, 1).routes()

	rec := post(h, `{"code":"x","interactive":true,"stdin":["a","b"],"timeout_seconds":90}`)
	var resp sandbox.ExecuteResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "error" || resp.ExitCode != 1 {
		t.Errorf("response = %+v", resp)
	}
	if len(stub.gotIn) != 2 {
		t.Errorf("stdin = %v, want two lines", stub.gotIn)
	}
	if stub.limits.InteractiveTimeout != 30*time.Second {
		t.Errorf("interactive timeout = %v, want capped 30s", stub.limits.InteractiveTimeout)
	}
}

func TestExecuteBadRequests(t *testing.T) {
	h := newTestServer(&stubRunner{}, 1).routes()

	for name, body := range map[string]string{
		"invalid json": "{",
		"empty code":   `{"code":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			if rec := post(h, body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestExecuteAtCapacity(t *testing.T) {
	stub := &stubRunner{started: make(chan struct{}), block: make(chan struct{})}
	h := newTestServer(stub, 1).routes()

	done := make(chan struct{})
	go func() {
		post(h, `{"code":"slow"}`)
		close(done)
	}()
	<-stub.started

	rec := post(h, `{"code":"fast"}`)
	close(stub.block)
	<-done

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(&stubRunner{}, 2).routes()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.Capacity != 2 || resp.Interpreter != "python3" {
		t.Errorf("health = %+v", resp)
	}
}

func TestLimitsForCapsTimeout(t *testing.T) {
	s := newSandboxServer("python3", sandbox.DefaultLimits(), 1, 30*time.Second)
	tests := []struct {
		name    string
		seconds int
		want    time.Duration
	}{
		{"unset keeps default", 0, sandbox.DefaultLimits().Timeout},
		{"negative keeps default", -5, sandbox.DefaultLimits().Timeout},
		{"below cap", 3, 3 * time.Second},
		{"at cap", 30, 30 * time.Second},
		{"above cap", 31, 30 * time.Second},
		{"overflowing value", 9223372037, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := s.limitsFor(tt.seconds)
			if l.Timeout != tt.want {
				t.Errorf("Timeout = %v, want %v", l.Timeout, tt.want)
			}
			if tt.seconds > 0 && l.InteractiveTimeout != tt.want {
				t.Errorf("InteractiveTimeout = %v, want %v", l.InteractiveTimeout, tt.want)
			}
		})
	}
}

func TestExecuteHugeTimeoutKeepsWallClock(t *testing.T) {
	stub := &stubRunner{}
	h := newTestServer(stub, 1).routes()

	rec := post(h, `{"code":"print(1)","timeout_seconds":9223372037}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.limits.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", stub.limits.Timeout)
	}
}
