package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/laph/pkg/api"
)

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareBypass(t *testing.T) {
	h := Middleware(NewChain(), nil, DefaultBypassEndpoints)(okHandler())

	for _, path := range DefaultBypassEndpoints {
		if rec := serve(t, h, http.MethodGet, path); rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestMiddlewareRejects(t *testing.T) {
	h := Middleware(NewChain(), nil, DefaultBypassEndpoints)(okHandler())

	rec := serve(t, h, http.MethodPost, "/v1/runs")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error == nil || body.Error.Type != api.ErrorTypeUnauthorized {
		t.Errorf("error = %+v, want unauthorized", body.Error)
	}
}

func TestMiddlewareInjectsIdentity(t *testing.T) {
	h := Middleware(NewChain(yes("alice")), nil, DefaultBypassEndpoints)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := Subject(r.Context()); got != "alice" {
				t.Errorf("Subject = %q, want alice", got)
			}
			w.WriteHeader(http.StatusNoContent)
		}))

	if rec := serve(t, h, http.MethodPost, "/v1/runs"); rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestMiddlewareEmptySubject(t *testing.T) {
	h := Middleware(NewChain(yes("")), nil, nil)(okHandler())
	if rec := serve(t, h, http.MethodPost, "/v1/runs"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestMiddlewareRateLimit(t *testing.T) {
	limiter := NewSubjectLimiter(2, 2)
	h := Middleware(NewChain(yes("alice")), limiter, nil)(okHandler())

	for i := range 2 {
		if rec := serve(t, h, http.MethodPost, "/v1/runs"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}
	rec := serve(t, h, http.MethodPost, "/v1/runs")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want 429", rec.Code)
	}
}

func TestSubjectLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewSubjectLimiter(60, 1)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	alice := &Identity{Subject: "alice"}
	bob := &Identity{Subject: "bob"}

	if err := l.Allow(ctx, alice); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := l.Allow(ctx, alice); err != ErrTooManyRequests {
		t.Errorf("burst exceeded: err = %v, want ErrTooManyRequests", err)
	}
	if err := l.Allow(ctx, bob); err != nil {
		t.Errorf("other subject: %v", err)
	}

	now = now.Add(time.Second)
	if err := l.Allow(ctx, alice); err != nil {
		t.Errorf("after refill: %v", err)
	}
}

func TestSubjectLimiterDisabled(t *testing.T) {
	l := NewSubjectLimiter(0, 0)
	for range 100 {
		if err := l.Allow(context.Background(), &Identity{Subject: "alice"}); err != nil {
			t.Fatalf("disabled limiter rejected: %v", err)
		}
	}
}

func TestSubjectLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewSubjectLimiter(60, 1)
	l.now = func() time.Time { return now }

	l.Allow(context.Background(), &Identity{Subject: "alice"})
	now = now.Add(11 * time.Minute)
	l.Allow(context.Background(), &Identity{Subject: "bob"})

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets["alice"]; ok {
		t.Error("idle bucket for alice was not swept")
	}
	if _, ok := l.buckets["bob"]; !ok {
		t.Error("bucket for bob missing")
	}
}
