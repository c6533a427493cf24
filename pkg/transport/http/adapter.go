package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/transport"
)

// Adapter serves the run API over HTTP.
//
//	POST   /v1/runs              start a run (JSON or SSE)
//	GET    /v1/runs/{id}         fetch a run
//	GET    /v1/runs/{id}/events  fetch the run's event log
//	DELETE /v1/runs/{id}         cancel a run in flight
type Adapter struct {
	creator transport.RunCreator
	store   transport.RunStore // nil disables the lookup endpoints
	mux     *http.ServeMux
	config  Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
	}
}

// NewAdapter creates an HTTP adapter. Middleware is applied to the
// creator in the given order.
func NewAdapter(creator transport.RunCreator, store transport.RunStore, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		creator = transport.Chain(middlewares...)(creator)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		creator: creator,
		store:   store,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.mux.HandleFunc("POST /v1/runs", a.handleCreateRun)
	a.mux.HandleFunc("GET /v1/runs/{id}/events", a.handleRunEvents)
	a.mux.HandleFunc("GET /v1/runs/{id}", a.handleGetRun)
	a.mux.HandleFunc("DELETE /v1/runs/{id}", a.handleCancelRun)

	return a
}

// Handler returns the http.Handler for this adapter, including request
// ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware propagates the X-Request-ID header. A client
// supplied ID is placed in the context; whatever ID the context holds
// when the response starts is echoed back.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		}
		next.ServeHTTP(&requestIDResponseWriter{ResponseWriter: w, r: r}, r)
	})
}

// requestIDResponseWriter injects the X-Request-ID header before the
// first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// handleCreateRun handles POST /v1/runs. The run is bound to the request:
// a client that disconnects cancels it.
func (a *Adapter) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.RunRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	rw := newSSEEventWriter(w)
	if err := a.creator.CreateRun(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleGetRun handles GET /v1/runs/{id}.
func (a *Adapter) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := a.runID(w, r)
	if !ok {
		return
	}
	run, err := a.store.GetRun(r.Context(), id)
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunEvents handles GET /v1/runs/{id}/events.
func (a *Adapter) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := a.runID(w, r)
	if !ok {
		return
	}
	lines, err := a.store.RunEvents(r.Context(), id)
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, transport.EventList{Object: "list", RunID: id, Data: lines})
}

// handleCancelRun handles DELETE /v1/runs/{id}. The run reports its
// cancelled status through its own request once it has stopped.
func (a *Adapter) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id, ok := a.runID(w, r)
	if !ok {
		return
	}
	if err := a.store.CancelRun(r.Context(), id); err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// runID extracts and validates the path ID. It writes the error response
// itself and reports false when the request cannot proceed.
func (a *Adapter) runID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if a.store == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "run lookup is not available"),
			http.StatusNotImplemented,
		)
		return "", false
	}
	id := r.PathValue("id")
	if !api.ValidateRunID(id) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed run ID"),
			http.StatusBadRequest,
		)
		return "", false
	}
	return id, true
}

// writeHandlerError writes an error from the run creator. Once streaming
// has begun the error is sent as a final error event instead.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *sseEventWriter, err error) {
	apiErr := transport.AsAPIError(err)

	if rw.hasStartedStreaming() {
		if !rw.completed() {
			rw.WriteEvent(context.Background(), api.RunEvent{Type: api.EventError, Error: apiErr})
		}
		return
	}
	if rw.completed() {
		return
	}
	transport.WriteAPIError(w, apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
