// Package transport defines the handler interfaces and middleware chain for
// the laph HTTP/SSE API.
//
// The transport layer decodes run requests into the types of pkg/api,
// dispatches them to a [RunCreator], and serializes progress back to the
// client either as a single JSON run object or as a stream of server-sent
// events.
//
// # Handler Interfaces
//
//   - RunCreator starts a repair run and reports progress to an EventWriter.
//   - RunStore looks up finished and in-flight runs, their event log, and
//     cancels the run in flight.
//
// # Middleware
//
// Middleware wraps a RunCreator with cross-cutting concerns. Built-in
// middleware provides panic recovery, request ID assignment (X-Request-ID)
// and structured logging via log/slog.
package transport
