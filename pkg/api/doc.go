// Package api defines the core types shared by the laph repair agent.
//
// This package provides the data types exchanged between the repair
// orchestrator, its observers and the outer surfaces (CLI, HTTP, MCP):
// generator roles, streaming lifecycle markers, run requests and results,
// run status transitions, error types and ID generation.
//
// Core types:
//   - [Role]: Which generator produced a chunk (thinker, coder, summariser)
//   - [Event]: A single observer notification tagged by role and [Marker]
//   - [RunRequest]: Client request to generate a working program for a task
//   - [Run]: The outcome of a repair run
//   - [APIError]: Structured error with type, code, param, and message
//
// The package performs no I/O.
package api
