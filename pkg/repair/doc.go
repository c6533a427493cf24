// Package repair implements the generate, execute and repair loop.
//
// An Orchestrator asks the thinker generator for a specification, asks the
// coder generator for a program and its tests, runs them in a sandbox and,
// when the run fails, probes the program with synthetic input before
// trying again. The loop is bounded by an iteration budget and returns
// the first program that exits cleanly.
//
// A run is strictly sequential. Generator output is streamed to an
// Observer as it arrives; the observer is called from the goroutine
// executing Run and must do its own synchronization.
package repair
