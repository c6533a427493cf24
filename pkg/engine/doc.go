// Package engine runs repair tasks on behalf of the transport layer.
// The Engine implements transport.RunCreator and transport.RunStore: it
// validates run requests, admits them through a bounded in-flight
// registry, drives the repair orchestrator, maps observer notifications
// to numbered run events for streaming clients, and keeps recent runs
// addressable by ID. Run persistence and event log reading are optional.
package engine
