// Package observability provides Prometheus metrics, tracing setup and HTTP
// middleware for monitoring the laph repair agent.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ExecBuckets defines histogram buckets for sandboxed program executions,
// ranging from 10ms to the 10s interactive ceiling.
var ExecBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 8, 10}

var (
	// RunsTotal counts finished repair runs by outcome
	// (succeeded, exhausted, cancelled).
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laph_runs_total",
			Help: "Repair runs",
		},
		[]string{"outcome"},
	)

	// IterationsTotal counts repair iterations by how they ended.
	IterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laph_iterations_total",
			Help: "Repair iterations",
		},
		[]string{"result"},
	)

	// GeneratorRequestsTotal counts prompts submitted to generator backends.
	GeneratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laph_generator_requests_total",
			Help: "Generator requests",
		},
		[]string{"role", "backend", "status"},
	)

	// GeneratorDuration records the time from prompt submission until the
	// chunk stream closes.
	GeneratorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laph_generator_duration_seconds",
			Help:    "Generator stream duration",
			Buckets: LLMBuckets,
		},
		[]string{"role", "backend"},
	)

	// GeneratorChunksTotal counts streamed text chunks per role.
	GeneratorChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laph_generator_chunks_total",
			Help: "Generator chunks",
		},
		[]string{"role"},
	)

	// SandboxExecutionsTotal counts sandboxed executions by mode
	// (batch, interactive) and outcome (success, failure, timeout, error).
	SandboxExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laph_sandbox_executions_total",
			Help: "Sandbox executions",
		},
		[]string{"mode", "outcome"},
	)

	// SandboxDuration records sandboxed execution wall time in seconds.
	SandboxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laph_sandbox_duration_seconds",
			Help:    "Sandbox execution duration",
			Buckets: ExecBuckets,
		},
		[]string{"mode"},
	)

	// InteractionActionsTotal counts actions proposed by the interaction
	// probe, by action type.
	InteractionActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laph_interaction_actions_total",
			Help: "Interaction probe actions",
		},
		[]string{"type"},
	)

	// RequestsTotal counts HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laph_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laph_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// AuthRejectionsTotal counts requests refused by the auth middleware,
	// by reason (unauthenticated, rate_limited).
	AuthRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laph_auth_rejections_total",
			Help: "Requests rejected by authentication or rate limiting",
		},
		[]string{"reason"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "laph_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		IterationsTotal,
		GeneratorRequestsTotal,
		GeneratorDuration,
		GeneratorChunksTotal,
		SandboxExecutionsTotal,
		SandboxDuration,
		InteractionActionsTotal,
		RequestsTotal,
		RequestDuration,
		AuthRejectionsTotal,
		StreamingConnections,
	)
}
