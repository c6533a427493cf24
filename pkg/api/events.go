package api

// Role identifies which generator produced a piece of streamed text.
type Role string

const (
	RoleThinker    Role = "thinker"
	RoleCoder      Role = "coder"
	RoleSummariser Role = "summariser"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleThinker, RoleCoder, RoleSummariser:
		return true
	}
	return false
}

// Marker brackets each generator invocation seen by an observer.
// A well-formed invocation produces one prompt, one start, any number
// of chunk events, and one end.
type Marker string

const (
	MarkerPrompt Marker = "prompt"
	MarkerStart  Marker = "start"
	MarkerChunk  Marker = "chunk"
	MarkerEnd    Marker = "end"
)

// Event is a single observer notification. Text carries the full prompt
// for MarkerPrompt and the streamed text for MarkerChunk; it is empty
// otherwise.
type Event struct {
	Role   Role   `json:"role"`
	Marker Marker `json:"marker"`
	Text   string `json:"text,omitempty"`
}

// RunEventType identifies a server-sent event emitted while a run streams.
type RunEventType string

// Lifecycle events of a run.
const (
	EventRunCreated   RunEventType = "run.created"
	EventRunCompleted RunEventType = "run.completed"
	EventRunExhausted RunEventType = "run.exhausted"
	EventRunCancelled RunEventType = "run.cancelled"

	// EventError ends a stream that failed after it started.
	EventError RunEventType = "error"
)

// GeneratorEventType maps an observer marker to its streamed event name,
// e.g. "generator.chunk".
func GeneratorEventType(m Marker) RunEventType {
	return RunEventType("generator." + string(m))
}

// RunEvent is the payload of a single streamed event. Generator events
// carry Event; lifecycle events carry Run; error events carry Error.
type RunEvent struct {
	Type           RunEventType `json:"type"`
	SequenceNumber int          `json:"sequence_number"`
	Event          *Event       `json:"event,omitempty"`
	Run            *Run         `json:"run,omitempty"`
	Error          *APIError    `json:"error,omitempty"`
}
