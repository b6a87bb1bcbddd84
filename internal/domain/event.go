package domain

import "time"

// EventKind identifies a progress event type.
type EventKind string

const (
	EventRouting        EventKind = "routing"
	EventIterationStart EventKind = "iteration_start"
	EventModelCallStart EventKind = "model_call_start"
	EventToolCall       EventKind = "tool_call"
	EventStepComplete   EventKind = "step_complete"
	EventFinal          EventKind = "final"
	EventError          EventKind = "error"
	EventCancelled      EventKind = "cancelled"
)

// Terminal reports whether this kind ends a session's event stream.
func (k EventKind) Terminal() bool {
	return k == EventFinal || k == EventError || k == EventCancelled
}

// ProgressEvent is one entry in a session's ordered progress stream.
// Seq is assigned by the bus and increases per session.
type ProgressEvent struct {
	SessionID string            `json:"session_id"`
	Seq       uint64            `json:"seq"`
	Kind      EventKind         `json:"kind"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload,omitempty"`

	// Gap marks that at least one earlier event was dropped for this
	// subscriber before this one was delivered.
	Gap bool `json:"gap,omitempty"`
}

// EventSink receives progress events. Publish must never block.
type EventSink interface {
	Publish(ev ProgressEvent)
}
