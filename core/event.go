package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes a unit of streamed engine output.
type EventType string

const (
	// EventToken is an incremental text fragment from a model-backed node.
	EventToken EventType = "token"
	// EventMessage is a complete (non-partial) message produced by a node.
	EventMessage EventType = "message"
	// EventToolCallStarted signals that a node began invoking a tool.
	EventToolCallStarted EventType = "tool_call_started"
	// EventToolCallResult carries the outcome of a tool invocation.
	EventToolCallResult EventType = "tool_call_result"
	// EventNodeStarted signals that a plan node (or nested sub-plan) began executing.
	EventNodeStarted EventType = "node_started"
	// EventNodeFinished signals that a plan node completed successfully.
	EventNodeFinished EventType = "node_finished"
	// EventError is the terminal marker for a failed run.
	EventError EventType = "error"
	// EventCompleted is the terminal marker for a successful run.
	EventCompleted EventType = "completed"
	// EventCancelled is the terminal marker for a cancelled run.
	EventCancelled EventType = "cancelled"
)

// Event is the unit of the engine's output stream. After emission it should
// be treated as immutable. Node always names the plan node the event
// originated from so failures and tool activity stay attributable.
//
// A run's stream is terminated by exactly one of EventCompleted, EventError
// or EventCancelled; no events follow the terminal marker.
type Event struct {
	ID         string      `json:"id"`
	RunID      string      `json:"run_id"`
	Node       string      `json:"node"`
	Type       EventType   `json:"type"`
	Timestamp  time.Time   `json:"timestamp"`
	Content    *Content    `json:"content,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	ErrorMsg   string      `json:"error,omitempty"`
}

// NewEvent creates a bare event bound to a run and originating node.
func NewEvent(runID, node string, typ EventType) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Node:      node,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenEvent constructs an incremental text fragment event.
func NewTokenEvent(runID, node, text string) Event {
	ev := NewEvent(runID, node, EventToken)
	c := NewTextContent("assistant", text)
	ev.Content = &c
	return ev
}

// NewMessageEvent constructs a complete message event.
func NewMessageEvent(runID, node string, content Content) Event {
	ev := NewEvent(runID, node, EventMessage)
	ev.Content = &content
	return ev
}

// NewToolCallStartedEvent records the start of a tool invocation.
func NewToolCallStartedEvent(runID, node string, call ToolCall) Event {
	ev := NewEvent(runID, node, EventToolCallStarted)
	ev.ToolCall = &call
	return ev
}

// NewToolCallResultEvent records the outcome of a tool invocation. If err is
// non-nil its message is copied into the result's Error field.
func NewToolCallResultEvent(runID, node string, call ToolCall, result any, err error) Event {
	ev := NewEvent(runID, node, EventToolCallResult)
	tr := ToolResult{ID: call.ID, Name: call.Name, Result: result}
	if err != nil {
		tr.Error = err.Error()
	}
	ev.ToolResult = &tr
	return ev
}

// NewNodeStartedEvent marks the beginning of a plan node's execution.
func NewNodeStartedEvent(runID, node string) Event {
	return NewEvent(runID, node, EventNodeStarted)
}

// NewNodeFinishedEvent marks successful completion of a plan node, carrying
// its final output.
func NewNodeFinishedEvent(runID, node string, output Content) Event {
	ev := NewEvent(runID, node, EventNodeFinished)
	ev.Content = &output
	return ev
}

// NewCompletedEvent constructs the successful terminal marker with the run's
// final output.
func NewCompletedEvent(runID, node string, output Content) Event {
	ev := NewEvent(runID, node, EventCompleted)
	ev.Content = &output
	return ev
}

// NewErrorEvent constructs the failure terminal marker.
func NewErrorEvent(runID, node string, err error) Event {
	ev := NewEvent(runID, node, EventError)
	if err != nil {
		ev.ErrorMsg = err.Error()
	}
	return ev
}

// NewCancelledEvent constructs the cancellation terminal marker.
func NewCancelledEvent(runID, node string) Event {
	return NewEvent(runID, node, EventCancelled)
}

// IsTerminal reports whether the event ends the run's stream.
func (e Event) IsTerminal() bool {
	switch e.Type {
	case EventCompleted, EventError, EventCancelled:
		return true
	default:
		return false
	}
}

// NewID generates a unique identifier for events and runs.
func NewID() string { return uuid.NewString() }
