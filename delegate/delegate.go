// Package delegate implements the client side of the remote delegation
// protocol: capability discovery from a well-known path, unary invocation
// and streaming invocation of a plan hosted by another instance. Transport
// failures are retried with bounded exponential backoff; protocol-level
// incompatibilities are surfaced immediately.
package delegate

import (
	"encoding/json"
	"errors"
)

// WellKnownCardPath is the path, relative to the remote endpoint's origin,
// the capability card is served from.
const WellKnownCardPath = "/.well-known/agent-card.json"

// Request method names of the delegation protocol.
const (
	MethodSend   = "message/send"
	MethodStream = "message/stream"
)

// Stream envelope event names. Anything else is forwarded as an incremental
// payload event.
const (
	EventToken     = "token"
	EventMessage   = "message"
	EventCompleted = "completed"
	EventError     = "error"
)

// ErrUnavailable is returned when the remote endpoint cannot be reached
// after the configured number of attempts.
var ErrUnavailable = errors.New("delegation endpoint unavailable")

// ErrCapabilityMismatch is returned when the remote's capability card does
// not support the requested operation.
var ErrCapabilityMismatch = errors.New("remote capabilities do not support requested operation")

// ErrStreamInterrupted is returned when a streaming call drops before a
// terminal envelope arrives. Consumers must treat prior events as partial.
var ErrStreamInterrupted = errors.New("delegation stream interrupted before completion")

// Capabilities advertises what the remote instance supports.
type Capabilities struct {
	Streaming bool `json:"streaming"`
}

// Card is the capability description served from WellKnownCardPath.
type Card struct {
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Version      string       `json:"version,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// Params carries the payload of a delegation request: the input handed to
// the remote plan plus opaque caller context (correlation ids, trace data).
type Params struct {
	Input   any            `json:"input"`
	Context map[string]any `json:"context,omitempty"`
}

// Envelope is the request frame. Method selects unary or streaming
// semantics.
type Envelope struct {
	Method string `json:"method"`
	Params Params `json:"params"`
}

// SendResult is the unary response frame.
type SendResult struct {
	Result any          `json:"result,omitempty"`
	Error  *RemoteError `json:"error,omitempty"`
}

// RemoteError is an error reported by the remote instance itself, as
// opposed to a transport failure.
type RemoteError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return "remote error [" + e.Code + "]: " + e.Message
	}
	return "remote error: " + e.Message
}

// StreamEnvelope is one frame of a streaming response. The stream is a
// newline-delimited sequence of these, terminated by a completed or error
// envelope.
type StreamEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Terminal reports whether the envelope ends the stream.
func (e StreamEnvelope) Terminal() bool {
	return e.Event == EventCompleted || e.Event == EventError
}
