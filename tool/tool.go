// Package tool implements the tool-calling subsystem: the uniform invocation
// interface the engine consumes, the per-node Catalog it is resolved into,
// and adapters for the heterogeneous tool sources (HTTP endpoints, local
// processes, sibling plan nodes exposed as callable agents).
package tool

import "fmt"

// Tool defines the uniform interface for invocable capabilities. The engine
// calls tools identically whether they are remote processes, HTTP services or
// nested sub-plan executions.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a JSON Schema for parameters
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool within a catalog.
	Name() string

	// Description returns a human-readable description of what this tool
	// does, surfaced to the model when building tool definitions.
	Description() string

	// Parameters returns a JSON Schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. A failure is reported to the calling node as a
	// tool-error event, never as a process-fatal error.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution with a stable
// code for categorization.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
