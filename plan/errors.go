package plan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRecursionTooDeep is returned when resolution exceeds the configured
// nesting bound before finding a cycle.
var ErrRecursionTooDeep = errors.New("agent nesting exceeds maximum resolution depth")

// CycleError reports a reference cycle found during resolution. Path holds
// the definition ids from the first repeated agent back to itself.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected in agent references: %s", strings.Join(e.Path, " -> "))
}

// ValidationError reports a structurally invalid definition discovered during
// resolution, naming the offending agent and field.
type ValidationError struct {
	Agent  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid definition %q: field %s: %s", e.Agent, e.Field, e.Reason)
}
