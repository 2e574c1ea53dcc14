package engine

import (
	"errors"
	"fmt"

	"github.com/agentplane/agentplane/delegate"
)

var (
	// ErrToolLoopExceeded is returned when a Direct node's model keeps
	// requesting tools past the per-node round limit.
	ErrToolLoopExceeded = errors.New("tool loop exceeded round limit")

	// ErrNoApplicableTransition is returned when a state graph node with
	// outgoing edges finishes and none of its edge predicates hold.
	ErrNoApplicableTransition = errors.New("no applicable transition from graph node")

	// ErrStateGraphStepLimit is returned when a state graph run exceeds its
	// step limit, the guard against unbounded cycles.
	ErrStateGraphStepLimit = errors.New("state graph step limit exceeded")

	// ErrGoalNotSatisfied is returned when a Task node exhausts its retries
	// without producing output matching the success criteria.
	ErrGoalNotSatisfied = errors.New("task goal not satisfied")

	// ErrModelBudgetExceeded is returned when the per-run model call budget
	// is exhausted.
	ErrModelBudgetExceeded = errors.New("model call budget exhausted")

	// ErrDelegationUnavailable reports a remote endpoint unreachable after
	// all configured attempts.
	ErrDelegationUnavailable = delegate.ErrUnavailable

	// ErrCapabilityMismatch reports a remote that cannot serve the requested
	// operation.
	ErrCapabilityMismatch = delegate.ErrCapabilityMismatch
)

// NodeError attributes a failure to the plan node it originated from. The
// engine wraps each error exactly once, at the innermost failing node, so
// the cause chain stays attributable through nested compositions.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
