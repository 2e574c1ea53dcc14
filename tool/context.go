package tool

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/logging"
)

// SubPlanRunner executes a sibling plan node exposed as a tool. The engine
// installs one per Direct-node tool loop; the nested run shares the caller's
// cancellation signal.
type SubPlanRunner func(ctx context.Context, agent string, args map[string]any) (any, error)

// Context provides a constrained surface for tool implementations: the
// invocation's cancellation context, identifiers for correlation, read/write
// access to the run's shared state, and the callback used by agent-wrapping
// tools to run a nested sub-plan.
type Context struct {
	ctx      context.Context
	runID    string
	node     string
	callID   string
	state    *core.State
	logger   logging.Logger
	runner   SubPlanRunner
	resolved string // decrypted credential for the invoking node; never logged
}

// ContextOptions configures construction of a tool Context.
type ContextOptions struct {
	State      *core.State
	Logger     logging.Logger
	Runner     SubPlanRunner
	Credential string
}

// NewContext constructs a tool context bound to one tool invocation.
func NewContext(ctx context.Context, runID, node, callID string, optFns ...func(o *ContextOptions)) *Context {
	opts := ContextOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.State == nil {
		opts.State = core.NewState()
	}
	return &Context{
		ctx:      ctx,
		runID:    runID,
		node:     node,
		callID:   callID,
		state:    opts.State,
		logger:   opts.Logger,
		runner:   opts.Runner,
		resolved: opts.Credential,
	}
}

// Context returns the cancellation context associated with the invocation.
func (tc *Context) Context() context.Context { return tc.ctx }

// RunID returns the run identifier.
func (tc *Context) RunID() string { return tc.runID }

// Node returns the identifier of the plan node invoking the tool.
func (tc *Context) Node() string { return tc.node }

// CallID returns the tool call identifier correlating request and result.
func (tc *Context) CallID() string { return tc.callID }

// Logger returns the logger bound to the invocation.
func (tc *Context) Logger() logging.Logger { return tc.logger }

// GetState retrieves a value from the run's shared state.
func (tc *Context) GetState(k string) (any, bool) { return tc.state.Get(k) }

// SetState stores a value in the run's shared state.
func (tc *Context) SetState(k string, v any) { tc.state.Set(k, v) }

// Credential returns the decrypted secret resolved for the invoking node, or
// empty when absent. Implementations must not log the value.
func (tc *Context) Credential() string { return tc.resolved }

// RunSubPlan executes a sibling plan node exposed as a tool. It fails when no
// runner is bound (i.e. the tool is invoked outside an engine execution).
func (tc *Context) RunSubPlan(agent string, args map[string]any) (any, error) {
	if tc.runner == nil {
		return nil, fmt.Errorf("no sub-plan runner bound for agent tool %q", agent)
	}
	return tc.runner(tc.ctx, agent, args)
}
