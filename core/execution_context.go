package core

import (
	"context"
	"sync"

	"github.com/agentplane/agentplane/logging"
)

// ExecutionContext carries the mutable, per-run execution scope handed to the
// engine. It aggregates:
//   - The ambient cancellation Context for the whole run
//   - The run identifier
//   - The emission channel events are streamed through
//   - Shared key/value State for state-graph predicate evaluation
//   - The accumulated Transcript of the current model-backed node
//   - A shared per-run model call budget
//
// An ExecutionContext is exclusively owned by one run and never shared across
// runs. Nested sub-plan executions (a sibling plan node invoked as a tool)
// derive a child context via Child: fresh transcript and state, same
// cancellation signal and emission channel.
type ExecutionContext struct {
	Context    context.Context
	RunID      string
	Emit       chan<- Event
	State      *State
	Transcript *Transcript
	ModelCalls *StepLimiter

	// stepMu serializes state-graph step bookkeeping against sibling
	// branches sharing this context's State. Struct-copy clones (WithEmit,
	// WithTranscript) share it; Child gets its own alongside its own State.
	stepMu *sync.Mutex

	*loggerAdapter
}

// ExecutionContextOptions configures construction of an ExecutionContext.
type ExecutionContextOptions struct {
	// MaxModelCalls bounds model invocations across the whole run. 0 means
	// unlimited.
	MaxModelCalls int
	// Logger used by the run. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewExecutionContext constructs a per-run context with empty state and
// transcript.
func NewExecutionContext(ctx context.Context, runID string, emit chan<- Event, optFns ...func(o *ExecutionContextOptions)) *ExecutionContext {
	opts := ExecutionContextOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &ExecutionContext{
		Context:       ctx,
		RunID:         runID,
		Emit:          emit,
		State:         NewState(),
		Transcript:    NewTranscript(),
		ModelCalls:    NewStepLimiter(opts.MaxModelCalls),
		stepMu:        &sync.Mutex{},
		loggerAdapter: newLoggerAdapter(opts.Logger),
	}
}

// Done returns a channel closed when the run is cancelled.
func (ec *ExecutionContext) Done() <-chan struct{} { return ec.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (ec *ExecutionContext) Err() error { return ec.Context.Err() }

// EmitEvent sends an event on the emission channel, honoring cancellation.
// The send blocks until the consumer advances, giving the stream pull-based
// backpressure: a slow caller throttles upstream production.
func (ec *ExecutionContext) EmitEvent(ev Event) error {
	select {
	case <-ec.Context.Done():
		return ec.Context.Err()
	case ec.Emit <- ev:
		return nil
	}
}

// Child derives a context for a nested sub-plan execution. The child shares
// the parent's cancellation signal, emission channel, logger and model call
// budget, but owns a fresh transcript and state so nested runs cannot corrupt
// the parent's conversation or graph state.
func (ec *ExecutionContext) Child() *ExecutionContext {
	return &ExecutionContext{
		Context:       ec.Context,
		RunID:         ec.RunID,
		Emit:          ec.Emit,
		State:         NewState(),
		Transcript:    NewTranscript(),
		ModelCalls:    ec.ModelCalls,
		stepMu:        &sync.Mutex{},
		loggerAdapter: ec.loggerAdapter,
	}
}

// LockSteps acquires the lock serializing state-graph step bookkeeping (the
// state update plus edge evaluation after a step) across sibling branches
// sharing this context's State. The returned func releases it.
func (ec *ExecutionContext) LockSteps() (unlock func()) {
	ec.stepMu.Lock()
	return ec.stepMu.Unlock
}

// WithEmit clones the context replacing the emission channel. Used by the
// stream multiplexer to give each concurrent child its own ordered channel.
func (ec *ExecutionContext) WithEmit(emit chan<- Event) *ExecutionContext {
	clone := *ec
	clone.Emit = emit
	return &clone
}

// WithTranscript clones the context replacing the transcript buffer. Each
// model-backed node owns its transcript; composite nodes pass derived copies
// to children without sharing the buffer.
func (ec *ExecutionContext) WithTranscript(t *Transcript) *ExecutionContext {
	clone := *ec
	clone.Transcript = t
	return &clone
}
