// Package agentplane provides a high-level façade over the definition store,
// plan resolver, execution engine and runner, enabling rapid construction of
// composed agent systems. Most applications interact with this package by:
//  1. Creating an AgentPlane via New() (optionally overriding defaults)
//  2. Registering agent definitions (Direct, Sequential, Parallel, Loop,
//     Delegated, StateGraph, Task)
//  3. Running agents asynchronously (Run) or synchronously (RunSync)
//
// The façade delegates orchestration to runner.Runner while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable definition
// store, real model credentials and a structured logger.
package agentplane

import (
	"context"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/credential"
	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/engine"
	"github.com/agentplane/agentplane/logging"
	"github.com/agentplane/agentplane/model"
	"github.com/agentplane/agentplane/runner"
)

// Options configures the AgentPlane instance.
type Options struct {
	// Store holds agent definitions. Defaults to an in-memory store.
	Store definition.Store

	// Credentials resolves per-agent secrets for tool invocations. Optional.
	Credentials credential.Provider

	// ModelFactory builds model clients from definition parameters. Defaults
	// to the provider-dispatching factory (openai, anthropic, mock).
	ModelFactory engine.ModelFactory

	// MaxModelCalls limits model invocations per run.
	MaxModelCalls int

	// EventBufferSize sets the channel buffer size for event streaming.
	EventBufferSize int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentPlane is the high-level façade aggregating the store, engine and runner.
type AgentPlane struct {
	opts   Options
	store  definition.Store
	runner *runner.Runner
}

// New creates a new AgentPlane instance with optional overrides. Any unset
// collaborator is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *AgentPlane {
	opts := Options{
		Store:           definition.NewInMemoryStore(),
		ModelFactory:    engine.DefaultModelFactory,
		MaxModelCalls:   100,
		EventBufferSize: 100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(func(o *engine.Options) {
		o.Logger = opts.Logger
		o.ModelFactory = opts.ModelFactory
		o.Credentials = opts.Credentials
	})

	r := runner.New(opts.Store, func(o *runner.Options) {
		o.Engine = eng
		o.Logger = opts.Logger
		o.MaxModelCalls = opts.MaxModelCalls
		o.EventBufferSize = opts.EventBufferSize
	})

	return &AgentPlane{opts: opts, store: opts.Store, runner: r}
}

// Register stores an agent definition, making it runnable and referencable
// by other definitions. Requires the configured store to support writes (the
// default in-memory store does).
func (p *AgentPlane) Register(def *definition.AgentDefinition) error {
	type putter interface {
		Put(def *definition.AgentDefinition) error
	}
	s, ok := p.store.(putter)
	if !ok {
		return definition.ErrReadOnlyStore
	}
	return s.Put(def)
}

// Run starts an asynchronous run returning the run id plus event and error
// channels. The event stream ends with exactly one terminal event.
func (p *AgentPlane) Run(ctx context.Context, agentID string, input core.Content) (string, <-chan core.Event, <-chan error, error) {
	return p.runner.Run(ctx, agentID, input)
}

// RunSync runs an agent to completion, returning the collected events and
// the final output.
func (p *AgentPlane) RunSync(ctx context.Context, agentID string, input core.Content) ([]core.Event, core.Content, error) {
	return p.runner.RunSync(ctx, agentID, input)
}

// Cancel aborts a running run by id.
func (p *AgentPlane) Cancel(runID string) error {
	return p.runner.Cancel(runID)
}

// NewMockModel is re-exported for embedders scripting deterministic runs.
func NewMockModel(name string) *model.MockModel {
	return model.NewMockModel(name, "mock")
}
