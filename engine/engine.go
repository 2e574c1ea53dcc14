package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/credential"
	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/delegate"
	"github.com/agentplane/agentplane/logging"
	"github.com/agentplane/agentplane/model"
	"github.com/agentplane/agentplane/model/anthropic"
	"github.com/agentplane/agentplane/model/openai"
	"github.com/agentplane/agentplane/plan"
)

// ModelFactory builds a model client from definition parameters. The engine
// calls it once per model-backed node execution.
type ModelFactory func(params definition.ModelParams) (model.Model, error)

// DefaultModelFactory dispatches on the provider name. An empty provider or
// "mock" yields a deterministic mock, which keeps definitions runnable
// without API keys.
func DefaultModelFactory(params definition.ModelParams) (model.Model, error) {
	switch params.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if params.Name != "" {
				o.Model = params.Name
			}
			if params.Temperature > 0 {
				o.Temperature = params.Temperature
			}
			if params.MaxTokens > 0 {
				o.MaxCompletionTokens = params.MaxTokens
			}
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if params.Name != "" {
				o.Model = anthropicsdk.Model(params.Name)
			}
			if params.Temperature > 0 {
				o.Temperature = params.Temperature
			}
			if params.MaxTokens > 0 {
				o.MaxTokens = params.MaxTokens
			}
		}), nil
	case "", "mock":
		name := params.Name
		if name == "" {
			name = "mock-default"
		}
		return model.NewMockModel(name, "mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", params.Provider)
	}
}

// DelegationClient is the subset of delegate.Client the engine depends on,
// kept as an interface so tests can substitute fakes.
type DelegationClient interface {
	Send(ctx context.Context, input any, meta map[string]any) (any, error)
	Stream(ctx context.Context, input any, meta map[string]any) (<-chan delegate.StreamEnvelope, <-chan error, error)
}

// DelegateFactory builds a delegation client for a remote configuration.
type DelegateFactory func(cfg *definition.RemoteConfig) (DelegationClient, error)

// DefaultDelegateFactory builds delegate.Client instances carrying the
// node's timeout and attempt bounds.
func DefaultDelegateFactory(cfg *definition.RemoteConfig) (DelegationClient, error) {
	return delegate.NewClient(cfg.Endpoint, func(o *delegate.ClientOptions) {
		if cfg.Timeout > 0 {
			o.Timeout = cfg.Timeout
		}
		o.MaxAttempts = cfg.MaxAttempts
	})
}

// Options configure an Engine.
type Options struct {
	// Logger receives engine diagnostics; default no-op.
	Logger logging.Logger
	// ModelFactory builds model clients; default DefaultModelFactory.
	ModelFactory ModelFactory
	// DelegateFactory builds delegation clients; default
	// DefaultDelegateFactory.
	DelegateFactory DelegateFactory
	// Credentials resolves per-agent secrets for tool invocations. Optional.
	Credentials credential.Provider
	// MaxParallel bounds concurrently executing children of one Parallel
	// node. Default 8.
	MaxParallel int
	// ToolTimeout bounds each tool invocation. 0 means no bound.
	ToolTimeout time.Duration
	// ModelTimeout bounds each model call. 0 means no bound.
	ModelTimeout time.Duration
}

// Engine interprets resolved plans. It is stateless across runs and safe for
// concurrent use; all per-run state lives in the ExecutionContext.
type Engine struct {
	opts Options
}

// New creates an engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		ModelFactory:    DefaultModelFactory,
		DelegateFactory: DefaultDelegateFactory,
		MaxParallel:     8,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.ModelFactory == nil {
		opts.ModelFactory = DefaultModelFactory
	}
	if opts.DelegateFactory == nil {
		opts.DelegateFactory = DefaultDelegateFactory
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 8
	}
	return &Engine{opts: opts}
}

// Execute interprets one plan node against an input, emitting node lifecycle
// events around the kind-specific behavior. The returned content is the
// node's final output. Failures are attributed to the innermost failing node
// via NodeError.
func (e *Engine) Execute(exec *core.ExecutionContext, node *plan.Node, input core.Content) (core.Content, error) {
	if err := exec.Err(); err != nil {
		return core.Content{}, err
	}
	if err := exec.EmitEvent(core.NewNodeStartedEvent(exec.RunID, node.ID)); err != nil {
		return core.Content{}, err
	}
	e.opts.Logger.Debug("engine.node.start", "run_id", exec.RunID, "node", node.ID, "kind", string(node.Kind))

	var out core.Content
	var err error
	switch node.Kind {
	case definition.KindDirect:
		out, err = e.runDirect(exec, node, input)
	case definition.KindTask:
		out, err = e.runTask(exec, node, input)
	case definition.KindSequential:
		out, err = e.runSequential(exec, node, input)
	case definition.KindParallel:
		out, err = e.runParallel(exec, node, input)
	case definition.KindLoop:
		out, err = e.runLoop(exec, node, input)
	case definition.KindStateGraph:
		out, err = e.runStateGraph(exec, node, input)
	case definition.KindDelegated:
		out, err = e.runDelegated(exec, node, input)
	default:
		err = fmt.Errorf("unknown composition kind %q", node.Kind)
	}
	if err != nil {
		e.opts.Logger.Warn("engine.node.failed", "run_id", exec.RunID, "node", node.ID, "error", err.Error())
		return core.Content{}, attribute(node.ID, err)
	}

	if err := exec.EmitEvent(core.NewNodeFinishedEvent(exec.RunID, node.ID, out)); err != nil {
		return core.Content{}, err
	}
	e.opts.Logger.Debug("engine.node.finish", "run_id", exec.RunID, "node", node.ID)
	return out, nil
}

// attribute wraps err in a NodeError unless a nested node already claimed it
// or the failure is plain cancellation.
func attribute(nodeID string, err error) error {
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &NodeError{Node: nodeID, Err: err}
}
