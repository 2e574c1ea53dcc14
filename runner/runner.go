// Package runner is the caller-facing orchestration layer: it resolves the
// requested agent into a plan, executes it through the engine and exposes the
// run as an event stream with cancellation by run id. Every run's stream ends
// with exactly one terminal event (completed, error or cancelled) and nothing
// after it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/engine"
	"github.com/agentplane/agentplane/logging"
	"github.com/agentplane/agentplane/plan"
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for the run's event streams.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run.
	MaxModelCalls int
	// Resolver turns agent ids into plans. Defaults to a cached resolver
	// over the store.
	Resolver *plan.Resolver
	// Engine interprets resolved plans. Defaults to engine.New().
	Engine *engine.Engine
	// Logger receives runner diagnostics; default no-op.
	Logger logging.Logger
}

// Runner coordinates runs: plan resolution, execution context setup, event
// pumping and the active-run registry. Public methods are safe for
// concurrent use.
type Runner struct {
	resolver *plan.Resolver
	engine   *engine.Engine
	logger   logging.Logger

	eventBufferSize int
	maxModelCalls   int

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner over a definition store with optional overrides.
func New(store definition.Store, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Resolver == nil {
		opts.Resolver = plan.NewResolver(store, func(o *plan.Options) {
			o.Cache = plan.NewCache()
			o.Logger = opts.Logger
		})
	}
	if opts.Engine == nil {
		opts.Engine = engine.New(func(o *engine.Options) {
			o.Logger = opts.Logger
		})
	}

	return &Runner{
		resolver:        opts.Resolver,
		engine:          opts.Engine,
		logger:          opts.Logger,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// Run starts an asynchronous run of the named agent. Resolution failures are
// returned synchronously; execution failures arrive on the error channel and
// as the stream's terminal error event. Both channels close after the
// terminal event; consumers should drain the event channel until it closes.
func (r *Runner) Run(ctx context.Context, agentID string, input core.Content) (string, <-chan core.Event, <-chan error, error) {
	p, err := r.resolver.Resolve(ctx, agentID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("resolving agent %q: %w", agentID, err)
	}

	runID := core.NewID()
	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	engineEmit := make(chan core.Event, r.eventBufferSize)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	exec := core.NewExecutionContext(ctx, runID, engineEmit, func(o *core.ExecutionContextOptions) {
		o.MaxModelCalls = r.maxModelCalls
		o.Logger = r.logger
	})

	r.logger.Info("runner.run.start", "run_id", runID, "agent", agentID)

	go func() {
		defer func() {
			close(engineEmit)
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			cancel()
		}()

		out, err := r.engine.Execute(exec, p.Root, input)

		// The terminal event bypasses EmitEvent on purpose: after
		// cancellation EmitEvent refuses to send, but the terminal marker
		// must still reach the consumer. This goroutine is the only writer
		// left, and the pump drains engineEmit until close.
		switch {
		case err == nil:
			engineEmit <- core.NewCompletedEvent(runID, p.Root.ID, out)
		case errors.Is(err, context.Canceled) || ctx.Err() != nil:
			engineEmit <- core.NewCancelledEvent(runID, p.Root.ID)
		default:
			errorsCh <- fmt.Errorf("run %s failed: %w", runID, err)
			engineEmit <- core.NewErrorEvent(runID, p.Root.ID, err)
		}
	}()

	go func() {
		defer func() { close(eventsCh); close(errorsCh) }()
		r.pumpEvents(engineEmit, eventsCh)
	}()

	return runID, eventsCh, errorsCh, nil
}

// pumpEvents forwards engine events to the consumer in emission order. The
// execution goroutine enqueues the terminal marker after the engine has
// settled and closes the channel right after, so the terminal is the last
// event drained; every event emitted before it reaches the consumer no
// matter how slowly the consumer reads. The blocking send is the stream's
// backpressure: a slow caller throttles upstream production.
func (r *Runner) pumpEvents(engineEmit <-chan core.Event, eventsCh chan<- core.Event) {
	terminalSeen := false
	for ev := range engineEmit {
		if terminalSeen {
			continue
		}
		eventsCh <- ev
		if ev.IsTerminal() {
			terminalSeen = true
		}
	}
}

// Cancel aborts a running run by id. Unknown ids (including already-finished
// runs) report an error.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	r.logger.Info("runner.run.cancel", "run_id", runID)
	cancel()

	return nil
}

// RunSync runs the agent and blocks until completion, returning the collected
// events and the run's final output.
func (r *Runner) RunSync(ctx context.Context, agentID string, input core.Content) ([]core.Event, core.Content, error) {
	_, eventsCh, errorsCh, err := r.Run(ctx, agentID, input)
	if err != nil {
		return nil, core.Content{}, err
	}

	var events []core.Event
	var final core.Content
	for ev := range eventsCh {
		events = append(events, ev)
		if ev.Type == core.EventCompleted && ev.Content != nil {
			final = *ev.Content
		}
	}
	if err := <-errorsCh; err != nil {
		return events, core.Content{}, err
	}

	return events, final, nil
}
