package engine

import (
	"golang.org/x/sync/errgroup"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/plan"
)

// runParallel starts all children against the same input, bounded by
// MaxParallel. The combined output lists child outputs in declaration order
// regardless of completion order. A failing child does not interrupt its
// siblings: every child settles first (drain-on-error), then the first
// failure in declaration order is reported.
func (e *Engine) runParallel(exec *core.ExecutionContext, node *plan.Node, input core.Content) (core.Content, error) {
	n := len(node.Children)
	outputs := make([]core.Content, n)
	errs := make([]error, n)

	mux := newMultiplexer(exec)

	var g errgroup.Group
	g.SetLimit(e.opts.MaxParallel)
	for i, child := range node.Children {
		ch := mux.attach()
		g.Go(func() error {
			defer close(ch)
			out, err := e.Execute(exec.WithEmit(ch), child, input)
			outputs[i] = out
			errs[i] = err
			// Errors are collected, not returned: returning here would not
			// stop siblings anyway, and collecting keeps reporting ordered.
			return nil
		})
	}
	_ = g.Wait()
	mux.wait()

	for _, err := range errs {
		if err != nil {
			return core.Content{}, err
		}
	}

	outs := make([]any, n)
	for i, out := range outputs {
		if data, ok := out.AsData(); ok {
			outs[i] = data
		} else {
			outs[i] = out.Text()
		}
	}
	return core.NewDataContent("assistant", map[string]any{"outputs": outs}), nil
}
