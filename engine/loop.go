package engine

import (
	"strings"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/plan"
)

// runLoop executes the single child up to the configured iteration bound,
// feeding each iteration's output back as the next iteration's input. An
// output containing the stop marker ends the loop early. Reaching the bound
// is normal termination, not an error.
func (e *Engine) runLoop(exec *core.ExecutionContext, node *plan.Node, input core.Content) (core.Content, error) {
	cfg := node.Definition.Loop
	child := node.Children[0]

	current := input
	for i := 0; i < cfg.MaxIterations; i++ {
		out, err := e.Execute(exec, child, current)
		if err != nil {
			return core.Content{}, err
		}
		current = out

		if cfg.StopMarker != "" && strings.Contains(out.Text(), cfg.StopMarker) {
			e.opts.Logger.Debug("engine.loop.stop_marker", "node", node.ID, "iteration", i+1)
			break
		}
	}
	return current, nil
}
