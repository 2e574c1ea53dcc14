package engine

import (
	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/plan"
)

// runSequential executes children in declaration order, piping each child's
// output into the next child's input. The first failure stops the chain;
// later children never start.
func (e *Engine) runSequential(exec *core.ExecutionContext, node *plan.Node, input core.Content) (core.Content, error) {
	current := input
	for _, child := range node.Children {
		out, err := e.Execute(exec, child, current)
		if err != nil {
			return core.Content{}, err
		}
		current = out
	}
	return current, nil
}
