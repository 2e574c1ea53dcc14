package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/internal/testutil"
	"github.com/agentplane/agentplane/model"
	"github.com/agentplane/agentplane/plan"
	"github.com/agentplane/agentplane/tool"
)

// newTestExec builds an execution context with a generously buffered emit
// channel so tests never block on event production.
func newTestExec(ctx context.Context) (*core.ExecutionContext, chan core.Event) {
	emit := make(chan core.Event, 1024)
	exec := core.NewExecutionContext(ctx, "test-run", emit)
	return exec, emit
}

// staticFactory hands the same model to every node, letting tests script
// multi-node runs through one FIFO.
func staticFactory(m model.Model) ModelFactory {
	return func(definition.ModelParams) (model.Model, error) {
		return m, nil
	}
}

// resolveRoot puts the definitions in a store and resolves the first one.
func resolveRoot(t *testing.T, base tool.Catalog, defs ...*definition.AgentDefinition) *plan.Node {
	t.Helper()
	store := definition.NewInMemoryStore()
	for _, def := range defs {
		require.NoError(t, store.Put(def))
	}
	r := plan.NewResolver(store, func(o *plan.Options) {
		o.BaseCatalog = base
	})
	p, err := r.Resolve(context.Background(), defs[0].ID)
	require.NoError(t, err)
	return p.Root
}

func sumTool() tool.Tool {
	return tool.NewFunctionTool("calculate_sum", "Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(tc *tool.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		})
}

func drain(emit chan core.Event) []core.Event {
	return testutil.Drain(emit)
}
