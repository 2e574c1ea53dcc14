package engine

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/plan"
)

// runStateGraph walks the graph from its start node. After each node run the
// shared state is updated, then the node's outgoing edges are evaluated in
// declaration order against the state; the first satisfied edge selects the
// next node. Update and evaluation happen under the run's step lock, so
// graphs on sibling Parallel branches sharing the state never interleave
// inside a step's bookkeeping. A node without outgoing edges is terminal.
// Cycles are legal; the step limit bounds total node executions.
func (e *Engine) runStateGraph(exec *core.ExecutionContext, node *plan.Node, input core.Content) (core.Content, error) {
	g := node.Graph
	limiter := core.NewStepLimiter(g.StepLimit)

	currentID := g.Start
	current := input
	for {
		if err := limiter.Increment(); err != nil {
			return core.Content{}, fmt.Errorf("%w: limit %d on %q", ErrStateGraphStepLimit, g.StepLimit, node.ID)
		}

		step, ok := g.Nodes[currentID]
		if !ok {
			return core.Content{}, fmt.Errorf("graph node %q not resolved", currentID)
		}

		out, err := e.Execute(exec, step, current)
		if err != nil {
			return core.Content{}, err
		}

		nextID, terminal, err := e.advance(exec, g, currentID, out)
		if err != nil {
			return core.Content{}, err
		}
		if terminal {
			return out, nil
		}
		currentID = nextID
		current = out
	}
}

// advance applies a finished step's output to the shared state and selects
// the successor. It holds the run's step lock for the whole
// update-then-evaluate sequence: a sibling branch's write can never land
// between this graph's own state update and its predicate read.
func (e *Engine) advance(exec *core.ExecutionContext, g *plan.GraphPlan, currentID string, out core.Content) (string, bool, error) {
	unlock := exec.LockSteps()
	defer unlock()

	exec.State.Set("last_node", currentID)
	if data, ok := out.AsData(); ok {
		exec.State.Apply(data)
		exec.State.Set("last_output", data)
	} else {
		exec.State.Set("last_output", out.Text())
	}

	return e.nextGraphNode(exec, g, currentID)
}

// nextGraphNode selects the successor of from. Edges are checked in
// declaration order; a nil predicate always matches. No outgoing edges means
// the node is terminal; outgoing edges with no satisfied predicate is a
// stuck graph.
func (e *Engine) nextGraphNode(exec *core.ExecutionContext, g *plan.GraphPlan, from string) (string, bool, error) {
	stateJSON, err := exec.State.JSON()
	if err != nil {
		return "", false, fmt.Errorf("serializing graph state: %w", err)
	}

	outgoing := false
	for _, edge := range g.Edges {
		if edge.From != from {
			continue
		}
		outgoing = true
		if satisfied(stateJSON, edge.When) {
			e.opts.Logger.Debug("engine.graph.transition", "from", from, "to", edge.To)
			return edge.To, false, nil
		}
	}
	if !outgoing {
		return "", true, nil
	}
	return "", false, fmt.Errorf("%w: %q", ErrNoApplicableTransition, from)
}

// satisfied evaluates one edge predicate against the serialized state.
func satisfied(stateJSON []byte, p *definition.Predicate) bool {
	if p == nil {
		return true
	}
	res := gjson.GetBytes(stateJSON, p.Path)

	switch p.Op {
	case "exists":
		return res.Exists()
	case "neq":
		return !looseEqual(res, p.Value)
	case "gt":
		return res.Exists() && res.Float() > toFloat(p.Value)
	case "lt":
		return res.Exists() && res.Float() < toFloat(p.Value)
	case "contains":
		return strings.Contains(res.String(), fmt.Sprint(p.Value))
	case "", "eq":
		return looseEqual(res, p.Value)
	default:
		return false
	}
}

// looseEqual compares a gjson result with an expected value, tolerating the
// int/float64 split JSON decoding introduces.
func looseEqual(res gjson.Result, want any) bool {
	if !res.Exists() {
		return want == nil
	}
	switch w := want.(type) {
	case nil:
		return res.Type == gjson.Null
	case bool:
		return res.IsBool() && res.Bool() == w
	case string:
		return res.String() == w
	case int, int32, int64, float32, float64:
		return res.Float() == toFloat(w)
	default:
		return res.String() == fmt.Sprint(w)
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
