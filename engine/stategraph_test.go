package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/model"
)

func enqueueData(m *model.MockModel, data map[string]any) {
	m.Enqueue(model.Response{
		Content:      core.NewDataContent("assistant", data),
		FinishReason: "stop",
	})
}

func TestStateGraphPredicateRouting(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	enqueueData(m, map[string]any{"score": 1})
	enqueueData(m, map[string]any{"score": 5})
	m.EnqueueText("published")

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, nil,
		&definition.AgentDefinition{
			ID:   "workflow",
			Kind: definition.KindStateGraph,
			Graph: &definition.GraphConfig{
				Start: "gen",
				Nodes: []definition.GraphNode{
					{ID: "gen", Agent: "generator"},
					{ID: "pub", Agent: "publisher"},
				},
				Edges: []definition.GraphEdge{
					{From: "gen", To: "pub", When: &definition.Predicate{Path: "score", Op: "gt", Value: 3}},
					{From: "gen", To: "gen"},
				},
			},
		},
		&definition.AgentDefinition{ID: "generator", Kind: definition.KindDirect},
		&definition.AgentDefinition{ID: "publisher", Kind: definition.KindDirect},
	)
	exec, emit := newTestExec(context.Background())

	// score 1 loops back to gen, score 5 routes to pub, pub is terminal.
	out, err := e.Execute(exec, root, core.NewTextContent("user", "start"))
	require.NoError(t, err)
	assert.Equal(t, "published", out.Text())
	assert.Equal(t, 3, m.Calls())

	started := nodeOrder(drain(emit), core.EventNodeStarted)
	assert.Equal(t, []string{"workflow", "generator", "generator", "publisher"}, started)

	// Node outputs were merged into the shared state.
	score, ok := exec.State.Get("score")
	require.True(t, ok)
	assert.Equal(t, 5, score)
	last, _ := exec.State.Get("last_node")
	assert.Equal(t, "pub", last)
}

func TestStateGraphStepLimit(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	for i := 0; i < 4; i++ {
		m.EnqueueText("spinning")
	}

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, nil,
		&definition.AgentDefinition{
			ID:   "spinner",
			Kind: definition.KindStateGraph,
			Graph: &definition.GraphConfig{
				Start:     "a",
				Nodes:     []definition.GraphNode{{ID: "a", Agent: "worker"}},
				Edges:     []definition.GraphEdge{{From: "a", To: "a"}},
				StepLimit: 2,
			},
		},
		&definition.AgentDefinition{ID: "worker", Kind: definition.KindDirect},
	)
	exec, _ := newTestExec(context.Background())

	_, err := e.Execute(exec, root, core.NewTextContent("user", "start"))
	assert.ErrorIs(t, err, ErrStateGraphStepLimit)
	assert.Equal(t, 2, m.Calls())
}

func TestStateGraphNoApplicableTransition(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueText("plain text, no approval field")

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, nil,
		&definition.AgentDefinition{
			ID:   "workflow",
			Kind: definition.KindStateGraph,
			Graph: &definition.GraphConfig{
				Start: "a",
				Nodes: []definition.GraphNode{{ID: "a", Agent: "worker"}, {ID: "b", Agent: "worker"}},
				Edges: []definition.GraphEdge{
					{From: "a", To: "b", When: &definition.Predicate{Path: "approved", Op: "exists"}},
				},
			},
		},
		&definition.AgentDefinition{ID: "worker", Kind: definition.KindDirect},
	)
	exec, _ := newTestExec(context.Background())

	_, err := e.Execute(exec, root, core.NewTextContent("user", "start"))
	assert.ErrorIs(t, err, ErrNoApplicableTransition)
}

func TestStateGraphTerminalNode(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueText("one and done")

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, nil,
		&definition.AgentDefinition{
			ID:   "single",
			Kind: definition.KindStateGraph,
			Graph: &definition.GraphConfig{
				Start: "only",
				Nodes: []definition.GraphNode{{ID: "only", Agent: "worker"}},
			},
		},
		&definition.AgentDefinition{ID: "worker", Kind: definition.KindDirect},
	)
	exec, _ := newTestExec(context.Background())

	out, err := e.Execute(exec, root, core.NewTextContent("user", "start"))
	require.NoError(t, err)
	assert.Equal(t, "one and done", out.Text())
	assert.Equal(t, 1, m.Calls())
}

func TestParallelSiblingGraphsShareState(t *testing.T) {
	// Two graphs on sibling Parallel branches share the run's state. Each
	// cycles on its own counter key until its exit predicate holds; the
	// step lock keeps a sibling's write from landing between a graph's own
	// state update and its predicate read.
	wa := model.NewMockModel("wa", "mock")
	enqueueData(wa, map[string]any{"a": 1})
	enqueueData(wa, map[string]any{"a": 2})
	enqueueData(wa, map[string]any{"a": 3})
	fa := model.NewMockModel("fa", "mock")
	fa.EnqueueText("a done")

	wb := model.NewMockModel("wb", "mock")
	enqueueData(wb, map[string]any{"b": 1})
	enqueueData(wb, map[string]any{"b": 2})
	enqueueData(wb, map[string]any{"b": 3})
	fb := model.NewMockModel("fb", "mock")
	fb.EnqueueText("b done")

	models := map[string]model.Model{"wa": wa, "fa": fa, "wb": wb, "fb": fb}
	e := New(func(o *Options) {
		o.ModelFactory = func(p definition.ModelParams) (model.Model, error) {
			return models[p.Name], nil
		}
	})

	graphDef := func(id, key, worker, final string) *definition.AgentDefinition {
		return &definition.AgentDefinition{
			ID:   id,
			Kind: definition.KindStateGraph,
			Graph: &definition.GraphConfig{
				Start: "loop",
				Nodes: []definition.GraphNode{
					{ID: "loop", Agent: worker},
					{ID: "fin", Agent: final},
				},
				Edges: []definition.GraphEdge{
					{From: "loop", To: "fin", When: &definition.Predicate{Path: key, Op: "gt", Value: 2}},
					{From: "loop", To: "loop"},
				},
			},
		}
	}

	root := resolveRoot(t, nil,
		&definition.AgentDefinition{ID: "both", Kind: definition.KindParallel, SubAgents: []string{"ga", "gb"}},
		graphDef("ga", "a", "worker-a", "final-a"),
		graphDef("gb", "b", "worker-b", "final-b"),
		&definition.AgentDefinition{ID: "worker-a", Kind: definition.KindDirect, Model: definition.ModelParams{Name: "wa"}},
		&definition.AgentDefinition{ID: "final-a", Kind: definition.KindDirect, Model: definition.ModelParams{Name: "fa"}},
		&definition.AgentDefinition{ID: "worker-b", Kind: definition.KindDirect, Model: definition.ModelParams{Name: "wb"}},
		&definition.AgentDefinition{ID: "final-b", Kind: definition.KindDirect, Model: definition.ModelParams{Name: "fb"}},
	)
	exec, _ := newTestExec(context.Background())

	out, err := e.Execute(exec, root, core.NewTextContent("user", "start"))
	require.NoError(t, err)

	data, ok := out.AsData()
	require.True(t, ok)
	assert.Equal(t, []any{"a done", "b done"}, data["outputs"])

	// Both graphs drove their own counter to completion.
	a, _ := exec.State.Get("a")
	b, _ := exec.State.Get("b")
	assert.Equal(t, 3, a)
	assert.Equal(t, 3, b)
	assert.Equal(t, 3, wa.Calls())
	assert.Equal(t, 3, wb.Calls())
}

func TestPredicateOperators(t *testing.T) {
	state := []byte(`{"score":5,"status":"approved","note":"needs minor edits","flag":true}`)

	tests := []struct {
		name string
		p    *definition.Predicate
		want bool
	}{
		{"nil always matches", nil, true},
		{"eq string", &definition.Predicate{Path: "status", Op: "eq", Value: "approved"}, true},
		{"eq default op", &definition.Predicate{Path: "status", Value: "approved"}, true},
		{"eq number int", &definition.Predicate{Path: "score", Value: 5}, true},
		{"neq", &definition.Predicate{Path: "status", Op: "neq", Value: "rejected"}, true},
		{"gt", &definition.Predicate{Path: "score", Op: "gt", Value: 3}, true},
		{"gt false", &definition.Predicate{Path: "score", Op: "gt", Value: 5}, false},
		{"lt", &definition.Predicate{Path: "score", Op: "lt", Value: 10}, true},
		{"exists", &definition.Predicate{Path: "flag", Op: "exists"}, true},
		{"exists missing", &definition.Predicate{Path: "absent", Op: "exists"}, false},
		{"contains", &definition.Predicate{Path: "note", Op: "contains", Value: "minor"}, true},
		{"eq bool", &definition.Predicate{Path: "flag", Value: true}, true},
		{"missing path eq", &definition.Predicate{Path: "absent", Value: "x"}, false},
		{"unknown op", &definition.Predicate{Path: "score", Op: "matches", Value: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, satisfied(state, tt.p))
		})
	}
}
