package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/internal/testutil"
	"github.com/agentplane/agentplane/model"
	"github.com/agentplane/agentplane/tool"
)

func TestDirectPlainAnswer(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueText("final answer")

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, nil, &definition.AgentDefinition{
		ID:          "assistant",
		Kind:        definition.KindDirect,
		Instruction: "answer briefly",
	})
	exec, emit := newTestExec(context.Background())

	out, err := e.Execute(exec, root, core.NewTextContent("user", "question"))
	require.NoError(t, err)
	assert.Equal(t, "final answer", out.Text())

	events := drain(emit)
	types := testutil.Types(events)
	assert.Equal(t, core.EventNodeStarted, types[0])
	assert.Equal(t, core.EventNodeFinished, types[len(types)-1])
	assert.Equal(t, 1, testutil.CountType(events, core.EventMessage))
}

func TestDirectToolLoop(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueToolCall("call-1", "calculate_sum", `{"a":2,"b":3}`)
	m.EnqueueText("the sum is 5")

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, tool.NewCatalog(sumTool()), &definition.AgentDefinition{
		ID:   "calculator",
		Kind: definition.KindDirect,
	})
	exec, emit := newTestExec(context.Background())

	out, err := e.Execute(exec, root, core.NewTextContent("user", "2+3?"))
	require.NoError(t, err)
	assert.Equal(t, "the sum is 5", out.Text())
	assert.Equal(t, 2, m.Calls())

	events := drain(emit)
	assert.Equal(t, 1, testutil.CountType(events, core.EventToolCallStarted))
	assert.Equal(t, 1, testutil.CountType(events, core.EventToolCallResult))

	for _, ev := range events {
		if ev.Type == core.EventToolCallResult {
			require.NotNil(t, ev.ToolResult)
			assert.Equal(t, 5.0, ev.ToolResult.Result)
			assert.Empty(t, ev.ToolResult.Error)
		}
	}
}

func TestDirectToolErrorFedBack(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueToolCall("call-1", "missing_tool", `{}`)
	m.EnqueueText("recovered")

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, nil, &definition.AgentDefinition{ID: "a", Kind: definition.KindDirect})
	exec, emit := newTestExec(context.Background())

	// A failing tool is reported to the model, not fatal to the run.
	out, err := e.Execute(exec, root, core.NewTextContent("user", "go"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", out.Text())

	events := drain(emit)
	for _, ev := range events {
		if ev.Type == core.EventToolCallResult {
			assert.NotEmpty(t, ev.ToolResult.Error)
		}
	}
}

func TestDirectToolLoopExceeded(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueToolCall("call-1", "calculate_sum", `{"a":1,"b":1}`)
	m.EnqueueToolCall("call-2", "calculate_sum", `{"a":2,"b":2}`)

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, tool.NewCatalog(sumTool()), &definition.AgentDefinition{
		ID:            "looper",
		Kind:          definition.KindDirect,
		MaxToolRounds: 1,
	})
	exec, _ := newTestExec(context.Background())

	_, err := e.Execute(exec, root, core.NewTextContent("user", "go"))
	assert.ErrorIs(t, err, ErrToolLoopExceeded)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "looper", nodeErr.Node)
}

func TestDirectModelBudget(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueText("never served")

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, nil, &definition.AgentDefinition{ID: "a", Kind: definition.KindDirect})

	// A budget of one, already consumed, leaves nothing for the node.
	emit := make(chan core.Event, 64)
	exec := core.NewExecutionContext(context.Background(), "run", emit, func(o *core.ExecutionContextOptions) {
		o.MaxModelCalls = 1
	})
	require.NoError(t, exec.ModelCalls.Increment())

	_, err := e.Execute(exec, root, core.NewTextContent("user", "go"))
	assert.ErrorIs(t, err, ErrModelBudgetExceeded)
}

func TestDirectAgentTool(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	// Orchestrator asks for the sub-agent, the nested direct run answers,
	// then the orchestrator produces its final text.
	m.EnqueueToolCall("call-1", "summarizer", `{"input":"long text"}`)
	m.EnqueueText("nested summary")
	m.EnqueueText("done: nested summary")

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, nil,
		&definition.AgentDefinition{ID: "orchestrator", Kind: definition.KindDirect, AgentTools: []string{"summarizer"}},
		&definition.AgentDefinition{ID: "summarizer", Kind: definition.KindDirect},
	)
	exec, emit := newTestExec(context.Background())

	out, err := e.Execute(exec, root, core.NewTextContent("user", "summarize"))
	require.NoError(t, err)
	assert.Equal(t, "done: nested summary", out.Text())
	assert.Equal(t, 3, m.Calls())

	// The nested node's lifecycle events flow through the same stream.
	events := drain(emit)
	nested := 0
	for _, ev := range events {
		if ev.Node == "summarizer" && ev.Type == core.EventNodeStarted {
			nested++
		}
	}
	assert.Equal(t, 1, nested)
}
