package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/definition"
	"github.com/agentplane/agentplane/model"
)

func TestSequentialPipesOutputs(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueText("stage one done")
	m.EnqueueText("stage two done")

	e := New(func(o *Options) { o.ModelFactory = staticFactory(m) })
	root := resolveRoot(t, nil,
		&definition.AgentDefinition{ID: "pipeline", Kind: definition.KindSequential, SubAgents: []string{"s1", "s2"}},
		&definition.AgentDefinition{ID: "s1", Kind: definition.KindDirect},
		&definition.AgentDefinition{ID: "s2", Kind: definition.KindDirect},
	)
	exec, emit := newTestExec(context.Background())

	out, err := e.Execute(exec, root, core.NewTextContent("user", "start"))
	require.NoError(t, err)
	assert.Equal(t, "stage two done", out.Text())
	assert.Equal(t, 2, m.Calls())

	started := nodeOrder(drain(emit), core.EventNodeStarted)
	assert.Equal(t, []string{"pipeline", "s1", "s2"}, started)
}

func TestSequentialFailFast(t *testing.T) {
	m := model.NewMockModel("test", "mock")
	m.EnqueueText("stage one done")

	factory := func(p definition.ModelParams) (model.Model, error) {
		if p.Name == "broken" {
			return nil, errors.New("model unavailable")
		}
		return m, nil
	}

	e := New(func(o *Options) { o.ModelFactory = factory })
	root := resolveRoot(t, nil,
		&definition.AgentDefinition{ID: "pipeline", Kind: definition.KindSequential, SubAgents: []string{"s1", "s2", "s3"}},
		&definition.AgentDefinition{ID: "s1", Kind: definition.KindDirect},
		&definition.AgentDefinition{ID: "s2", Kind: definition.KindDirect, Model: definition.ModelParams{Name: "broken"}},
		&definition.AgentDefinition{ID: "s3", Kind: definition.KindDirect},
	)
	exec, emit := newTestExec(context.Background())

	_, err := e.Execute(exec, root, core.NewTextContent("user", "start"))
	require.Error(t, err)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "s2", nodeErr.Node)

	// The third stage never starts once the second fails.
	started := nodeOrder(drain(emit), core.EventNodeStarted)
	assert.NotContains(t, started, "s3")
	assert.Equal(t, 1, m.Calls())
}

// nodeOrder projects events of one type onto their originating node ids.
func nodeOrder(events []core.Event, typ core.EventType) []string {
	var out []string
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev.Node)
		}
	}
	return out
}
