package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventConstructors(t *testing.T) {
	ev := NewTokenEvent("run-1", "node-a", "chunk")
	assert.Equal(t, EventToken, ev.Type)
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, "node-a", ev.Node)
	require.NotNil(t, ev.Content)
	assert.Equal(t, "chunk", ev.Content.Text())
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestToolCallResultEventCarriesError(t *testing.T) {
	call := ToolCall{ID: "c1", Name: "search"}
	ev := NewToolCallResultEvent("run-1", "node-a", call, nil, errors.New("boom"))

	require.NotNil(t, ev.ToolResult)
	assert.Equal(t, "c1", ev.ToolResult.ID)
	assert.Equal(t, "boom", ev.ToolResult.Error)
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		typ      EventType
		terminal bool
	}{
		{EventToken, false},
		{EventMessage, false},
		{EventNodeStarted, false},
		{EventNodeFinished, false},
		{EventCompleted, true},
		{EventError, true},
		{EventCancelled, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.terminal, NewEvent("r", "n", tc.typ).IsTerminal(), string(tc.typ))
	}
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
