package tool

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessToolEchoesJSON(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires cat")
	}

	pt := NewProcessTool("echo_args", "echoes stdin", "cat", nil)
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	result, err := pt.Call(tc, map[string]any{"key": "value"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"key": "value"}, result)
}

func TestProcessToolNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires false")
	}

	pt := NewProcessTool("fail", "always fails", "false", nil)
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	_, err := pt.Call(tc, nil)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "PROCESS_ERROR", toolErr.Code)
}

func TestProcessToolMissingBinary(t *testing.T) {
	pt := NewProcessTool("ghost", "missing binary", "definitely-not-a-real-binary-xyz", nil)
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	_, err := pt.Call(tc, nil)
	assert.Error(t, err)
}
