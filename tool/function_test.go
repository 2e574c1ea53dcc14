package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSumTool() *FunctionTool {
	return NewFunctionTool("calculate_sum", "Calculate the sum of two numbers", sumSchema,
		func(tc *Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		})
}

func TestFunctionToolCall(t *testing.T) {
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	result, err := newSumTool().Call(tc, map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionToolValidationError(t *testing.T) {
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	_, err := newSumTool().Call(tc, map[string]any{"a": 2.0})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "calculate_sum", toolErr.Tool)
}

func TestFunctionToolExecutionError(t *testing.T) {
	failing := NewFunctionTool("boom", "always fails", nil, func(tc *Context, args map[string]any) (any, error) {
		return nil, errors.New("kaput")
	})
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	_, err := failing.Call(tc, nil)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Equal(t, "kaput", toolErr.Message)
}

func TestFunctionToolPreservesToolError(t *testing.T) {
	failing := NewFunctionTool("boom", "always fails", nil, func(tc *Context, args map[string]any) (any, error) {
		return nil, NewToolError("boom", "quota exceeded", "RATE_LIMITED")
	})
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	_, err := failing.Call(tc, nil)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

func TestToolErrorMessage(t *testing.T) {
	err := NewToolError("search", "timeout", "HTTP_ERROR")
	assert.Equal(t, "tool error [HTTP_ERROR] in search: timeout", err.Error())

	err = &ToolError{Tool: "search", Message: "timeout"}
	assert.Equal(t, "tool error in search: timeout", err.Error())
}
