package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// ProcessTool invokes a local executable as a tool. Arguments are written to
// the process's stdin as a JSON object; stdout is decoded as JSON when
// possible and returned as trimmed text otherwise. A non-zero exit becomes a
// *ToolError with code PROCESS_ERROR carrying the captured stderr.
type ProcessTool struct {
	name        string
	description string
	parameters  map[string]any
	command     string
	cmdArgs     []string
}

// NewProcessTool creates a tool backed by the given command. The command runs
// under the invocation's context, so cancelling the run kills the process.
func NewProcessTool(name, description, command string, parameters map[string]any, cmdArgs ...string) *ProcessTool {
	return &ProcessTool{
		name:        name,
		description: description,
		parameters:  parameters,
		command:     command,
		cmdArgs:     cmdArgs,
	}
}

// Name returns the unique tool name.
func (t *ProcessTool) Name() string { return t.name }

// Description returns the tool description surfaced to models.
func (t *ProcessTool) Description() string { return t.description }

// Parameters returns the JSON Schema describing expected arguments.
func (t *ProcessTool) Parameters() map[string]any { return t.parameters }

// Call validates args, runs the command with args on stdin and parses stdout.
func (t *ProcessTool) Call(toolCtx *Context, args map[string]any) (any, error) {
	if err := ValidateArguments(args, t.parameters); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
		}
	}

	if args == nil {
		args = map[string]any{}
	}
	input, err := json.Marshal(args)
	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}

	cmd := exec.CommandContext(toolCtx.Context(), t.command, t.cmdArgs...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	toolCtx.Logger().Debug("tool.process.exec", "tool", t.name, "command", t.command)

	if err := cmd.Run(); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("%v: %s", err, truncate(strings.TrimSpace(stderr.String()), 256)),
			Code:    "PROCESS_ERROR",
		}
	}

	out := stdout.Bytes()
	var decoded any
	if err := json.Unmarshal(out, &decoded); err != nil {
		return strings.TrimSpace(string(out)), nil
	}
	return decoded, nil
}
