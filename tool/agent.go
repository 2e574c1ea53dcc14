package tool

// AgentTool exposes a sibling plan node as a callable tool. The actual
// execution is deferred to the SubPlanRunner the engine binds into the tool
// Context, which keeps this package free of any dependency on plan or engine
// internals. The nested run observes the parent's cancellation and model call
// budget but gets a fresh transcript and state.
type AgentTool struct {
	agent       string
	description string
	parameters  map[string]any
}

// NewAgentTool creates a tool that runs the named agent when called. If
// parameters is nil, a permissive single-field schema accepting free-form
// input is used.
func NewAgentTool(agent, description string, parameters map[string]any) *AgentTool {
	if parameters == nil {
		parameters = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input": map[string]any{
					"type":        "string",
					"description": "Input to forward to the agent",
				},
			},
			"required": []string{"input"},
		}
	}
	return &AgentTool{agent: agent, description: description, parameters: parameters}
}

// Name returns the wrapped agent's identifier.
func (t *AgentTool) Name() string { return t.agent }

// Description returns the description surfaced to models.
func (t *AgentTool) Description() string { return t.description }

// Parameters returns the JSON Schema describing expected arguments.
func (t *AgentTool) Parameters() map[string]any { return t.parameters }

// Call runs the wrapped agent through the engine-bound sub-plan runner.
func (t *AgentTool) Call(toolCtx *Context, args map[string]any) (any, error) {
	toolCtx.Logger().Debug("tool.agent.call", "agent", t.agent, "call_id", toolCtx.CallID())

	result, err := toolCtx.RunSubPlan(t.agent, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{Tool: t.agent, Message: err.Error(), Code: "AGENT_ERROR"}
	}
	return result, nil
}
