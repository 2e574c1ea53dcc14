package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/credential"
	"github.com/agentplane/agentplane/model"
	"github.com/agentplane/agentplane/plan"
	"github.com/agentplane/agentplane/tool"
)

// runDirect drives a model-backed node's tool-use loop: call the model with
// the transcript and tool declarations, execute any requested tools, feed
// results back, repeat until the model answers without tool calls or the
// round limit trips.
func (e *Engine) runDirect(exec *core.ExecutionContext, node *plan.Node, input core.Content) (core.Content, error) {
	m, err := e.opts.ModelFactory(node.Definition.Model)
	if err != nil {
		return core.Content{}, err
	}

	transcript := core.NewTranscript()
	if !input.IsEmpty() {
		transcript.Append(asUserContent(input))
	}
	tools := toolDefinitions(node.Catalog)

	maxRounds := node.Definition.MaxToolRounds
	toolRounds := 0
	for {
		if err := exec.ModelCalls.Increment(); err != nil {
			return core.Content{}, fmt.Errorf("%w: %v", ErrModelBudgetExceeded, err)
		}

		final, err := e.callModel(exec, node, m, model.Request{
			Instructions: node.Definition.Instruction,
			Contents:     transcript.Contents(),
			Tools:        tools,
			Temperature:  temperature(node),
			MaxTokens:    maxTokens(node),
			Stream:       true,
		})
		if err != nil {
			return core.Content{}, err
		}
		transcript.Append(final)

		calls := final.ToolCalls()
		if len(calls) == 0 {
			if err := exec.EmitEvent(core.NewMessageEvent(exec.RunID, node.ID, final)); err != nil {
				return core.Content{}, err
			}
			return final, nil
		}

		toolRounds++
		if toolRounds > maxRounds {
			return core.Content{}, fmt.Errorf("%w: %d rounds on %q", ErrToolLoopExceeded, maxRounds, node.ID)
		}

		results, err := e.executeToolCalls(exec, node, calls)
		if err != nil {
			return core.Content{}, err
		}
		transcript.Append(results)
	}
}

// callModel issues one generation, forwarding partial text as token events
// and returning the final content.
func (e *Engine) callModel(exec *core.ExecutionContext, node *plan.Node, m model.Model, req model.Request) (core.Content, error) {
	ctx := exec.Context
	if e.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.ModelTimeout)
		defer cancel()
	}

	respCh, errCh := m.Generate(ctx, req)

	var final *core.Content
	for resp := range respCh {
		if resp.Partial {
			if text := resp.Content.Text(); text != "" {
				if err := exec.EmitEvent(core.NewTokenEvent(exec.RunID, node.ID, text)); err != nil {
					return core.Content{}, err
				}
			}
			continue
		}
		c := resp.Content
		final = &c
	}
	if err := <-errCh; err != nil {
		return core.Content{}, fmt.Errorf("model call failed: %w", err)
	}
	if final == nil {
		return core.Content{}, fmt.Errorf("model produced no final response")
	}
	return *final, nil
}

// executeToolCalls runs each requested tool in declaration order. A tool
// failure becomes an error result fed back to the model, not a run failure;
// only infrastructure problems (cancellation, emit failure) abort.
func (e *Engine) executeToolCalls(exec *core.ExecutionContext, node *plan.Node, calls []core.ToolCall) (core.Content, error) {
	parts := make([]core.Part, 0, len(calls))
	for _, call := range calls {
		if err := exec.EmitEvent(core.NewToolCallStartedEvent(exec.RunID, node.ID, call)); err != nil {
			return core.Content{}, err
		}

		result, callErr := e.invokeTool(exec, node, call)

		if err := exec.EmitEvent(core.NewToolCallResultEvent(exec.RunID, node.ID, call, result, callErr)); err != nil {
			return core.Content{}, err
		}
		if exec.Err() != nil {
			return core.Content{}, exec.Err()
		}

		tr := core.ToolResult{ID: call.ID, Name: call.Name, Result: result}
		if callErr != nil {
			tr.Error = callErr.Error()
		}
		parts = append(parts, core.ToolResultPart{ToolResult: tr})
	}
	return core.Content{Role: "tool", Parts: parts}, nil
}

func (e *Engine) invokeTool(exec *core.ExecutionContext, node *plan.Node, call core.ToolCall) (any, error) {
	t, ok := node.Catalog.Get(call.Name)
	if !ok {
		return nil, tool.NewToolError(call.Name, "tool not found in catalog", "UNKNOWN_TOOL")
	}

	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, tool.NewToolError(call.Name, fmt.Sprintf("malformed arguments: %v", err), "VALIDATION_ERROR")
		}
	}

	var secret string
	if e.opts.Credentials != nil {
		resolved, err := e.opts.Credentials.Resolve(exec.Context, node.ID)
		switch {
		case err == nil:
			secret = resolved
		case errors.Is(err, credential.ErrAbsent):
			// Unauthenticated invocation is fine.
		default:
			return nil, tool.NewToolError(call.Name, fmt.Sprintf("credential resolution failed: %v", err), "CREDENTIAL_ERROR")
		}
	}

	ctx := exec.Context
	if e.opts.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.ToolTimeout)
		defer cancel()
	}

	tc := tool.NewContext(ctx, exec.RunID, node.ID, call.ID, func(o *tool.ContextOptions) {
		o.State = exec.State
		o.Logger = e.opts.Logger
		o.Runner = e.subPlanRunner(exec, node)
		o.Credential = secret
	})

	return t.Call(tc, args)
}

// subPlanRunner lets agent-wrapping tools execute their resolved sub-plan
// through the engine. The nested run derives a child context: shared
// cancellation, emission channel and model budget, fresh transcript and
// state.
func (e *Engine) subPlanRunner(exec *core.ExecutionContext, node *plan.Node) tool.SubPlanRunner {
	return func(_ context.Context, agent string, args map[string]any) (any, error) {
		child, ok := node.ToolAgents[agent]
		if !ok {
			return nil, fmt.Errorf("no sub-plan resolved for agent tool %q", agent)
		}

		var input core.Content
		if s, ok := args["input"].(string); ok && len(args) == 1 {
			input = core.NewTextContent("user", s)
		} else if len(args) > 0 {
			input = core.NewDataContent("user", args)
		}

		out, err := e.Execute(exec.Child(), child, input)
		if err != nil {
			return nil, err
		}
		if data, ok := out.AsData(); ok {
			return data, nil
		}
		return out.Text(), nil
	}
}

// toolDefinitions converts a catalog into model-facing declarations in the
// catalog's deterministic name order.
func toolDefinitions(catalog tool.Catalog) []model.ToolDefinition {
	if len(catalog) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(catalog))
	for _, name := range catalog.Names() {
		t, _ := catalog.Get(name)
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// asUserContent normalizes arbitrary node input into a user-role turn.
func asUserContent(c core.Content) core.Content {
	if c.Role == "" || c.Role == "assistant" {
		c.Role = "user"
	}
	return c
}

func temperature(node *plan.Node) *float64 {
	if node.Definition.Model.Temperature > 0 {
		t := node.Definition.Model.Temperature
		return &t
	}
	return nil
}

func maxTokens(node *plan.Node) *int {
	if node.Definition.Model.MaxTokens > 0 {
		n := int(node.Definition.Model.MaxTokens)
		return &n
	}
	return nil
}
