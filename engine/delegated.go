package engine

import (
	"encoding/json"
	"fmt"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/delegate"
	"github.com/agentplane/agentplane/plan"
)

// runDelegated forwards the input to the remote plan and relays its output.
// Streaming remotes have their events re-emitted verbatim, tagged with this
// node's identifier; unary remotes yield a single message. Transport retries
// and capability checks live in the delegate client.
func (e *Engine) runDelegated(exec *core.ExecutionContext, node *plan.Node, input core.Content) (core.Content, error) {
	client, err := e.opts.DelegateFactory(node.Remote)
	if err != nil {
		return core.Content{}, err
	}

	var payload any
	if data, ok := input.AsData(); ok {
		payload = data
	} else {
		payload = input.Text()
	}
	meta := map[string]any{
		"run_id": exec.RunID,
		"node":   node.ID,
	}

	if node.Remote.Streaming {
		return e.relayStream(exec, node, client, payload, meta)
	}

	result, err := client.Send(exec.Context, payload, meta)
	if err != nil {
		return core.Content{}, err
	}
	out := contentFromValue(result)
	if err := exec.EmitEvent(core.NewMessageEvent(exec.RunID, node.ID, out)); err != nil {
		return core.Content{}, err
	}
	return out, nil
}

// relayStream re-emits remote envelopes as local events until the remote's
// terminal envelope arrives. An interrupted stream surfaces as an error so
// consumers never mistake a truncation for completion.
func (e *Engine) relayStream(exec *core.ExecutionContext, node *plan.Node, client DelegationClient, payload any, meta map[string]any) (core.Content, error) {
	envs, errCh, err := client.Stream(exec.Context, payload, meta)
	if err != nil {
		return core.Content{}, err
	}

	var final core.Content
	completed := false
	for env := range envs {
		switch env.Event {
		case delegate.EventToken:
			if err := exec.EmitEvent(core.NewTokenEvent(exec.RunID, node.ID, decodeText(env.Data))); err != nil {
				return core.Content{}, err
			}
		case delegate.EventMessage:
			msg := contentFromValue(decodeValue(env.Data))
			if err := exec.EmitEvent(core.NewMessageEvent(exec.RunID, node.ID, msg)); err != nil {
				return core.Content{}, err
			}
		case delegate.EventCompleted:
			final = contentFromValue(decodeValue(env.Data))
			completed = true
		case delegate.EventError:
			return core.Content{}, fmt.Errorf("remote execution failed: %s", decodeText(env.Data))
		default:
			e.opts.Logger.Debug("engine.delegate.unknown_event", "node", node.ID, "event", env.Event)
		}
	}
	if err := <-errCh; err != nil {
		return core.Content{}, err
	}
	if !completed {
		return core.Content{}, delegate.ErrStreamInterrupted
	}
	return final, nil
}

// decodeValue interprets envelope data as JSON, falling back to raw text.
func decodeValue(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	return v
}

// decodeText renders envelope data as text: JSON strings lose their quoting,
// objects prefer a "text" or "message" field.
func decodeText(data json.RawMessage) string {
	switch v := decodeValue(data).(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if s, ok := v["text"].(string); ok {
			return s
		}
		if s, ok := v["message"].(string); ok {
			return s
		}
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// contentFromValue normalizes a remote result into assistant content.
func contentFromValue(v any) core.Content {
	switch val := v.(type) {
	case nil:
		return core.Content{Role: "assistant"}
	case string:
		return core.NewTextContent("assistant", val)
	case map[string]any:
		return core.NewDataContent("assistant", val)
	default:
		return core.NewTextContent("assistant", fmt.Sprint(val))
	}
}
