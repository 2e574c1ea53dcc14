package engine

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/agentplane/agentplane/core"
	"github.com/agentplane/agentplane/plan"
)

// runTask executes like Direct, then validates the final output against the
// declared success criteria. On mismatch the node is retried with a
// corrective prompt describing the violations, up to the retry bound; then
// the run fails with ErrGoalNotSatisfied.
func (e *Engine) runTask(exec *core.ExecutionContext, node *plan.Node, input core.Content) (core.Content, error) {
	cfg := node.Definition.Task
	schemaLoader := gojsonschema.NewGoLoader(cfg.SuccessSchema)

	attempts := cfg.MaxRetries + 1
	current := input
	var lastReason string
	for attempt := 0; attempt < attempts; attempt++ {
		out, err := e.runDirect(exec, node, current)
		if err != nil {
			return core.Content{}, err
		}

		lastReason = validateTaskOutput(schemaLoader, out)
		if lastReason == "" {
			return out, nil
		}

		e.opts.Logger.Debug("engine.task.retry", "node", node.ID, "attempt", attempt+1, "reason", lastReason)
		current = core.NewTextContent("user", fmt.Sprintf(
			"%s\n\nThe previous response did not satisfy the required output criteria: %s\nRespond again with a JSON object that satisfies the criteria.",
			input.Text(), lastReason,
		))
	}
	return core.Content{}, fmt.Errorf("%w after %d attempts: %s", ErrGoalNotSatisfied, attempts, lastReason)
}

// validateTaskOutput returns an empty string when the output satisfies the
// schema, otherwise a description of the violations.
func validateTaskOutput(schema gojsonschema.JSONLoader, out core.Content) string {
	data, ok := out.AsData()
	if !ok {
		return "output is not a JSON object"
	}
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Sprintf("criteria evaluation failed: %v", err)
	}
	if result.Valid() {
		return ""
	}
	var reasons []string
	for _, desc := range result.Errors() {
		reasons = append(reasons, desc.String())
	}
	return strings.Join(reasons, "; ")
}
