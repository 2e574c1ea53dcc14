package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTool invokes a remote HTTP endpoint as a tool. Arguments are sent as a
// JSON object in a POST body; the response body is decoded as JSON when
// possible and returned verbatim otherwise. Non-2xx responses become
// *ToolError with code HTTP_ERROR.
type HTTPTool struct {
	name        string
	description string
	parameters  map[string]any
	endpoint    string
	client      *http.Client
}

// HTTPToolOptions configures an HTTPTool.
type HTTPToolOptions struct {
	// Client is the HTTP client used for requests. Defaults to a client with
	// a 30 second timeout.
	Client *http.Client
}

// NewHTTPTool creates a tool backed by the given endpoint.
func NewHTTPTool(name, description, endpoint string, parameters map[string]any, optFns ...func(o *HTTPToolOptions)) *HTTPTool {
	opts := HTTPToolOptions{
		Client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &HTTPTool{
		name:        name,
		description: description,
		parameters:  parameters,
		endpoint:    endpoint,
		client:      opts.Client,
	}
}

// Name returns the unique tool name.
func (t *HTTPTool) Name() string { return t.name }

// Description returns the tool description surfaced to models.
func (t *HTTPTool) Description() string { return t.description }

// Parameters returns the JSON Schema describing expected arguments.
func (t *HTTPTool) Parameters() map[string]any { return t.parameters }

// Call validates args, POSTs them to the endpoint and decodes the reply.
func (t *HTTPTool) Call(toolCtx *Context, args map[string]any) (any, error) {
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
	body, err := json.Marshal(args)
	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}

	req, err := http.NewRequestWithContext(toolCtx.Context(), http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	req.Header.Set("Content-Type", "application/json")
	if cred := toolCtx.Credential(); cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	toolCtx.Logger().Debug("tool.http.request", "tool", t.name, "endpoint", t.endpoint)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: "HTTP_ERROR"}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: "HTTP_ERROR"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("endpoint returned status %d: %s", resp.StatusCode, truncate(string(payload), 256)),
			Code:    "HTTP_ERROR",
		}
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		// Not JSON; hand back the raw text.
		return string(payload), nil
	}
	return decoded, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
