package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var args map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": args["q"]})
	}))
	defer srv.Close()

	ht := NewHTTPTool("search", "remote search", srv.URL, nil)
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	result, err := ht.Call(tc, map[string]any{"q": "golang"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"echo": "golang"}, result)
}

func TestHTTPToolSendsCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ht := NewHTTPTool("search", "remote search", srv.URL, nil)
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1", func(o *ContextOptions) {
		o.Credential = "s3cret"
	})

	_, err := ht.Call(tc, nil)
	require.NoError(t, err)
}

func TestHTTPToolErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	ht := NewHTTPTool("search", "remote search", srv.URL, nil)
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	_, err := ht.Call(tc, nil)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "HTTP_ERROR", toolErr.Code)
}

func TestHTTPToolNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	defer srv.Close()

	ht := NewHTTPTool("search", "remote search", srv.URL, nil)
	tc := NewContext(context.Background(), "run-1", "node-a", "call-1")

	result, err := ht.Call(tc, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", result)
}
