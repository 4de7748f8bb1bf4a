package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpstudio/chatlink/pkg/logging"
	"github.com/mcpstudio/chatlink/pkg/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logging.NewLogger()
	logger.SetOutput(io.Discard)

	config := &ClientConfig{
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		RateLimit:  ratelimit.Rate{Limit: 100, Interval: time.Second},
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond,
		Logger:     logger,
	}
	return NewClient(config)
}

func TestClient_ExecuteTool(t *testing.T) {
	var gotRequest ToolExecutionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/tools/execute", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		_ = json.NewEncoder(w).Encode(ToolExecutionResult{
			Success:       true,
			Result:        json.RawMessage(`{"output":"hello"}`),
			ExecutionTime: 0.12,
		})
	})

	result, err := client.ExecuteTool(context.Background(), ToolExecutionRequest{
		ServerID:  1,
		ToolName:  "read_file",
		Arguments: map[string]interface{}{"path": "/tmp/x"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.JSONEq(t, `{"output":"hello"}`, string(result.Result))
	assert.Equal(t, "read_file", gotRequest.ToolName)
	assert.Equal(t, 1, gotRequest.ServerID)
}

func TestClient_ListServers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/servers/", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]ServerConfig{
			{ID: 1, Name: "filesystem", ConnectionType: "stdio", Status: ServerStatusConnected, Enabled: true},
			{ID: 2, Name: "search", ConnectionType: "http", Status: ServerStatusDisconnected},
		})
	})

	servers, err := client.ListServers(context.Background())
	require.NoError(t, err)

	require.Len(t, servers, 2)
	assert.Equal(t, "filesystem", servers[0].Name)
	assert.Equal(t, ServerStatusConnected, servers[0].Status)
}

func TestClient_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"servers": map[string][]Tool{}, "total_tools": 0})
	})

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, tools.TotalTools)
}

func TestClient_ReturnsAPIErrorWithDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Server 42 not found"}`))
	})

	_, err := client.GetServer(context.Background(), 42)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Server 42 not found", apiErr.Detail)
}

func TestClient_ConnectServerHitsCommandEndpoint(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"message":"connecting"}`))
	})

	require.NoError(t, client.ConnectServer(context.Background(), 7))
	assert.Equal(t, "/api/servers/7/connect", path)
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.ListServers(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
