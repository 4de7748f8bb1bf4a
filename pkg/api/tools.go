package api

import (
	"context"
	"net/http"
)

// ListTools returns every tool exposed by connected MCP servers.
func (c *Client) ListTools(ctx context.Context) (*ToolsResponse, error) {
	var tools ToolsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/tools/list", nil, &tools); err != nil {
		return nil, err
	}
	return &tools, nil
}

// ExecuteTool runs a tool on a specific server. The returned result is the
// synchronous acknowledgement; the backend also broadcasts the outcome as a
// tool_execution_result event for event channel subscribers.
func (c *Client) ExecuteTool(ctx context.Context, req ToolExecutionRequest) (*ToolExecutionResult, error) {
	var result ToolExecutionResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/tools/execute", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
