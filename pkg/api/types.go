package api

import "encoding/json"

// ServerStatus is the lifecycle state of a configured MCP server as reported
// by the backend.
type ServerStatus string

const (
	ServerStatusConnected    ServerStatus = "connected"
	ServerStatusConnecting   ServerStatus = "connecting"
	ServerStatusDisconnected ServerStatus = "disconnected"
	ServerStatusError        ServerStatus = "error"
)

// ServerConfig is a configured MCP server as stored by the backend.
type ServerConfig struct {
	ID             int               `json:"id"`
	Name           string            `json:"name"`
	ConnectionType string            `json:"connection_type"`
	Command        string            `json:"command,omitempty"`
	Args           []string          `json:"args,omitempty"`
	URL            string            `json:"url,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Timeout        int               `json:"timeout,omitempty"`
	RetryCount     int               `json:"retry_count,omitempty"`
	Enabled        bool              `json:"enabled"`
	Status         ServerStatus      `json:"status"`
	LastError      string            `json:"last_error,omitempty"`
	CreatedAt      string            `json:"created_at,omitempty"`
	UpdatedAt      string            `json:"updated_at,omitempty"`
}

// ServerCreateRequest describes a new MCP server configuration. stdio
// servers require Command; http servers require URL.
type ServerCreateRequest struct {
	Name           string            `json:"name"`
	ConnectionType string            `json:"connection_type"`
	Command        string            `json:"command,omitempty"`
	Args           []string          `json:"args,omitempty"`
	URL            string            `json:"url,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Timeout        int               `json:"timeout,omitempty"`
	RetryCount     int               `json:"retry_count,omitempty"`
	Enabled        bool              `json:"enabled"`
}

// Tool describes a tool exposed by a connected MCP server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ToolsResponse is the backend's aggregate tool listing, keyed by server ID.
type ToolsResponse struct {
	Servers    map[string][]Tool `json:"servers"`
	TotalTools int               `json:"total_tools"`
}

// ToolExecutionRequest asks the backend to run a tool on a specific server.
// The execution is acknowledged over this request/response channel, but the
// result is also broadcast as a tool_execution_result event on the event
// channel.
type ToolExecutionRequest struct {
	ServerID  int                    `json:"server_id"`
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// ToolExecutionResult reports the outcome of a tool execution.
type ToolExecutionResult struct {
	Success       bool            `json:"success"`
	Result        json.RawMessage `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
	ExecutionTime float64         `json:"execution_time,omitempty"`
}
