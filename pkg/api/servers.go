package api

import (
	"context"
	"fmt"
	"net/http"
)

// ListServers returns every configured MCP server.
func (c *Client) ListServers(ctx context.Context) ([]ServerConfig, error) {
	var servers []ServerConfig
	if err := c.doJSON(ctx, http.MethodGet, "/api/servers/", nil, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// GetServer returns one server configuration by ID.
func (c *Client) GetServer(ctx context.Context, serverID int) (*ServerConfig, error) {
	var server ServerConfig
	path := fmt.Sprintf("/api/servers/%d", serverID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &server); err != nil {
		return nil, err
	}
	return &server, nil
}

// CreateServer registers a new MCP server configuration.
func (c *Client) CreateServer(ctx context.Context, req ServerCreateRequest) (*ServerConfig, error) {
	var server ServerConfig
	if err := c.doJSON(ctx, http.MethodPost, "/api/servers/", req, &server); err != nil {
		return nil, err
	}
	return &server, nil
}

// DeleteServer removes a server configuration.
func (c *Client) DeleteServer(ctx context.Context, serverID int) error {
	path := fmt.Sprintf("/api/servers/%d", serverID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// ConnectServer asks the backend to establish the MCP connection for a
// server. The call returns once the command is accepted; the resulting state
// change arrives as a server_status_update event on the event channel.
func (c *Client) ConnectServer(ctx context.Context, serverID int) error {
	path := fmt.Sprintf("/api/servers/%d/connect", serverID)
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// DisconnectServer asks the backend to drop the MCP connection for a server.
// Like ConnectServer, completion is observed on the event channel.
func (c *Client) DisconnectServer(ctx context.Context, serverID int) error {
	path := fmt.Sprintf("/api/servers/%d/disconnect", serverID)
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// AllServerStatus returns the backend's current status snapshot for every
// server, keyed by server ID.
func (c *Client) AllServerStatus(ctx context.Context) (map[string]ServerStatus, error) {
	var status map[string]ServerStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/servers/status/all", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}
