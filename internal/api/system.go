package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rickgao/autofilm-dash/internal/model"
)

// SystemInfo fetches the host overview.
func (c *Client) SystemInfo(ctx context.Context) (*model.SystemInfo, error) {
	var info model.SystemInfo
	if err := c.get(ctx, "/api/system/info", nil, &info); err != nil {
		return nil, fmt.Errorf("get system info: %w", err)
	}
	return &info, nil
}

// Health fetches the component health report.
func (c *Client) Health(ctx context.Context) (*model.HealthStatus, error) {
	var health model.HealthStatus
	if err := c.get(ctx, "/api/system/health", nil, &health); err != nil {
		return nil, fmt.Errorf("get health: %w", err)
	}
	return &health, nil
}

// Stats fetches the file and process counters.
func (c *Client) Stats(ctx context.Context) (*model.SystemStats, error) {
	var stats model.SystemStats
	if err := c.get(ctx, "/api/system/stats", nil, &stats); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &stats, nil
}

// Version fetches the server build description.
func (c *Client) Version(ctx context.Context) (*model.VersionInfo, error) {
	var v model.VersionInfo
	if err := c.get(ctx, "/api/system/version", nil, &v); err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &v, nil
}

// Environment fetches the server's runtime paths and flags.
func (c *Client) Environment(ctx context.Context) (*model.Environment, error) {
	var env model.Environment
	if err := c.get(ctx, "/api/system/environment", nil, &env); err != nil {
		return nil, fmt.Errorf("get environment: %w", err)
	}
	return &env, nil
}

// Restart asks the server to restart itself.
func (c *Client) Restart(ctx context.Context) (*model.MessageResponse, error) {
	var resp model.MessageResponse
	if err := c.send(ctx, http.MethodPost, "/api/system/restart", nil, &resp); err != nil {
		return nil, fmt.Errorf("restart: %w", err)
	}
	return &resp, nil
}
