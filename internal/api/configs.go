package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rickgao/autofilm-dash/internal/model"
)

// GetConfig fetches the server's task configuration.
func (c *Client) GetConfig(ctx context.Context) (*model.ConfigDocument, error) {
	var doc model.ConfigDocument
	if err := c.get(ctx, "/api/config/", nil, &doc); err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return &doc, nil
}

// UpdateConfig replaces the server configuration, optionally backing up the
// current one first.
func (c *Client) UpdateConfig(ctx context.Context, update model.ConfigUpdate) (*model.ConfigUpdateResponse, error) {
	var resp model.ConfigUpdateResponse
	if err := c.send(ctx, http.MethodPut, "/api/config/", update, &resp); err != nil {
		return nil, fmt.Errorf("update config: %w", err)
	}
	return &resp, nil
}

// ValidateConfig runs the server-side configuration check.
func (c *Client) ValidateConfig(ctx context.Context) (*model.ValidationResult, error) {
	var result model.ValidationResult
	if err := c.get(ctx, "/api/config/validate", nil, &result); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &result, nil
}

// ConfigBackups lists saved configurations, newest first.
func (c *Client) ConfigBackups(ctx context.Context) ([]model.ConfigBackup, error) {
	var backups []model.ConfigBackup
	if err := c.get(ctx, "/api/config/backups", nil, &backups); err != nil {
		return nil, fmt.Errorf("list config backups: %w", err)
	}
	return backups, nil
}

// RestoreConfig replaces the configuration with a backup.
func (c *Client) RestoreConfig(ctx context.Context, filename string) (*model.FileActionResponse, error) {
	var resp model.FileActionResponse
	if err := c.send(ctx, http.MethodPost, "/api/config/restore/"+url.PathEscape(filename), nil, &resp); err != nil {
		return nil, fmt.Errorf("restore config %s: %w", filename, err)
	}
	return &resp, nil
}

// DeleteConfigBackup removes a saved configuration.
func (c *Client) DeleteConfigBackup(ctx context.Context, filename string) (*model.FileActionResponse, error) {
	var resp model.FileActionResponse
	if err := c.send(ctx, http.MethodDelete, "/api/config/backups/"+url.PathEscape(filename), nil, &resp); err != nil {
		return nil, fmt.Errorf("delete config backup %s: %w", filename, err)
	}
	return &resp, nil
}

// ConfigTemplate fetches an example configuration.
func (c *Client) ConfigTemplate(ctx context.Context) (map[string]any, error) {
	var tmpl map[string]any
	if err := c.get(ctx, "/api/config/template", nil, &tmpl); err != nil {
		return nil, fmt.Errorf("get config template: %w", err)
	}
	return tmpl, nil
}
