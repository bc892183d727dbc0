package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rickgao/autofilm-dash/internal/model"
)

func logQueryValues(q model.LogQuery) url.Values {
	query := url.Values{}
	if q.Lines > 0 {
		query.Set("lines", strconv.Itoa(q.Lines))
	}
	if q.Level != "" {
		query.Set("level", q.Level)
	}
	if q.Keyword != "" {
		query.Set("keyword", q.Keyword)
	}
	return query
}

// QueryLogs reads the current log file.
func (c *Client) QueryLogs(ctx context.Context, q model.LogQuery) (*model.LogPage, error) {
	var page model.LogPage
	if err := c.get(ctx, "/api/logs/", logQueryValues(q), &page); err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	return &page, nil
}

// LogLevels lists the log levels the server filters on.
func (c *Client) LogLevels(ctx context.Context) (*model.LogLevels, error) {
	var levels model.LogLevels
	if err := c.get(ctx, "/api/logs/levels", nil, &levels); err != nil {
		return nil, fmt.Errorf("get log levels: %w", err)
	}
	return &levels, nil
}

// LogFiles lists the log files on the server.
func (c *Client) LogFiles(ctx context.Context) (*model.LogFiles, error) {
	var files model.LogFiles
	if err := c.get(ctx, "/api/logs/files", nil, &files); err != nil {
		return nil, fmt.Errorf("list log files: %w", err)
	}
	return &files, nil
}

// ReadLogFile reads a named log file with the same filters as QueryLogs.
func (c *Client) ReadLogFile(ctx context.Context, name string, q model.LogQuery) (*model.LogPage, error) {
	var page model.LogPage
	if err := c.get(ctx, "/api/logs/file/"+url.PathEscape(name), logQueryValues(q), &page); err != nil {
		return nil, fmt.Errorf("read log file %s: %w", name, err)
	}
	return &page, nil
}

// DeleteLogFile removes a rotated log file. The current file cannot be deleted.
func (c *Client) DeleteLogFile(ctx context.Context, name string) (*model.FileActionResponse, error) {
	var resp model.FileActionResponse
	if err := c.send(ctx, http.MethodDelete, "/api/logs/file/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, fmt.Errorf("delete log file %s: %w", name, err)
	}
	return &resp, nil
}

// ClearLog truncates the current log file after the server backs it up.
func (c *Client) ClearLog(ctx context.Context) (*model.FileActionResponse, error) {
	var resp model.FileActionResponse
	if err := c.send(ctx, http.MethodPost, "/api/logs/clear", nil, &resp); err != nil {
		return nil, fmt.Errorf("clear log: %w", err)
	}
	return &resp, nil
}
