package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rickgao/autofilm-dash/internal/model"
)

// ListTasks fetches every task status.
func (c *Client) ListTasks(ctx context.Context) ([]model.TaskStatus, error) {
	var tasks []model.TaskStatus
	if err := c.get(ctx, "/api/tasks/", nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask fetches one task status.
func (c *Client) GetTask(ctx context.Context, id string) (*model.TaskStatus, error) {
	var task model.TaskStatus
	if err := c.get(ctx, "/api/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &task, nil
}

// TriggerTask starts a task in the background. The server rejects a task
// that is already running unless force is set.
func (c *Client) TriggerTask(ctx context.Context, id string, force bool) (*model.TaskActionResponse, error) {
	req := model.TriggerRequest{TaskID: id, Force: force}

	var resp model.TaskActionResponse
	if err := c.send(ctx, http.MethodPost, "/api/tasks/trigger", req, &resp); err != nil {
		return nil, fmt.Errorf("trigger task %s: %w", id, err)
	}
	return &resp, nil
}

// StopTask marks a running task as stopped.
func (c *Client) StopTask(ctx context.Context, id string) (*model.TaskActionResponse, error) {
	var resp model.TaskActionResponse
	if err := c.send(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/stop", nil, &resp); err != nil {
		return nil, fmt.Errorf("stop task %s: %w", id, err)
	}
	return &resp, nil
}

// TaskLogs fetches the last lines of the server log for a task.
func (c *Client) TaskLogs(ctx context.Context, id string, lines int) (*model.TaskLogs, error) {
	query := url.Values{}
	if lines > 0 {
		query.Set("lines", strconv.Itoa(lines))
	}

	var logs model.TaskLogs
	if err := c.get(ctx, "/api/tasks/"+url.PathEscape(id)+"/logs", query, &logs); err != nil {
		return nil, fmt.Errorf("get task logs %s: %w", id, err)
	}
	return &logs, nil
}
