package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Rrens/flexy-chat/internal/domain"
)

// ListWorkspaces returns the workspaces of the current user
func (c *Client) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	var resp struct {
		Workspaces []domain.Workspace `json:"workspaces"`
	}
	if err := c.get(ctx, "/workspaces", &resp); err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return resp.Workspaces, nil
}

// GetWorkspace returns one workspace
func (c *Client) GetWorkspace(ctx context.Context, id int64) (*domain.Workspace, error) {
	var ws domain.Workspace
	if err := c.get(ctx, "/workspaces/"+strconv.FormatInt(id, 10), &ws); err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &ws, nil
}

// CreateWorkspace creates a workspace
func (c *Client) CreateWorkspace(ctx context.Context, input domain.WorkspaceCreate) (*domain.Workspace, error) {
	var ws domain.Workspace
	if err := c.post(ctx, "/workspaces", input, &ws); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &ws, nil
}

// UpdateWorkspace applies a partial update to a workspace
func (c *Client) UpdateWorkspace(ctx context.Context, id int64, input domain.WorkspaceUpdate) (*domain.Workspace, error) {
	var ws domain.Workspace
	if err := c.put(ctx, "/workspaces/"+strconv.FormatInt(id, 10), input, &ws); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}
	return &ws, nil
}

// DeleteWorkspace deletes a workspace
func (c *Client) DeleteWorkspace(ctx context.Context, id int64) error {
	if err := c.delete(ctx, "/workspaces/"+strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	return nil
}
