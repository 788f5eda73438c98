package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Rrens/flexy-chat/internal/domain"
)

func dashboardPath(id int64) string {
	return "/dashboards/" + strconv.FormatInt(id, 10)
}

func widgetPath(dashboardID, widgetID int64) string {
	return dashboardPath(dashboardID) + "/widgets/" + strconv.FormatInt(widgetID, 10)
}

// ListDashboards returns the dashboards of the current user
func (c *Client) ListDashboards(ctx context.Context) ([]domain.Dashboard, error) {
	var resp struct {
		Dashboards []domain.Dashboard `json:"dashboards"`
	}
	if err := c.get(ctx, "/dashboards", &resp); err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	return resp.Dashboards, nil
}

// GetDashboard returns one dashboard with its widgets
func (c *Client) GetDashboard(ctx context.Context, id int64) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if err := c.get(ctx, dashboardPath(id), &d); err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}
	return &d, nil
}

// CreateDashboard creates an empty dashboard
func (c *Client) CreateDashboard(ctx context.Context, input domain.DashboardCreate) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if err := c.post(ctx, "/dashboards", input, &d); err != nil {
		return nil, fmt.Errorf("failed to create dashboard: %w", err)
	}
	return &d, nil
}

// UpdateDashboard applies a partial update to a dashboard
func (c *Client) UpdateDashboard(ctx context.Context, id int64, input domain.DashboardUpdate) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if err := c.put(ctx, dashboardPath(id), input, &d); err != nil {
		return nil, fmt.Errorf("failed to update dashboard: %w", err)
	}
	return &d, nil
}

// DeleteDashboard deletes a dashboard
func (c *Client) DeleteDashboard(ctx context.Context, id int64) error {
	if err := c.delete(ctx, dashboardPath(id)); err != nil {
		return fmt.Errorf("failed to delete dashboard: %w", err)
	}
	return nil
}

// AddWidget places an insight on a dashboard
func (c *Client) AddWidget(ctx context.Context, dashboardID int64, input domain.WidgetCreate) (*domain.DashboardWidget, error) {
	var widget domain.DashboardWidget
	if err := c.post(ctx, dashboardPath(dashboardID)+"/widgets", input, &widget); err != nil {
		return nil, fmt.Errorf("failed to add widget: %w", err)
	}
	return &widget, nil
}

// UpdateWidget moves or resizes a widget
func (c *Client) UpdateWidget(ctx context.Context, dashboardID, widgetID int64, input domain.WidgetUpdate) (*domain.DashboardWidget, error) {
	var widget domain.DashboardWidget
	if err := c.put(ctx, widgetPath(dashboardID, widgetID), input, &widget); err != nil {
		return nil, fmt.Errorf("failed to update widget: %w", err)
	}
	return &widget, nil
}

// RemoveWidget removes a widget from a dashboard
func (c *Client) RemoveWidget(ctx context.Context, dashboardID, widgetID int64) error {
	if err := c.delete(ctx, widgetPath(dashboardID, widgetID)); err != nil {
		return fmt.Errorf("failed to remove widget: %w", err)
	}
	return nil
}

// ExportDashboard starts an export of a dashboard
func (c *Client) ExportDashboard(ctx context.Context, id int64, input domain.DashboardExport) (*domain.DashboardExportResult, error) {
	var result domain.DashboardExportResult
	if err := c.post(ctx, dashboardPath(id)+"/export", input, &result); err != nil {
		return nil, fmt.Errorf("failed to export dashboard: %w", err)
	}
	return &result, nil
}
