package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Rrens/flexy-chat/internal/domain"
)

// ListInsights returns insights matching the filter
func (c *Client) ListInsights(ctx context.Context, filter domain.InsightFilter) (*domain.InsightList, error) {
	params := url.Values{}
	if filter.WorkspaceID != 0 {
		params.Set("workspace_id", strconv.FormatInt(filter.WorkspaceID, 10))
	}
	if filter.InsightType != "" {
		params.Set("insight_type", filter.InsightType)
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/insights"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var list domain.InsightList
	if err := c.get(ctx, path, &list); err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	return &list, nil
}

// GetInsight returns one insight
func (c *Client) GetInsight(ctx context.Context, id int64) (*domain.GeneratedInsight, error) {
	var insight domain.GeneratedInsight
	if err := c.get(ctx, "/insights/"+strconv.FormatInt(id, 10), &insight); err != nil {
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	return &insight, nil
}

// GenerateInsight asks the backend to build a new insight
func (c *Client) GenerateInsight(ctx context.Context, input domain.InsightGenerate) (*domain.GeneratedInsight, error) {
	var insight domain.GeneratedInsight
	if err := c.post(ctx, "/insights/generate", input, &insight); err != nil {
		return nil, fmt.Errorf("failed to generate insight: %w", err)
	}
	return &insight, nil
}

// ExportInsight requests a downloadable export of an insight
func (c *Client) ExportInsight(ctx context.Context, id int64, input domain.InsightExport) (*domain.ExportResult, error) {
	var result domain.ExportResult
	if err := c.post(ctx, "/insights/"+strconv.FormatInt(id, 10)+"/export", input, &result); err != nil {
		return nil, fmt.Errorf("failed to export insight: %w", err)
	}
	return &result, nil
}
