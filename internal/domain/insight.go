package domain

import "time"

// GeneratedInsight is a saved chart or KPI produced from a chat turn
type GeneratedInsight struct {
	ID            int64          `json:"id"`
	WorkspaceID   int64          `json:"workspace_id"`
	ChatMessageID *int64         `json:"chat_message_id,omitempty"`
	InsightType   string         `json:"insight_type"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	ChartConfig   map[string]any `json:"chart_config"`
	Data          any            `json:"data"`
	SQLQuery      string         `json:"sql_query"`
	CreatedAt     time.Time      `json:"created_at"`
}

// InsightFilter narrows an insight listing
type InsightFilter struct {
	WorkspaceID int64
	InsightType string
	Limit       int
}

// InsightList is a page of insights
type InsightList struct {
	Insights []GeneratedInsight `json:"insights"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PerPage  int                `json:"per_page"`
}

// InsightGenerate requests a new insight for a workspace
type InsightGenerate struct {
	WorkspaceID int64  `json:"workspace_id" validate:"required"`
	Query       string `json:"query" validate:"required,max=2000"`
	InsightType string `json:"insight_type,omitempty" validate:"omitempty,oneof=line_chart bar_chart pie_chart table kpi"`
}

// InsightExport requests an export of an insight
type InsightExport struct {
	Format string `json:"format" validate:"required,oneof=png pdf csv xlsx"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ExportResult points to a downloadable export
type ExportResult struct {
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
