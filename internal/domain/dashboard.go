package domain

import "time"

// Dashboard is a named grid of insight widgets
type Dashboard struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Layout       *DashboardLayout  `json:"layout,omitempty"`
	Widgets      []DashboardWidget `json:"widgets"`
	WidgetsCount int               `json:"widgets_count,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// DashboardLayout is the grid size of a dashboard
type DashboardLayout struct {
	GridCols int `json:"grid_cols"`
	GridRows int `json:"grid_rows"`
}

// DashboardWidget places one insight on a dashboard grid
type DashboardWidget struct {
	ID        int64            `json:"id"`
	Insight   GeneratedInsight `json:"insight"`
	PositionX int              `json:"position_x"`
	PositionY int              `json:"position_y"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
}

// DashboardCreate is the input for creating a dashboard
type DashboardCreate struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

// DashboardUpdate is a partial dashboard update
type DashboardUpdate struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string          `json:"description,omitempty"`
	Layout      *DashboardLayout `json:"layout,omitempty"`
}

// WidgetCreate places an insight on a dashboard
type WidgetCreate struct {
	InsightID int64 `json:"insight_id" validate:"required"`
	PositionX int   `json:"position_x" validate:"gte=0"`
	PositionY int   `json:"position_y" validate:"gte=0"`
	Width     int   `json:"width" validate:"gt=0"`
	Height    int   `json:"height" validate:"gt=0"`
}

// WidgetUpdate moves or resizes a widget
type WidgetUpdate struct {
	PositionX *int `json:"position_x,omitempty"`
	PositionY *int `json:"position_y,omitempty"`
	Width     *int `json:"width,omitempty"`
	Height    *int `json:"height,omitempty"`
}

// DashboardExport requests an export of a dashboard
type DashboardExport struct {
	Format      string `json:"format" validate:"required,oneof=pdf png xlsx"`
	IncludeData bool   `json:"include_data,omitempty"`
	Template    string `json:"template,omitempty"`
}

// DashboardExportResult tracks an asynchronous dashboard export
type DashboardExportResult struct {
	ExportID    string    `json:"export_id"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	Status      string    `json:"status"`
}
