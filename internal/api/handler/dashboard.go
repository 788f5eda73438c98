package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Rrens/flexy-chat/internal/api/response"
	"github.com/Rrens/flexy-chat/internal/domain"
)

// DashboardBackend is the dashboard resource of the backend
type DashboardBackend interface {
	ListDashboards(ctx context.Context) ([]domain.Dashboard, error)
	GetDashboard(ctx context.Context, id int64) (*domain.Dashboard, error)
	CreateDashboard(ctx context.Context, input domain.DashboardCreate) (*domain.Dashboard, error)
	UpdateDashboard(ctx context.Context, id int64, input domain.DashboardUpdate) (*domain.Dashboard, error)
	DeleteDashboard(ctx context.Context, id int64) error
	AddWidget(ctx context.Context, dashboardID int64, input domain.WidgetCreate) (*domain.DashboardWidget, error)
	UpdateWidget(ctx context.Context, dashboardID, widgetID int64, input domain.WidgetUpdate) (*domain.DashboardWidget, error)
	RemoveWidget(ctx context.Context, dashboardID, widgetID int64) error
	ExportDashboard(ctx context.Context, id int64, input domain.DashboardExport) (*domain.DashboardExportResult, error)
}

// DashboardHandler handles dashboard and widget endpoints
type DashboardHandler struct {
	backend DashboardBackend
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(backend DashboardBackend) *DashboardHandler {
	return &DashboardHandler{backend: backend}
}

// decodeValid decodes a JSON body into v and validates it. It writes the
// error response itself and reports whether the handler may continue.
func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		response.ValidationError(w, err)
		return false
	}
	return true
}

func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	dashboards, err := h.backend.ListDashboards(r.Context())
	if err != nil {
		backendError(w, err, "list dashboards")
		return
	}
	response.OK(w, dashboards)
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "dashboardID")
	if !ok {
		return
	}

	dashboard, err := h.backend.GetDashboard(r.Context(), id)
	if err != nil {
		backendError(w, err, "get dashboard")
		return
	}
	response.OK(w, dashboard)
}

func (h *DashboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.DashboardCreate
	if !decodeValid(w, r, &input) {
		return
	}

	dashboard, err := h.backend.CreateDashboard(r.Context(), input)
	if err != nil {
		backendError(w, err, "create dashboard")
		return
	}
	response.Created(w, dashboard)
}

func (h *DashboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "dashboardID")
	if !ok {
		return
	}
	var input domain.DashboardUpdate
	if !decodeValid(w, r, &input) {
		return
	}

	dashboard, err := h.backend.UpdateDashboard(r.Context(), id, input)
	if err != nil {
		backendError(w, err, "update dashboard")
		return
	}
	response.OK(w, dashboard)
}

func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "dashboardID")
	if !ok {
		return
	}

	if err := h.backend.DeleteDashboard(r.Context(), id); err != nil {
		backendError(w, err, "delete dashboard")
		return
	}
	response.NoContent(w)
}

// AddWidget places an insight on the dashboard
func (h *DashboardHandler) AddWidget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "dashboardID")
	if !ok {
		return
	}
	var input domain.WidgetCreate
	if !decodeValid(w, r, &input) {
		return
	}

	widget, err := h.backend.AddWidget(r.Context(), id, input)
	if err != nil {
		backendError(w, err, "add widget")
		return
	}
	response.Created(w, widget)
}

func (h *DashboardHandler) UpdateWidget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "dashboardID")
	if !ok {
		return
	}
	widgetID, ok := pathID(w, r, "widgetID")
	if !ok {
		return
	}
	var input domain.WidgetUpdate
	if !decodeValid(w, r, &input) {
		return
	}

	widget, err := h.backend.UpdateWidget(r.Context(), id, widgetID, input)
	if err != nil {
		backendError(w, err, "update widget")
		return
	}
	response.OK(w, widget)
}

func (h *DashboardHandler) RemoveWidget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "dashboardID")
	if !ok {
		return
	}
	widgetID, ok := pathID(w, r, "widgetID")
	if !ok {
		return
	}

	if err := h.backend.RemoveWidget(r.Context(), id, widgetID); err != nil {
		backendError(w, err, "remove widget")
		return
	}
	response.NoContent(w)
}

// Export starts a dashboard export on the backend
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "dashboardID")
	if !ok {
		return
	}
	var input domain.DashboardExport
	if !decodeValid(w, r, &input) {
		return
	}

	result, err := h.backend.ExportDashboard(r.Context(), id, input)
	if err != nil {
		backendError(w, err, "export dashboard")
		return
	}
	response.Accepted(w, result)
}
