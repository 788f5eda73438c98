package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Rrens/flexy-chat/internal/api/response"
	"github.com/Rrens/flexy-chat/internal/domain"
)

// InsightBackend is the insight resource of the backend
type InsightBackend interface {
	ListInsights(ctx context.Context, filter domain.InsightFilter) (*domain.InsightList, error)
	GetInsight(ctx context.Context, id int64) (*domain.GeneratedInsight, error)
	GenerateInsight(ctx context.Context, input domain.InsightGenerate) (*domain.GeneratedInsight, error)
	ExportInsight(ctx context.Context, id int64, input domain.InsightExport) (*domain.ExportResult, error)
}

// InsightHandler handles insight endpoints
type InsightHandler struct {
	backend InsightBackend
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(backend InsightBackend) *InsightHandler {
	return &InsightHandler{backend: backend}
}

// List returns insights filtered by ?workspace_id=, ?insight_type= and ?limit=
func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.InsightFilter{InsightType: q.Get("insight_type")}

	if v := q.Get("workspace_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid workspace_id")
			return
		}
		filter.WorkspaceID = id
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			response.BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	list, err := h.backend.ListInsights(r.Context(), filter)
	if err != nil {
		backendError(w, err, "list insights")
		return
	}

	response.OK(w, list)
}

// Get returns one insight
func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "insightID")
	if !ok {
		return
	}

	insight, err := h.backend.GetInsight(r.Context(), id)
	if err != nil {
		backendError(w, err, "get insight")
		return
	}

	response.OK(w, insight)
}

// Generate asks the backend for a new insight
func (h *InsightHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var input domain.InsightGenerate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.ValidationError(w, err)
		return
	}

	insight, err := h.backend.GenerateInsight(r.Context(), input)
	if err != nil {
		backendError(w, err, "generate insight")
		return
	}

	response.Created(w, insight)
}

// Export requests a downloadable export of an insight
func (h *InsightHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "insightID")
	if !ok {
		return
	}

	var input domain.InsightExport
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.ValidationError(w, err)
		return
	}

	result, err := h.backend.ExportInsight(r.Context(), id, input)
	if err != nil {
		backendError(w, err, "export insight")
		return
	}

	response.OK(w, result)
}
