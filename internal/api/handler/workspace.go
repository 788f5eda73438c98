package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Rrens/flexy-chat/internal/api/response"
	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/go-chi/chi/v5"
)

// WorkspaceBackend is the workspace resource of the backend
type WorkspaceBackend interface {
	ListWorkspaces(ctx context.Context) ([]domain.Workspace, error)
	GetWorkspace(ctx context.Context, id int64) (*domain.Workspace, error)
	CreateWorkspace(ctx context.Context, input domain.WorkspaceCreate) (*domain.Workspace, error)
	DeleteWorkspace(ctx context.Context, id int64) error
}

// WorkspaceHandler handles workspace endpoints
type WorkspaceHandler struct {
	backend WorkspaceBackend
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(backend WorkspaceBackend) *WorkspaceHandler {
	return &WorkspaceHandler{backend: backend}
}

// Create handles workspace creation
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.WorkspaceCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.ValidationError(w, err)
		return
	}

	workspace, err := h.backend.CreateWorkspace(r.Context(), input)
	if err != nil {
		backendError(w, err, "create workspace")
		return
	}

	response.Created(w, workspace)
}

// List handles listing the user's workspaces
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	workspaces, err := h.backend.ListWorkspaces(r.Context())
	if err != nil {
		backendError(w, err, "list workspaces")
		return
	}

	response.OK(w, workspaces)
}

// Get handles getting a single workspace
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	workspace, err := h.backend.GetWorkspace(r.Context(), id)
	if err != nil {
		backendError(w, err, "get workspace")
		return
	}

	response.OK(w, workspace)
}

// Delete handles workspace deletion
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	if err := h.backend.DeleteWorkspace(r.Context(), id); err != nil {
		backendError(w, err, "delete workspace")
		return
	}

	response.NoContent(w)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid "+param)
		return 0, false
	}
	return id, true
}
