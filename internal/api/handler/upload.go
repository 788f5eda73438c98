package handler

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Rrens/flexy-chat/internal/api/response"
	"github.com/Rrens/flexy-chat/internal/domain"
)

const maxUploadSize = 100 << 20

var allowedExts = map[string]bool{".csv": true, ".xlsx": true, ".xls": true, ".json": true}

// FileBackend is the file ingestion resource of the backend
type FileBackend interface {
	UploadFile(ctx context.Context, filename string, content io.Reader, name string) (*domain.UploadedFile, error)
	FileStatus(ctx context.Context, id int64) (*domain.FileStatusReport, error)
}

// UploadHandler handles file upload endpoints
type UploadHandler struct {
	backend FileBackend
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(backend FileBackend) *UploadHandler {
	return &UploadHandler{backend: backend}
}

// Upload forwards a multipart "file" field to the backend for ingestion
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.BadRequest(w, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExts[ext] {
		response.BadRequest(w, "invalid file type. Allowed: .csv, .xlsx, .xls, .json")
		return
	}

	uploaded, err := h.backend.UploadFile(r.Context(), header.Filename, file, r.FormValue("name"))
	if err != nil {
		backendError(w, err, "upload file")
		return
	}

	response.Created(w, uploaded)
}

// Status reports the ingestion progress of a file
func (h *UploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}

	status, err := h.backend.FileStatus(r.Context(), id)
	if err != nil {
		backendError(w, err, "get file status")
		return
	}

	response.OK(w, status)
}
