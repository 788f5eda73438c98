package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Rrens/flexy-chat/internal/api/response"
	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/Rrens/flexy-chat/internal/service"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ChatSession is the message log and send path of the active conversation
type ChatSession interface {
	Activate(ctx context.Context, workspaceID int64, sessionID string) string
	Messages() []domain.Message
	SessionID() string
	WorkspaceID() int64
	Status() domain.ConnectionStatus
	Send(ctx context.Context, content string) error
	Subscribe() (<-chan domain.Message, func())
}

// SendMessageRequest is the body of POST /messages
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// ActivateRequest is the body of POST /session
type ActivateRequest struct {
	WorkspaceID int64  `json:"workspace_id" validate:"gte=0"`
	SessionID   string `json:"session_id" validate:"max=255"`
}

// SessionView describes the active session
type SessionView struct {
	SessionID   string                  `json:"session_id"`
	WorkspaceID int64                   `json:"workspace_id"`
	Provisional bool                    `json:"provisional"`
	Status      domain.ConnectionStatus `json:"status"`
}

// ChatHandler handles the message log endpoints
type ChatHandler struct {
	chat ChatSession
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat ChatSession) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Session returns the active session
func (h *ChatHandler) Session(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.view(h.chat.SessionID()))
}

// Activate switches to a workspace session, creating one when no id is given
func (h *ChatHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.ValidationError(w, err)
		return
	}

	sessionID := h.chat.Activate(r.Context(), req.WorkspaceID, req.SessionID)
	response.OK(w, h.view(sessionID))
}

func (h *ChatHandler) view(sessionID string) SessionView {
	return SessionView{
		SessionID:   sessionID,
		WorkspaceID: h.chat.WorkspaceID(),
		Provisional: domain.IsProvisional(sessionID),
		Status:      h.chat.Status(),
	}
}

// Messages returns the message log, optionally only the last ?limit= entries
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	messages := h.chat.Messages()

	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			response.BadRequest(w, "invalid limit")
			return
		}
		if limit < len(messages) {
			messages = messages[len(messages)-limit:]
		}
	}

	response.OK(w, map[string]any{
		"session_id": h.chat.SessionID(),
		"messages":   messages,
	})
}

// Send posts a user message to the active session
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.ValidationError(w, err)
		return
	}

	err := h.chat.Send(r.Context(), req.Content)
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		response.BadRequest(w, map[string]string{"Content": "field is required"})
		return
	case errors.Is(err, service.ErrNoSession):
		response.Conflict(w, "no active chat session")
		return
	case err != nil:
		response.InternalError(w, "failed to send message")
		return
	}

	response.Accepted(w, map[string]any{
		"session_id": h.chat.SessionID(),
		"status":     h.chat.Status(),
	})
}
