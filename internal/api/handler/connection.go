package handler

import (
	"net/http"

	"github.com/Rrens/flexy-chat/internal/api/response"
	"github.com/Rrens/flexy-chat/internal/domain"
)

// ConnectionControl is the manual control surface of the chat connection
type ConnectionControl interface {
	Status() domain.ConnectionStatus
	SessionID() string
	Reconnect()
	Disconnect()
}

// ConnectionHandler handles realtime connection endpoints
type ConnectionHandler struct {
	conn ConnectionControl
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(conn ConnectionControl) *ConnectionHandler {
	return &ConnectionHandler{conn: conn}
}

// Status reports the connection status
func (h *ConnectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{
		"status":     h.conn.Status(),
		"session_id": h.conn.SessionID(),
	})
}

// Reconnect tears the connection down and connects again
func (h *ConnectionHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	if !domain.IsRealSession(h.conn.SessionID()) {
		response.Conflict(w, "no connectable chat session")
		return
	}

	h.conn.Reconnect()
	response.Accepted(w, map[string]any{"status": h.conn.Status()})
}

// Disconnect closes the connection without scheduling a retry
func (h *ConnectionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.conn.Disconnect()
	response.Accepted(w, map[string]any{"status": h.conn.Status()})
}
