package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProvisionalPrefix marks session identifiers fabricated locally
const ProvisionalPrefix = "fallback-"

// ChatSession represents a conversation thread in a workspace
type ChatSession struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProvisionalSessionID fabricates a placeholder identifier used when the
// backend cannot issue a real session.
func NewProvisionalSessionID(workspaceID int64, now time.Time) string {
	return fmt.Sprintf("%s%d-%d", ProvisionalPrefix, workspaceID, now.UnixMilli())
}

// IsProvisional reports whether id was fabricated locally. Provisional ids are
// never used for history retrieval or for opening a connection.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// IsRealSession reports whether id is a usable server-issued identifier
func IsRealSession(id string) bool {
	return strings.TrimSpace(id) != "" && !IsProvisional(id)
}
