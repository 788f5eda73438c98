package domain

import "time"

// Workspace groups uploaded files and chat sessions
type Workspace struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Files         []UploadedFile `json:"files"`
	ChatSessions  []ChatSession  `json:"chat_sessions,omitempty"`
	InsightsCount int            `json:"insights_count,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// WorkspaceCreate represents workspace creation data
type WorkspaceCreate struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description" validate:"max=2000"`
	FileIDs     []int64 `json:"file_ids,omitempty"`
}

// WorkspaceUpdate represents workspace update data
type WorkspaceUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	FileIDs     []int64 `json:"file_ids,omitempty"`
}
