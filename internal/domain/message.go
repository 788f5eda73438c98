package domain

import (
	"context"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of the visible chat log
type Message struct {
	ID        int64            `json:"id"`
	SessionID string           `json:"session_id"`
	Role      MessageRole      `json:"message_type"`
	Content   string           `json:"content"`
	Chart     *ChartRecord     `json:"chart_data,omitempty"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	Display   Display          `json:"display"`
	CreatedAt time.Time        `json:"created_at"`
}

// MessageMetadata holds optional server-side annotations of a message
type MessageMetadata struct {
	InsightID      *int64   `json:"insight_id,omitempty"`
	ProcessingTime *float64 `json:"processing_time,omitempty"`
	TokensUsed     *int     `json:"tokens_used,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
}

// Display is the render-ready decomposition of a message's content into prose
// and the charts embedded in it. It is computed once when the message is
// ingested.
type Display struct {
	Prose  string        `json:"prose"`
	Charts []ChartRecord `json:"charts,omitempty"`
}

// HasCharts reports whether the message carries any chart to render
func (m *Message) HasCharts() bool {
	return m.Chart != nil || len(m.Display.Charts) > 0
}

// MessageJournal persists the local message log
type MessageJournal interface {
	Append(ctx context.Context, message *Message) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Message, error)
}
