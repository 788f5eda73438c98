package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Rrens/flexy-chat/internal/chart"
	"github.com/Rrens/flexy-chat/internal/domain"
)

// wireMessage is a chat message as the backend serializes it. The backend
// reports session_id as its numeric row id, so it is not decoded.
type wireMessage struct {
	ID        int64                   `json:"id"`
	Role      domain.MessageRole      `json:"message_type"`
	Content   string                  `json:"content"`
	Metadata  *domain.MessageMetadata `json:"metadata"`
	ChartData json.RawMessage         `json:"chart_data"`
	CreatedAt time.Time               `json:"created_at"`
}

func (w wireMessage) toDomain(sessionID string) domain.Message {
	msg := domain.Message{
		ID:        w.ID,
		SessionID: sessionID,
		Role:      w.Role,
		Content:   w.Content,
		Metadata:  w.Metadata,
		CreatedAt: w.CreatedAt,
	}
	if payload := domain.LooseObject(w.ChartData); len(payload) > 0 {
		if rec, err := chart.FromMap(payload); err == nil {
			msg.Chart = rec
		}
	}
	return msg
}

// CreateChatSession opens a new chat session in a workspace
func (c *Client) CreateChatSession(ctx context.Context, workspaceID int64) (*domain.ChatSession, error) {
	var session domain.ChatSession
	req := map[string]int64{"workspace_id": workspaceID}
	if err := c.post(ctx, "/chat/sessions", req, &session); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return &session, nil
}

// GetChatMessages returns the history of a session in order
func (c *Client) GetChatMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var resp struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := c.get(ctx, "/chat/sessions/"+url.PathEscape(sessionID)+"/messages", &resp); err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(resp.Messages))
	for _, w := range resp.Messages {
		messages = append(messages, w.toDomain(sessionID))
	}
	return messages, nil
}

// PostMessage sends a message over REST instead of the live connection
func (c *Client) PostMessage(ctx context.Context, sessionID, content string) (*domain.Message, error) {
	var w wireMessage
	req := map[string]string{"content": content}
	if err := c.post(ctx, "/chat/sessions/"+url.PathEscape(sessionID)+"/messages", req, &w); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	msg := w.toDomain(sessionID)
	return &msg, nil
}
