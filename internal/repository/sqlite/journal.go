package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/google/uuid"
)

// MessageJournal implements domain.MessageJournal
type MessageJournal struct {
	db *sql.DB
}

// NewMessageJournal creates a new message journal
func NewMessageJournal(db *DB) *MessageJournal {
	return &MessageJournal{db: db.SQL}
}

// Append records a message. Appending the same message twice is a no-op.
func (j *MessageJournal) Append(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (row_key, id, session_id, role, content, chart, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, id) DO NOTHING
	`

	chartJSON, err := nullableJSON(message.Chart)
	if err != nil {
		return fmt.Errorf("failed to marshal chart: %w", err)
	}
	metadataJSON, err := nullableJSON(message.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = j.db.ExecContext(ctx, query,
		uuid.NewString(),
		message.ID,
		message.SessionID,
		string(message.Role),
		message.Content,
		chartJSON,
		metadataJSON,
		message.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListBySession returns the latest limit messages of a session, oldest first
func (j *MessageJournal) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, role, content, chart, metadata, created_at
		FROM (
			SELECT id, session_id, role, content, chart, metadata, created_at
			FROM messages
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`

	rows, err := j.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			m         domain.Message
			role      string
			chartJSON sql.NullString
			metaJSON  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &chartJSON, &metaJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(role)
		m.CreatedAt = time.UnixMilli(createdAt).UTC()

		if chartJSON.Valid {
			m.Chart = &domain.ChartRecord{}
			if err := json.Unmarshal([]byte(chartJSON.String), m.Chart); err != nil {
				return nil, fmt.Errorf("failed to unmarshal chart: %w", err)
			}
		}
		if metaJSON.Valid {
			m.Metadata = &domain.MessageMetadata{}
			if err := json.Unmarshal([]byte(metaJSON.String), m.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// Prune deletes journal entries older than cutoff and returns the count
func (j *MessageJournal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune messages: %w", err)
	}
	return res.RowsAffected()
}

func nullableJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
