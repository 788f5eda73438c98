package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/flexy-chat/internal/security"
)

const backendTokenKey = "backend_token"

// CredentialStore implements security.TokenStore. Values are sealed with
// the encryptor before they reach disk.
type CredentialStore struct {
	db        *sql.DB
	encryptor *security.Encryptor
}

// NewCredentialStore creates a new credential store
func NewCredentialStore(db *DB, encryptor *security.Encryptor) *CredentialStore {
	return &CredentialStore{db: db.SQL, encryptor: encryptor}
}

// LoadToken returns the stored token, or "" when none is stored
func (s *CredentialStore) LoadToken(ctx context.Context) (string, error) {
	var sealed string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE name = ?`, backendTokenKey).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}

	token, err := s.encryptor.DecryptString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return token, nil
}

// SaveToken stores the token, replacing any previous one
func (s *CredentialStore) SaveToken(ctx context.Context, token string) error {
	sealed, err := s.encryptor.EncryptString(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	query := `
		INSERT INTO credentials (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, backendTokenKey, sealed, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// DeleteToken removes the stored token
func (s *CredentialStore) DeleteToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, backendTokenKey); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
