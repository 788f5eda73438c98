package security

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const devTokenPrefix = "dev-token-"

// TokenStore persists the backend bearer token between runs
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error
}

// TokenSource holds the bearer token of the current user. The token is
// opaque to the client; when it happens to be a JWT its exp claim is
// honored so an expired token counts as unauthenticated.
type TokenSource struct {
	store  TokenStore
	clock  clockwork.Clock
	leeway time.Duration
	dev    bool

	mu    sync.RWMutex
	token string
}

// TokenOption configures a TokenSource
type TokenOption func(*TokenSource)

// WithTokenClock sets the clock used for expiry checks
func WithTokenClock(c clockwork.Clock) TokenOption {
	return func(s *TokenSource) {
		s.clock = c
	}
}

// WithExpiryLeeway treats tokens expiring within d as already expired
func WithExpiryLeeway(d time.Duration) TokenOption {
	return func(s *TokenSource) {
		s.leeway = d
	}
}

// WithDevFallback issues a throwaway development token when none is stored
func WithDevFallback() TokenOption {
	return func(s *TokenSource) {
		s.dev = true
	}
}

// NewTokenSource creates a token source backed by store. store may be nil
// for an in-memory only source.
func NewTokenSource(store TokenStore, opts ...TokenOption) *TokenSource {
	s := &TokenSource{
		store: store,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted token
func (s *TokenSource) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	token, err := s.store.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Token returns the current token, or false when there is none or it has
// expired
func (s *TokenSource) Token() (string, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" && s.dev {
		token = devTokenPrefix + strconv.FormatInt(s.clock.Now().UnixMilli(), 10)
		s.mu.Lock()
		if s.token == "" {
			s.token = token
		} else {
			token = s.token
		}
		s.mu.Unlock()
		log.Warn().Msg("using development fallback token")
	}

	if token == "" {
		return "", false
	}
	if exp, ok := TokenExpiry(token); ok && !s.clock.Now().Add(s.leeway).Before(exp) {
		return "", false
	}
	return token, true
}

// SetToken replaces and persists the token
func (s *TokenSource) SetToken(ctx context.Context, token string) error {
	if s.store != nil {
		if err := s.store.SaveToken(ctx, token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Clear forgets the token
func (s *TokenSource) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if s.store != nil {
		if err := s.store.DeleteToken(ctx); err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}
	}
	return nil
}

// TokenExpiry returns the exp claim of a JWT without verifying its
// signature. The backend holds the key; the client only needs to know when
// to stop presenting the token.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
