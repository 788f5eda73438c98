package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Rrens/flexy-chat/internal/api/response"
	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/Rrens/flexy-chat/internal/security"
)

const scopeChat = "chat"

// Authenticator signs the user in against the backend
type Authenticator interface {
	Login(ctx context.Context, input domain.UserLogin) (*domain.AuthResponse, error)
	Logout(ctx context.Context) error
}

// AuthHandler exchanges backend credentials for a local API token
type AuthHandler struct {
	backend    Authenticator
	jwtManager *security.JWTManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(backend Authenticator, jwtManager *security.JWTManager) *AuthHandler {
	return &AuthHandler{backend: backend, jwtManager: jwtManager}
}

// Login signs in on the backend, which stores the backend token, and
// returns a token for this API
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.UserLogin
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.ValidationError(w, err)
		return
	}

	auth, err := h.backend.Login(r.Context(), input)
	if err != nil {
		backendError(w, err, "log in")
		return
	}

	result := map[string]any{"user": auth.User}
	if h.jwtManager != nil {
		token, err := h.jwtManager.GenerateAccessToken(auth.User.Email, scopeChat)
		if err != nil {
			response.InternalError(w, "failed to issue token")
			return
		}
		result["access_token"] = token
		result["token_type"] = "Bearer"
		result["expires_in"] = int(h.jwtManager.TTL().Seconds())
	}

	response.OK(w, result)
}

// Logout discards the stored backend token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Logout(r.Context()); err != nil {
		backendError(w, err, "log out")
		return
	}
	response.NoContent(w)
}
