package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/flexy-chat/internal/api/response"
	"github.com/Rrens/flexy-chat/internal/client"
	"github.com/rs/zerolog/log"
)

// backendError relays a failed backend call, keeping the backend's status
// for client errors
func backendError(w http.ResponseWriter, err error, action string) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		response.Error(w, apiErr.Status, apiErr.Message)
		return
	}

	log.Error().Err(err).Str("action", action).Msg("backend request failed")
	response.Error(w, http.StatusBadGateway, "failed to "+action)
}
