package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

const streamWriteTimeout = 10 * time.Second

// StreamHandler pushes appended messages to websocket subscribers
type StreamHandler struct {
	chat           ChatSession
	originPatterns []string
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(chat ChatSession, originPatterns []string) *StreamHandler {
	return &StreamHandler{chat: chat, originPatterns: originPatterns}
}

// Stream upgrades the request and forwards every new message as a JSON
// text frame until the client goes away
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Warn().Err(err).Msg("stream upgrade failed")
		return
	}
	defer conn.CloseNow()

	messages, cancel := h.chat.Subscribe()
	defer cancel()

	// CloseRead drains client frames and cancels ctx once the peer closes
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "chat closed")
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Int64("message_id", msg.ID).Msg("failed to encode message")
				continue
			}
			if err := write(ctx, conn, data); err != nil {
				log.Debug().Err(err).Msg("stream subscriber gone")
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
