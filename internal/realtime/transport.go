package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// Close codes observed on the chat connection
const (
	CloseNormal   = int(websocket.StatusNormalClosure)
	CloseAbnormal = int(websocket.StatusAbnormalClosure)
)

// Transport is one open message-oriented connection
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

// Dialer opens transports
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// WebsocketDialer dials chat connections over websocket
type WebsocketDialer struct {
	HTTPClient *http.Client
	// ReadLimit bounds a single inbound frame; zero keeps the library default
	ReadLimit int64
}

// Dial implements Dialer
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial chat endpoint: %w", err)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	return data, err
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close(code int, reason string) error {
	return t.conn.Close(websocket.StatusCode(code), reason)
}

func hasCloseFrame(err error) bool {
	return websocket.CloseStatus(err) != -1
}

// closeCode extracts the close code of a failed read or dial. Failures that
// carry no close frame map to an abnormal closure.
func closeCode(err error) int {
	if code := websocket.CloseStatus(err); code != -1 {
		return int(code)
	}
	return CloseAbnormal
}

// ErrNotConnected is returned by Send when the connection is not open
var ErrNotConnected = errors.New("chat connection is not open")

// ErrSendBufferFull is returned by Send when the writer cannot keep up
var ErrSendBufferFull = errors.New("chat send buffer is full")
