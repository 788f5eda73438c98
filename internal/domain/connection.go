package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ConnectionStatus represents the state of the realtime chat connection
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	// StatusError is a disconnected state entered from a transport error
	StatusError ConnectionStatus = "error"
)

// IsOpen reports whether messages can be sent on the connection
func (s ConnectionStatus) IsOpen() bool {
	return s == StatusConnected
}

// FrameType identifies the kind of a transport frame
type FrameType string

const (
	FrameUserMessage FrameType = "user_message"
	FrameAIResponse  FrameType = "ai_response"
)

// Frame is one JSON text frame exchanged over the chat connection
type Frame struct {
	Type    FrameType  `json:"type"`
	Content string     `json:"content"`
	Data    *FrameData `json:"data,omitempty"`
}

// FrameData carries structured metadata attached to an AI response
type FrameData struct {
	InsightID   *int64         `json:"insight_id,omitempty"`
	ChartConfig map[string]any `json:"chart_config,omitempty"`
	ChartData   map[string]any `json:"chart_data,omitempty"`
}

// UnmarshalJSON decodes each field independently. A field with an unexpected
// shape is dropped so the enclosing frame is still delivered.
func (d *FrameData) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		if !json.Valid(b) {
			return err
		}
		*d = FrameData{}
		return nil
	}

	*d = FrameData{
		InsightID:   looseInt(fields["insight_id"]),
		ChartConfig: LooseObject(fields["chart_config"]),
		ChartData:   LooseObject(fields["chart_data"]),
	}
	return nil
}

func looseInt(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if v, err := n.Int64(); err == nil {
		return &v
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil && f == float64(int64(f)) {
		v := int64(f)
		return &v
	}
	return nil
}

// LooseObject decodes a JSON object or a string holding one. Anything else
// yields nil.
func LooseObject(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}

// ChartPayload returns the directly attached chart configuration, if any
func (d *FrameData) ChartPayload() map[string]any {
	if d == nil {
		return nil
	}
	if len(d.ChartConfig) > 0 {
		return d.ChartConfig
	}
	if len(d.ChartData) > 0 {
		return d.ChartData
	}
	return nil
}

// NewUserFrame builds an outbound user message frame
func NewUserFrame(content string) Frame {
	return Frame{Type: FrameUserMessage, Content: content}
}
