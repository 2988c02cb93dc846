package ws

import (
	"encoding/json"
	"time"
)

// Message types pushed to dashboard clients.
const (
	TypeHello        = "hello"
	TypeRunCompleted = "run:completed"
)

// Envelope wraps every WebSocket message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals a payload into an envelope.
func NewEnvelope(msgType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: data})
}

// HelloPayload is sent once on connect.
type HelloPayload struct {
	ConfigHash string `json:"config_hash"`
	LastRunID  int64  `json:"last_run_id,omitempty"`
}

// RunCompletedPayload announces a finished analysis run.
type RunCompletedPayload struct {
	RunID        int64     `json:"run_id,omitempty"`
	SiteID       string    `json:"site_id"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	StringCount  int       `json:"string_count"`
	AnomalyCount int       `json:"anomaly_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}
