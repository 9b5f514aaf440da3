package dto

// Live socket message types.
const (
	LiveMessageState       = "state"
	LiveMessageAudio       = "audio"
	LiveMessageInterrupted = "interrupted"
	LiveMessageStop        = "stop"
	LiveMessageError       = "error"
)

// Live session states pushed to the client.
const (
	LiveStateIdle       = "idle"
	LiveStateConnecting = "connecting"
	LiveStateConnected  = "connected"
	LiveStateError      = "error"
)

// LiveMessage is a JSON text frame on the live socket. Microphone audio travels as binary frames.
type LiveMessage struct {
	Type     string  `json:"type"`
	State    string  `json:"state,omitempty"`
	Data     string  `json:"data,omitempty"`
	MimeType string  `json:"mime_type,omitempty"`
	StartAt  float64 `json:"start_at,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}
