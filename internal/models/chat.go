package models

// ChatRole identifies who wrote a chat message.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// WelcomeMessageID marks the synthetic greeting the client shows before the first turn.
const WelcomeMessageID = "welcome"

// Citation is a web source backing an answer.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Attachment is an inline file sent with a chat message.
type Attachment struct {
	MimeType string `json:"mime_type" validate:"required,max=100"`
	Data     string `json:"data" validate:"required,base64"`
}

// ChatMessage is one transcript entry. Messages are never persisted.
type ChatMessage struct {
	ID         string      `json:"id"`
	Role       ChatRole    `json:"role" validate:"required,oneof=user model"`
	Text       string      `json:"text"`
	Sources    []Citation  `json:"sources,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}
