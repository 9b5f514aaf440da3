package dto

import "github.com/noah-isme/lesson-planner-api/internal/models"

// ChatRequest is one knowledge chat turn with the transcript so far.
type ChatRequest struct {
	History    []models.ChatMessage `json:"history" validate:"dive"`
	Message    string               `json:"message" validate:"required_without=Attachment,max=8000"`
	Attachment *models.Attachment   `json:"attachment"`
}

// AnalyzeRequest asks the model to describe an uploaded image or document.
type AnalyzeRequest struct {
	MimeType string `json:"mime_type" validate:"required,max=100"`
	Data     string `json:"data" validate:"required,base64"`
	Prompt   string `json:"prompt" validate:"max=2000"`
}

// AnalyzeResponse is the model's description.
type AnalyzeResponse struct {
	Text string `json:"text"`
}
