package dto

import (
	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/pkg/markdown"
)

// GenerateLessonRequest is the lesson builder form.
type GenerateLessonRequest struct {
	Subject         string           `json:"subject" validate:"required,max=120"`
	Level           models.Level     `json:"level" validate:"required,oneof=SD SMP SMA SMK"`
	Grade           int              `json:"grade" validate:"required,min=1,max=12"`
	DurationMinutes int              `json:"duration_minutes" validate:"required,min=10,max=480"`
	Objective       models.Objective `json:"objective" validate:"required,oneof=UNDERSTANDING APPLICATION ANALYSIS CREATION"`
	Method          models.Method    `json:"method" validate:"required,oneof=DISCOVERY PROJECT_BASED PROBLEM_BASED COOPERATIVE DIRECT_INSTRUCTION"`
	Notes           string           `json:"notes" validate:"max=2000"`
}

// ReformatRequest asks for a structure-only cleanup of existing content.
type ReformatRequest struct {
	ID      string `json:"id"`
	Content string `json:"content" validate:"required"`
}

// PreviewRequest parses content without calling the model.
type PreviewRequest struct {
	Content string `json:"content"`
}

// LessonDraft is unsaved builder output. ID is empty until the first save.
type LessonDraft struct {
	ID      string             `json:"id"`
	Content string             `json:"content"`
	Preview []markdown.Element `json:"preview"`
}

// SuggestRequest asks for activity ideas for a partially filled form.
type SuggestRequest struct {
	Subject string       `json:"subject" validate:"required,max=120"`
	Level   models.Level `json:"level" validate:"required,oneof=SD SMP SMA SMK"`
	Grade   int          `json:"grade" validate:"required,min=1,max=12"`
	Count   int          `json:"count" validate:"omitempty,min=1,max=10"`
}

// SuggestResponse lists activity ideas.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// ExportRequest carries the content to render as a download.
type ExportRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content" validate:"required"`
}

// SpeechRequest is the read-aloud payload.
type SpeechRequest struct {
	Content string `json:"content" validate:"required"`
}
