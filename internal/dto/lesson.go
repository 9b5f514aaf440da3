package dto

import (
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/pkg/markdown"
)

// LessonGroup buckets summaries under one level.
type LessonGroup struct {
	Level   models.Level           `json:"level"`
	Lessons []models.LessonSummary `json:"lessons"`
}

// LessonListResponse is the saved lessons browser payload. Groups is set when no level filter applies, Lessons otherwise.
// A flat result always carries lessons, empty or not.
type LessonListResponse struct {
	Groups  []LessonGroup          `json:"groups,omitempty"`
	Lessons []models.LessonSummary `json:"lessons"`
	Total   int                    `json:"total"`
}

// LessonDetailResponse is a full record with its parsed preview.
type LessonDetailResponse struct {
	models.Lesson
	Preview []markdown.Element `json:"preview"`
}

// SaveLessonRequest inserts a lesson when ID is empty and updates its content otherwise.
type SaveLessonRequest struct {
	ID              string           `json:"id" validate:"omitempty,uuid"`
	Subject         string           `json:"subject" validate:"max=120"`
	Level           models.Level     `json:"level" validate:"omitempty,oneof=SD SMP SMA SMK"`
	Grade           int              `json:"grade" validate:"omitempty,min=1,max=12"`
	DurationMinutes int              `json:"duration_minutes" validate:"omitempty,min=10,max=480"`
	Objective       models.Objective `json:"objective" validate:"omitempty,oneof=UNDERSTANDING APPLICATION ANALYSIS CREATION"`
	Method          models.Method    `json:"method" validate:"omitempty,oneof=DISCOVERY PROJECT_BASED PROBLEM_BASED COOPERATIVE DIRECT_INSTRUCTION"`
	Content         string           `json:"content" validate:"required"`
}

// SaveLessonResponse reports the id the record is stored under.
type SaveLessonResponse struct {
	ID           string    `json:"id"`
	Created      bool      `json:"created"`
	LastModified time.Time `json:"last_modified"`
}
