package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/middleware"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/export"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type lessonService interface {
	ListSummaries(ctx context.Context, userID string, filter models.LessonFilter) (*dto.LessonListResponse, bool, error)
	Get(ctx context.Context, userID, id string) (*dto.LessonDetailResponse, error)
	Save(ctx context.Context, userID string, req dto.SaveLessonRequest) (*dto.SaveLessonResponse, error)
	Delete(ctx context.Context, userID, id string) error
	ExportIndex(ctx context.Context, userID string) (*export.File, error)
}

// LessonHandler serves the saved lesson library.
type LessonHandler struct {
	service lessonService
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(service lessonService) *LessonHandler {
	return &LessonHandler{service: service}
}

// List godoc
// @Summary List saved lessons
// @Description Lessons are grouped by level unless a level filter is given, in which case a flat list is returned.
// @Tags Lessons
// @Produce json
// @Param search query string false "Subject contains"
// @Param level query string false "SD, SMP, SMA or SMK"
// @Param grade query int false "Grade, only applied together with level"
// @Param sort query string false "modified_desc, modified_asc or subject_asc"
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var filter models.LessonFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson filter"))
		return
	}

	result, cacheHit, err := h.service.ListSummaries(c.Request.Context(), userID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, middleware.MetaEmpty, result.Total == 0)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a lesson with its rendered preview
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := lessonID(c)
	if !ok {
		return
	}
	lesson, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson)
}

// Save godoc
// @Summary Save a lesson
// @Description Inserts when id is absent, otherwise replaces the content of the existing lesson.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.SaveLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons [post]
func (h *LessonHandler) Save(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.SaveLessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}
	result, err := h.service.Save(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Created {
		response.Created(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Delete godoc
// @Summary Delete a lesson
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := lessonID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportIndex godoc
// @Summary Download the lesson index as CSV
// @Tags Lessons
// @Produce text/csv
// @Success 200 {file} file
// @Router /lessons/export.csv [get]
func (h *LessonHandler) ExportIndex(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	file, err := h.service.ExportIndex(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Payload)
}

// lessonID answers 404 for ids that cannot name a stored lesson.
func lessonID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "lesson not found"))
		return "", false
	}
	return id.String(), true
}
