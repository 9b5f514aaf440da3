package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/pkg/export"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type lessonBuilder interface {
	Generate(ctx context.Context, req dto.GenerateLessonRequest) (*dto.LessonDraft, error)
	Reformat(ctx context.Context, req dto.ReformatRequest) (*dto.LessonDraft, error)
	Preview(req dto.PreviewRequest) *dto.LessonDraft
	Suggest(ctx context.Context, req dto.SuggestRequest) (*dto.SuggestResponse, error)
	ExportDocument(req dto.ExportRequest) (*export.File, error)
	ExportPDF(req dto.ExportRequest) (*export.File, error)
	ReadAloud(ctx context.Context, userID string, req dto.SpeechRequest) (*export.File, error)
}

// BuilderHandler exposes lesson drafting endpoints.
type BuilderHandler struct {
	service lessonBuilder
}

// NewBuilderHandler constructs the handler.
func NewBuilderHandler(service lessonBuilder) *BuilderHandler {
	return &BuilderHandler{service: service}
}

// Generate godoc
// @Summary Draft a lesson plan from the builder form
// @Tags Builder
// @Accept json
// @Produce json
// @Param payload body dto.GenerateLessonRequest true "Builder form"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /builder/generate [post]
func (h *BuilderHandler) Generate(c *gin.Context) {
	var req dto.GenerateLessonRequest
	if !bindJSON(c, &req, "invalid builder form") {
		return
	}
	draft, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft)
}

// Reformat godoc
// @Summary Restructure free text into the lesson plan layout
// @Tags Builder
// @Accept json
// @Produce json
// @Param payload body dto.ReformatRequest true "Content to reformat"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /builder/reformat [post]
func (h *BuilderHandler) Reformat(c *gin.Context) {
	var req dto.ReformatRequest
	if !bindJSON(c, &req, "invalid reformat payload") {
		return
	}
	draft, err := h.service.Reformat(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft)
}

// Preview godoc
// @Summary Render markdown content into preview nodes
// @Tags Builder
// @Accept json
// @Produce json
// @Param payload body dto.PreviewRequest true "Content"
// @Success 200 {object} response.Envelope
// @Router /builder/preview [post]
func (h *BuilderHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if !bindJSON(c, &req, "invalid preview payload") {
		return
	}
	response.JSON(c, http.StatusOK, h.service.Preview(req))
}

// Suggest godoc
// @Summary Suggest lesson topics
// @Tags Builder
// @Accept json
// @Produce json
// @Param payload body dto.SuggestRequest true "Subject and class"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /builder/suggestions [post]
func (h *BuilderHandler) Suggest(c *gin.Context) {
	var req dto.SuggestRequest
	if !bindJSON(c, &req, "invalid suggestion payload") {
		return
	}
	res, err := h.service.Suggest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// ExportDocument godoc
// @Summary Download the lesson as a Word compatible document
// @Tags Builder
// @Accept json
// @Produce application/msword
// @Param payload body dto.ExportRequest true "Lesson content"
// @Success 200 {file} file
// @Router /builder/export/doc [post]
func (h *BuilderHandler) ExportDocument(c *gin.Context) {
	h.export(c, h.service.ExportDocument)
}

// ExportPDF godoc
// @Summary Download the lesson as PDF
// @Tags Builder
// @Accept json
// @Produce application/pdf
// @Param payload body dto.ExportRequest true "Lesson content"
// @Success 200 {file} file
// @Router /builder/export/pdf [post]
func (h *BuilderHandler) ExportPDF(c *gin.Context) {
	h.export(c, h.service.ExportPDF)
}

func (h *BuilderHandler) export(c *gin.Context, render func(dto.ExportRequest) (*export.File, error)) {
	var req dto.ExportRequest
	if !bindJSON(c, &req, "invalid export payload") {
		return
	}
	file, err := render(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Payload)
}

// ReadAloud godoc
// @Summary Synthesize the lesson as speech
// @Description One request per user at a time; a concurrent request answers 409.
// @Tags Builder
// @Accept json
// @Produce audio/wav
// @Param payload body dto.SpeechRequest true "Lesson content"
// @Success 200 {file} file
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /builder/speech [post]
func (h *BuilderHandler) ReadAloud(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.SpeechRequest
	if !bindJSON(c, &req, "invalid speech payload") {
		return
	}
	file, err := h.service.ReadAloud(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Payload)
}
