package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type chatService interface {
	Send(ctx context.Context, req dto.ChatRequest) (*models.ChatMessage, error)
	Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.AnalyzeResponse, error)
}

// ChatHandler exposes the assistant chat.
type ChatHandler struct {
	service chatService
}

// NewChatHandler constructs the handler.
func NewChatHandler(service chatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Send godoc
// @Summary Send a chat turn
// @Description The client keeps the conversation and replays it in history.
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body dto.ChatRequest true "Chat turn"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /chat [post]
func (h *ChatHandler) Send(c *gin.Context) {
	var req dto.ChatRequest
	if !bindJSON(c, &req, "invalid chat payload") {
		return
	}
	reply, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply)
}

// Analyze godoc
// @Summary Describe an uploaded image
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body dto.AnalyzeRequest true "Image"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /chat/analyze [post]
func (h *ChatHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if !bindJSON(c, &req, "invalid analyze payload") {
		return
	}
	res, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}
