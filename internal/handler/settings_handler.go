package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/middleware"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type settingsService interface {
	Load(ctx context.Context, userID string) models.ThemeSettings
	Save(ctx context.Context, userID string, patch models.SettingsPatch) (*service.SaveResult, error)
	ThemeVariables(settings models.ThemeSettings) map[string]string
}

// SettingsHandler serves per-user theme settings.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(service settingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get godoc
// @Summary Current theme settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	settings := h.service.Load(c.Request.Context(), userID)
	response.JSON(c, http.StatusOK, dto.SettingsResponse{Settings: settings, Variables: h.service.ThemeVariables(settings)})
}

// Update godoc
// @Summary Update theme settings
// @Description The change applies immediately. meta.synced is false when the profile write failed.
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body models.SettingsPatch true "Partial settings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings [patch]
func (h *SettingsHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var patch models.SettingsPatch
	if !bindJSON(c, &patch, "invalid settings payload") {
		return
	}
	result, err := h.service.Save(c.Request.Context(), userID, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, middleware.MetaSynced, result.Synced)
	if result.SyncErr != nil {
		middleware.SetMeta(c, middleware.MetaSyncError, result.SyncErr.Error())
	}
	response.JSON(c, http.StatusOK, dto.SettingsResponse{
		Settings:  result.Settings,
		Variables: h.service.ThemeVariables(result.Settings),
	}, middleware.ExtractMeta(c))
}
