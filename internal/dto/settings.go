package dto

import "github.com/noah-isme/lesson-planner-api/internal/models"

// SettingsResponse returns stored preferences plus the CSS variables derived from them.
type SettingsResponse struct {
	Settings  models.ThemeSettings `json:"settings"`
	Variables map[string]string    `json:"variables"`
}
