package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

type palette struct {
	accent string
	soft   string
}

var accentPalettes = map[models.AccentColor]palette{
	models.AccentBlue:    {accent: "#2563eb", soft: "#dbeafe"},
	models.AccentEmerald: {accent: "#059669", soft: "#d1fae5"},
	models.AccentViolet:  {accent: "#7c3aed", soft: "#ede9fe"},
	models.AccentRose:    {accent: "#e11d48", soft: "#ffe4e6"},
	models.AccentAmber:   {accent: "#d97706", soft: "#fef3c7"},
}

// SaveResult reports the applied settings and whether the remote write landed.
type SaveResult struct {
	Settings models.ThemeSettings
	Synced   bool
	SyncErr  error
}

// SettingsService keeps per-user theme settings in memory and mirrors them to the profiles table.
type SettingsService struct {
	repo      profileRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.RWMutex
	cache map[string]models.ThemeSettings
}

// NewSettingsService constructs a settings service.
func NewSettingsService(repo profileRepository, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cache:     make(map[string]models.ThemeSettings),
	}
}

// Load returns cached settings, then the stored row, then defaults.
func (s *SettingsService) Load(ctx context.Context, userID string) models.ThemeSettings {
	s.mu.RLock()
	cached, ok := s.cache[userID]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	profile, err := s.repo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		settings := normalizeSettings(profile.Settings())
		s.store(userID, settings)
		return settings
	case errors.Is(err, sql.ErrNoRows):
		settings := models.DefaultThemeSettings()
		s.store(userID, settings)
		return settings
	default:
		s.logger.Warn("failed to load profile, using defaults", zap.String("user_id", userID), zap.Error(err))
		return models.DefaultThemeSettings()
	}
}

// Save merges the patch into the cached settings and writes them through.
// A failed remote write keeps the local change and is reported in the result.
func (s *SettingsService) Save(ctx context.Context, userID string, patch models.SettingsPatch) (*SaveResult, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	patch.TeacherName = trimOptional(patch.TeacherName)
	patch.TeacherPhone = trimOptional(patch.TeacherPhone)

	settings := patch.Apply(s.Load(ctx, userID))
	if settings.TeacherName != nil && *settings.TeacherName == "" {
		settings.TeacherName = nil
	}
	if settings.TeacherPhone != nil && *settings.TeacherPhone == "" {
		settings.TeacherPhone = nil
	}
	s.store(userID, settings)

	result := &SaveResult{Settings: settings, Synced: true}
	err := s.repo.Upsert(ctx, &models.Profile{
		UserID:       userID,
		AccentColor:  string(settings.AccentColor),
		Mode:         string(settings.Mode),
		TeacherName:  settings.TeacherName,
		TeacherPhone: settings.TeacherPhone,
		UpdatedAt:    s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("settings sync failed", zap.String("user_id", userID), zap.Error(err))
		result.Synced = false
		result.SyncErr = err
	}
	return result, nil
}

// ThemeVariables derives the CSS custom properties the client applies.
func (s *SettingsService) ThemeVariables(settings models.ThemeSettings) map[string]string {
	p, ok := accentPalettes[settings.AccentColor]
	if !ok {
		p = accentPalettes[models.AccentBlue]
	}
	vars := map[string]string{
		"--accent":      p.accent,
		"--accent-soft": p.soft,
		"--surface":     "#f0f9ff",
		"--text":        "#0f172a",
	}
	if settings.Mode == models.ModeNight {
		vars["--surface"] = "#0f172a"
		vars["--text"] = "#e2e8f0"
	}
	return vars
}

func (s *SettingsService) store(userID string, settings models.ThemeSettings) {
	s.mu.Lock()
	s.cache[userID] = settings
	s.mu.Unlock()
}

func normalizeSettings(settings models.ThemeSettings) models.ThemeSettings {
	defaults := models.DefaultThemeSettings()
	if _, ok := accentPalettes[settings.AccentColor]; !ok {
		settings.AccentColor = defaults.AccentColor
	}
	if settings.Mode != models.ModeSky && settings.Mode != models.ModeNight {
		settings.Mode = defaults.Mode
	}
	return settings
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
