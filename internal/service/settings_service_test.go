package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type fakeProfileRepo struct {
	profile   *models.Profile
	findErr   error
	upsertErr error
	finds     int
	upserts   []*models.Profile
}

func (f *fakeProfileRepo) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.profile == nil {
		return nil, sql.ErrNoRows
	}
	return f.profile, nil
}

func (f *fakeProfileRepo) Upsert(ctx context.Context, profile *models.Profile) error {
	f.upserts = append(f.upserts, profile)
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.profile = profile
	return nil
}

func strPtr(s string) *string { return &s }

func TestSettingsLoadFallsBackToDefaults(t *testing.T) {
	repo := &fakeProfileRepo{}
	svc := NewSettingsService(repo, nil, nil)

	settings := svc.Load(context.Background(), "u1")
	assert.Equal(t, models.DefaultThemeSettings(), settings)

	svc.Load(context.Background(), "u1")
	assert.Equal(t, 1, repo.finds)
}

func TestSettingsLoadReadsStoredRow(t *testing.T) {
	repo := &fakeProfileRepo{profile: &models.Profile{UserID: "u1", AccentColor: "rose", Mode: "night", TeacherName: strPtr("Bu Ani")}}
	svc := NewSettingsService(repo, nil, nil)

	settings := svc.Load(context.Background(), "u1")
	assert.Equal(t, models.AccentRose, settings.AccentColor)
	assert.Equal(t, models.ModeNight, settings.Mode)
	require.NotNil(t, settings.TeacherName)
	assert.Equal(t, "Bu Ani", *settings.TeacherName)
}

func TestSettingsLoadErrorDoesNotCache(t *testing.T) {
	repo := &fakeProfileRepo{findErr: errors.New("timeout")}
	svc := NewSettingsService(repo, nil, nil)

	assert.Equal(t, models.DefaultThemeSettings(), svc.Load(context.Background(), "u1"))
	svc.Load(context.Background(), "u1")
	assert.Equal(t, 2, repo.finds)
}

func TestSettingsSaveMergesAndSyncs(t *testing.T) {
	repo := &fakeProfileRepo{}
	svc := NewSettingsService(repo, nil, nil)
	accent := models.AccentEmerald

	result, err := svc.Save(context.Background(), "u1", models.SettingsPatch{AccentColor: &accent, TeacherName: strPtr("  Pak Budi ")})
	require.NoError(t, err)
	assert.True(t, result.Synced)
	assert.NoError(t, result.SyncErr)
	assert.Equal(t, models.AccentEmerald, result.Settings.AccentColor)
	assert.Equal(t, models.ModeSky, result.Settings.Mode)
	assert.Equal(t, "Pak Budi", *result.Settings.TeacherName)

	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "emerald", repo.upserts[0].AccentColor)
	assert.Equal(t, "sky", repo.upserts[0].Mode)

	result, err = svc.Save(context.Background(), "u1", models.SettingsPatch{TeacherName: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, result.Settings.TeacherName)
	assert.Equal(t, models.AccentEmerald, result.Settings.AccentColor)
}

func TestSettingsSaveReportsSyncFailure(t *testing.T) {
	repo := &fakeProfileRepo{upsertErr: errors.New("connection refused")}
	svc := NewSettingsService(repo, nil, nil)
	mode := models.ModeNight

	result, err := svc.Save(context.Background(), "u1", models.SettingsPatch{Mode: &mode})
	require.NoError(t, err)
	assert.False(t, result.Synced)
	assert.EqualError(t, result.SyncErr, "connection refused")
	assert.Equal(t, models.ModeNight, result.Settings.Mode)

	assert.Equal(t, models.ModeNight, svc.Load(context.Background(), "u1").Mode)
}

func TestSettingsSaveValidatesPatch(t *testing.T) {
	svc := NewSettingsService(&fakeProfileRepo{}, nil, nil)
	accent := models.AccentColor("neon")

	_, err := svc.Save(context.Background(), "u1", models.SettingsPatch{AccentColor: &accent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestThemeVariables(t *testing.T) {
	svc := NewSettingsService(&fakeProfileRepo{}, nil, nil)

	vars := svc.ThemeVariables(models.ThemeSettings{AccentColor: models.AccentViolet, Mode: models.ModeNight})
	assert.Equal(t, "#7c3aed", vars["--accent"])
	assert.Equal(t, "#ede9fe", vars["--accent-soft"])
	assert.Equal(t, "#0f172a", vars["--surface"])
	assert.Equal(t, "#e2e8f0", vars["--text"])

	vars = svc.ThemeVariables(models.DefaultThemeSettings())
	assert.Equal(t, "#2563eb", vars["--accent"])
	assert.Equal(t, "#f0f9ff", vars["--surface"])
}
