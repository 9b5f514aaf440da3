package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

const upsertProfileQuery = `INSERT INTO profiles (user_id, accent_color, mode, teacher_name, teacher_phone, updated_at)
VALUES (:user_id, :accent_color, :mode, :teacher_name, :teacher_phone, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET accent_color = EXCLUDED.accent_color, mode = EXCLUDED.mode,
teacher_name = EXCLUDED.teacher_name, teacher_phone = EXCLUDED.teacher_phone, updated_at = EXCLUDED.updated_at`

// ProfileRepository stores per-user theme settings.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID loads the profile row for a user.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	const query = `SELECT user_id, accent_color, mode, teacher_name, teacher_phone, updated_at FROM profiles WHERE user_id = $1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// Upsert writes the profile row. Last write wins.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, upsertProfileQuery, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
