package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

const lessonSummaryColumns = `id, user_id, subject, level, grade, duration_minutes, objective, method, created_at, last_modified`

// LessonRepository persists lesson plans. Every query is scoped to the owning user.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListSummaries returns the user's lessons without content, most recently modified first.
func (r *LessonRepository) ListSummaries(ctx context.Context, userID string) ([]models.LessonSummary, error) {
	query := `SELECT ` + lessonSummaryColumns + ` FROM lessons WHERE user_id = $1 ORDER BY last_modified DESC`
	var summaries []models.LessonSummary
	if err := r.db.SelectContext(ctx, &summaries, query, userID); err != nil {
		return nil, fmt.Errorf("list lesson summaries: %w", err)
	}
	return summaries, nil
}

// FindByID loads the full record.
func (r *LessonRepository) FindByID(ctx context.Context, userID, id string) (*models.Lesson, error) {
	query := `SELECT ` + lessonSummaryColumns + `, content FROM lessons WHERE id = $1 AND user_id = $2`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return &lesson, nil
}

// Create inserts a new lesson and assigns its id and timestamps.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	lesson.ID = uuid.NewString()
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.LastModified = now

	const query = `INSERT INTO lessons (id, user_id, subject, level, grade, duration_minutes, objective, method, content, created_at, last_modified)
VALUES (:id, :user_id, :subject, :level, :grade, :duration_minutes, :objective, :method, :content, :created_at, :last_modified)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// UpdateContent replaces the content and bumps last_modified.
func (r *LessonRepository) UpdateContent(ctx context.Context, userID, id, content string) (time.Time, error) {
	now := time.Now().UTC()
	const query = `UPDATE lessons SET content = $3, last_modified = $4 WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID, content, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("update lesson: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// Delete removes a lesson.
func (r *LessonRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM lessons WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
