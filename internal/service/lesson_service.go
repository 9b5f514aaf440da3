package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/export"
	"github.com/noah-isme/lesson-planner-api/pkg/markdown"
)

type lessonRepository interface {
	ListSummaries(ctx context.Context, userID string) ([]models.LessonSummary, error)
	FindByID(ctx context.Context, userID, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	UpdateContent(ctx context.Context, userID, id, content string) (time.Time, error)
	Delete(ctx context.Context, userID, id string) error
}

const (
	minDurationMinutes = 10
	maxDurationMinutes = 480
)

// LessonServiceConfig tunes lesson list caching.
type LessonServiceConfig struct {
	CacheTTL time.Duration
}

// LessonService manages saved lesson plans.
type LessonService struct {
	repo      lessonRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	csv       *export.CSVExporter
	cfg       LessonServiceConfig
	now       func() time.Time
}

// NewLessonService constructs a lesson service. cache may be nil.
func NewLessonService(repo lessonRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg LessonServiceConfig) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		cfg:       cfg,
		now:       time.Now,
	}
}

func summariesCacheKey(userID string) string {
	return fmt.Sprintf("lessons:summaries:%s", userID)
}

// ListSummaries returns the user's lessons without content, filtered and ordered. The bool reports a cache hit.
func (s *LessonService) ListSummaries(ctx context.Context, userID string, filter models.LessonFilter) (*dto.LessonListResponse, bool, error) {
	summaries, hit, err := s.summaries(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	filter = filter.Normalize()
	matched := filterSummaries(summaries, filter)
	sortSummaries(matched, filter.Sort)

	resp := &dto.LessonListResponse{Total: len(matched)}
	if filter.Level != "" {
		resp.Lessons = matched
		if resp.Lessons == nil {
			resp.Lessons = []models.LessonSummary{}
		}
		return resp, hit, nil
	}
	resp.Groups = groupByLevel(matched)
	return resp, hit, nil
}

// Get fetches the full record on demand together with its preview.
func (s *LessonService) Get(ctx context.Context, userID, id string) (*dto.LessonDetailResponse, error) {
	lesson, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return &dto.LessonDetailResponse{
		Lesson:  *lesson,
		Preview: markdown.Preview(markdown.Parse(lesson.Content)),
	}, nil
}

// Save inserts a lesson without an id and updates content and last_modified for an existing one.
func (s *LessonService) Save(ctx context.Context, userID string, req dto.SaveLessonRequest) (*dto.SaveLessonResponse, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Level = models.Level(strings.ToUpper(string(req.Level)))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	var resp *dto.SaveLessonResponse
	if req.ID == "" {
		lesson, err := s.newLesson(userID, req)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Create(ctx, lesson); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save lesson")
		}
		resp = &dto.SaveLessonResponse{ID: lesson.ID, Created: true, LastModified: lesson.LastModified}
	} else {
		modified, err := s.repo.UpdateContent(ctx, userID, req.ID, req.Content)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save lesson")
		}
		resp = &dto.SaveLessonResponse{ID: req.ID, LastModified: modified}
	}

	s.invalidate(ctx, userID)
	s.logger.Info("lesson saved", zap.String("lesson_id", resp.ID), zap.Bool("created", resp.Created))
	return resp, nil
}

func (s *LessonService) newLesson(userID string, req dto.SaveLessonRequest) (*models.Lesson, error) {
	if req.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	if !req.Level.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level is required")
	}
	if !req.Level.AcceptsGrade(req.Grade) {
		first, last := req.Level.GradeRange()
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade for %s must be between %d and %d", req.Level, first, last))
	}
	if req.DurationMinutes < minDurationMinutes || req.DurationMinutes > maxDurationMinutes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duration_minutes must be between %d and %d", minDurationMinutes, maxDurationMinutes))
	}
	if !req.Objective.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "objective is required")
	}
	if !req.Method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "method is required")
	}
	return &models.Lesson{
		UserID:          userID,
		Subject:         req.Subject,
		Level:           req.Level,
		Grade:           req.Grade,
		DurationMinutes: req.DurationMinutes,
		Objective:       req.Objective,
		Method:          req.Method,
		Content:         req.Content,
	}, nil
}

// Delete removes the lesson from the cached list first, then from the store.
// A failed store delete invalidates the cached list so the next read reflects the server.
func (s *LessonService) Delete(ctx context.Context, userID, id string) error {
	key := summariesCacheKey(userID)
	if s.cache.Enabled() {
		var cached []models.LessonSummary
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			remaining := make([]models.LessonSummary, 0, len(cached))
			for _, summary := range cached {
				if summary.ID != id {
					remaining = append(remaining, summary)
				}
			}
			_ = s.cache.Set(ctx, key, remaining, s.cfg.CacheTTL)
		}
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		s.invalidate(ctx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		s.logger.Warn("lesson delete failed", zap.String("lesson_id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	return nil
}

// ExportIndex renders the user's lesson summaries as CSV.
func (s *LessonService) ExportIndex(ctx context.Context, userID string) (*export.File, error) {
	summaries, _, err := s.summaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{
		Headers: []string{"subject", "level", "grade", "duration_minutes", "objective", "method", "last_modified"},
		Rows:    make([]map[string]string, 0, len(summaries)),
	}
	for _, summary := range summaries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"subject":          summary.Subject,
			"level":            string(summary.Level),
			"grade":            strconv.Itoa(summary.Grade),
			"duration_minutes": strconv.Itoa(summary.DurationMinutes),
			"objective":        string(summary.Objective),
			"method":           string(summary.Method),
			"last_modified":    summary.LastModified.UTC().Format(time.RFC3339),
		})
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render lesson index")
	}
	return &export.File{
		Name:        fmt.Sprintf("lesson_index_%s.csv", s.now().UTC().Format("20060102")),
		ContentType: export.ContentTypeCSV,
		Payload:     payload,
	}, nil
}

func (s *LessonService) summaries(ctx context.Context, userID string) ([]models.LessonSummary, bool, error) {
	key := summariesCacheKey(userID)
	if s.cache.Enabled() {
		var cached []models.LessonSummary
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return cached, true, nil
		}
	}

	summaries, err := s.repo.ListSummaries(ctx, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	if summaries == nil {
		summaries = []models.LessonSummary{}
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, summaries, s.cfg.CacheTTL)
	}
	return summaries, false, nil
}

func (s *LessonService) invalidate(ctx context.Context, userID string) {
	if !s.cache.Enabled() {
		return
	}
	_ = s.cache.Invalidate(ctx, summariesCacheKey(userID))
}

func filterSummaries(summaries []models.LessonSummary, filter models.LessonFilter) []models.LessonSummary {
	needle := strings.ToLower(filter.Search)
	out := make([]models.LessonSummary, 0, len(summaries))
	for _, summary := range summaries {
		if needle != "" && !strings.Contains(strings.ToLower(summary.Subject), needle) {
			continue
		}
		if filter.Level != "" && summary.Level != filter.Level {
			continue
		}
		if filter.Grade != 0 && summary.Grade != filter.Grade {
			continue
		}
		out = append(out, summary)
	}
	return out
}

func sortSummaries(summaries []models.LessonSummary, order models.LessonSort) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		switch order {
		case models.SortModifiedAsc:
			return a.LastModified.Before(b.LastModified)
		case models.SortSubjectAsc:
			sa, sb := strings.ToLower(a.Subject), strings.ToLower(b.Subject)
			if sa != sb {
				return sa < sb
			}
			return a.LastModified.After(b.LastModified)
		default:
			return a.LastModified.After(b.LastModified)
		}
	})
}

func groupByLevel(summaries []models.LessonSummary) []dto.LessonGroup {
	buckets := make(map[models.Level][]models.LessonSummary, len(models.Levels))
	for _, summary := range summaries {
		buckets[summary.Level] = append(buckets[summary.Level], summary)
	}
	groups := make([]dto.LessonGroup, 0, len(models.Levels))
	for _, level := range models.Levels {
		if lessons := buckets[level]; len(lessons) > 0 {
			groups = append(groups, dto.LessonGroup{Level: level, Lessons: lessons})
		}
	}
	return groups
}
