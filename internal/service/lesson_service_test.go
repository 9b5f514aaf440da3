package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memoryCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

type fakeLessonRepo struct {
	lessons   map[string]*models.Lesson
	listCalls int
	deleteErr error
	onDelete  func()
}

func newFakeLessonRepo() *fakeLessonRepo {
	return &fakeLessonRepo{lessons: make(map[string]*models.Lesson)}
}

func (f *fakeLessonRepo) add(l models.Lesson) {
	lesson := l
	f.lessons[l.ID] = &lesson
}

func (f *fakeLessonRepo) ListSummaries(ctx context.Context, userID string) ([]models.LessonSummary, error) {
	f.listCalls++
	var out []models.LessonSummary
	for _, l := range f.lessons {
		if l.UserID == userID {
			out = append(out, l.Summary())
		}
	}
	return out, nil
}

func (f *fakeLessonRepo) FindByID(ctx context.Context, userID, id string) (*models.Lesson, error) {
	l, ok := f.lessons[id]
	if !ok || l.UserID != userID {
		return nil, sql.ErrNoRows
	}
	clone := *l
	return &clone, nil
}

func (f *fakeLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	lesson.ID = uuid.NewString()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	lesson.CreatedAt = now
	lesson.LastModified = now
	f.add(*lesson)
	return nil
}

func (f *fakeLessonRepo) UpdateContent(ctx context.Context, userID, id, content string) (time.Time, error) {
	l, ok := f.lessons[id]
	if !ok || l.UserID != userID {
		return time.Time{}, sql.ErrNoRows
	}
	l.Content = content
	l.LastModified = l.LastModified.Add(time.Hour)
	return l.LastModified, nil
}

func (f *fakeLessonRepo) Delete(ctx context.Context, userID, id string) error {
	if f.onDelete != nil {
		f.onDelete()
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	l, ok := f.lessons[id]
	if !ok || l.UserID != userID {
		return sql.ErrNoRows
	}
	delete(f.lessons, id)
	return nil
}

func newTestLessonService(repo *fakeLessonRepo, cacheRepo *memoryCacheRepo) *LessonService {
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	}
	return NewLessonService(repo, cache, nil, zap.NewNop(), LessonServiceConfig{CacheTTL: time.Minute})
}

func seedLessons(repo *fakeLessonRepo) {
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	repo.add(models.Lesson{ID: "a", UserID: "u1", Subject: "Matematika", Level: models.LevelSD, Grade: 4, LastModified: base.Add(1 * time.Hour)})
	repo.add(models.Lesson{ID: "b", UserID: "u1", Subject: "Biologi", Level: models.LevelSMA, Grade: 10, LastModified: base.Add(3 * time.Hour)})
	repo.add(models.Lesson{ID: "c", UserID: "u1", Subject: "Bahasa Indonesia", Level: models.LevelSD, Grade: 5, LastModified: base.Add(2 * time.Hour)})
	repo.add(models.Lesson{ID: "d", UserID: "u1", Subject: "Fisika", Level: models.LevelSMA, Grade: 11, LastModified: base.Add(4 * time.Hour)})
	repo.add(models.Lesson{ID: "x", UserID: "u2", Subject: "Kimia", Level: models.LevelSMK, Grade: 10, LastModified: base})
}

func summaryIDs(list []models.LessonSummary) []string {
	ids := make([]string, 0, len(list))
	for _, l := range list {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestLessonServiceListGroupsByLevelInFixedOrder(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	svc := newTestLessonService(repo, nil)

	resp, hit, err := svc.ListSummaries(context.Background(), "u1", models.LessonFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, resp.Total)
	assert.Nil(t, resp.Lessons)
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, models.LevelSD, resp.Groups[0].Level)
	assert.Equal(t, []string{"c", "a"}, summaryIDs(resp.Groups[0].Lessons))
	assert.Equal(t, models.LevelSMA, resp.Groups[1].Level)
	assert.Equal(t, []string{"d", "b"}, summaryIDs(resp.Groups[1].Lessons))
}

func TestLessonServiceListLevelFilterIsFlat(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	svc := newTestLessonService(repo, nil)

	resp, _, err := svc.ListSummaries(context.Background(), "u1", models.LessonFilter{Level: "sma", Sort: models.SortModifiedAsc})
	require.NoError(t, err)
	assert.Nil(t, resp.Groups)
	assert.Equal(t, []string{"b", "d"}, summaryIDs(resp.Lessons))
}

func TestLessonServiceListEmptyLevelFilter(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	svc := newTestLessonService(repo, nil)

	resp, _, err := svc.ListSummaries(context.Background(), "u1", models.LessonFilter{Level: models.LevelSMP})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Lessons)
	assert.Empty(t, resp.Lessons)
}

func TestLessonServiceListIgnoresGradeOutsideLevel(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	svc := newTestLessonService(repo, nil)

	resp, _, err := svc.ListSummaries(context.Background(), "u1", models.LessonFilter{Level: models.LevelSD, Grade: 10})
	require.NoError(t, err)
	assert.Len(t, resp.Lessons, 2)

	resp, _, err = svc.ListSummaries(context.Background(), "u1", models.LessonFilter{Grade: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Total)

	resp, _, err = svc.ListSummaries(context.Background(), "u1", models.LessonFilter{Level: models.LevelSD, Grade: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, summaryIDs(resp.Lessons))
}

func TestLessonServiceListSearchAndSubjectSort(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	svc := newTestLessonService(repo, nil)

	resp, _, err := svc.ListSummaries(context.Background(), "u1", models.LessonFilter{Search: "  BI ", Sort: models.SortSubjectAsc})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, []string{"b"}, summaryIDs(resp.Groups[0].Lessons))

	resp, _, err = svc.ListSummaries(context.Background(), "u1", models.LessonFilter{Level: models.LevelSD, Sort: models.SortSubjectAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, summaryIDs(resp.Lessons))
}

func TestLessonServiceListUsesCache(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	cache := newMemoryCacheRepo()
	svc := newTestLessonService(repo, cache)

	_, hit, err := svc.ListSummaries(context.Background(), "u1", models.LessonFilter{})
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = svc.ListSummaries(context.Background(), "u1", models.LessonFilter{Level: models.LevelSD})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, repo.listCalls)
}

func TestLessonServiceSaveInsertThenUpdate(t *testing.T) {
	repo := newFakeLessonRepo()
	cache := newMemoryCacheRepo()
	svc := newTestLessonService(repo, cache)
	ctx := context.Background()

	_, _, err := svc.ListSummaries(ctx, "u1", models.LessonFilter{})
	require.NoError(t, err)
	require.True(t, cache.has(summariesCacheKey("u1")))

	created, err := svc.Save(ctx, "u1", dto.SaveLessonRequest{
		Subject:         "Sejarah",
		Level:           "smp",
		Grade:           8,
		DurationMinutes: 80,
		Objective:       models.ObjectiveAnalysis,
		Method:          models.MethodCooperative,
		Content:         "## Sejarah",
	})
	require.NoError(t, err)
	assert.True(t, created.Created)
	require.NotEmpty(t, created.ID)
	assert.False(t, cache.has(summariesCacheKey("u1")))

	updated, err := svc.Save(ctx, "u1", dto.SaveLessonRequest{ID: created.ID, Content: "## Sejarah Baru"})
	require.NoError(t, err)
	assert.False(t, updated.Created)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.LastModified.After(created.LastModified))

	assert.Len(t, repo.lessons, 1)
	assert.Equal(t, "## Sejarah Baru", repo.lessons[created.ID].Content)

	detail, err := svc.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "## Sejarah Baru", detail.Content)
	require.Len(t, detail.Preview, 1)
	assert.Equal(t, "h2", detail.Preview[0].Tag)
}

func TestLessonServiceSaveValidatesNewLesson(t *testing.T) {
	svc := newTestLessonService(newFakeLessonRepo(), nil)

	_, err := svc.Save(context.Background(), "u1", dto.SaveLessonRequest{Subject: "IPA", Level: models.LevelSMP, Grade: 3, Content: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.True(t, strings.Contains(err.Error(), "between 7 and 9"))

	_, err = svc.Save(context.Background(), "u1", dto.SaveLessonRequest{Level: models.LevelSMP, Grade: 7, Content: "x"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	valid := dto.SaveLessonRequest{
		Subject:         "Fisika",
		Level:           models.LevelSMA,
		Grade:           10,
		DurationMinutes: 90,
		Objective:       models.ObjectiveApplication,
		Method:          models.MethodProblemBased,
		Content:         "## x",
	}
	incomplete := []func(r *dto.SaveLessonRequest){
		func(r *dto.SaveLessonRequest) { r.DurationMinutes = 0 },
		func(r *dto.SaveLessonRequest) { r.DurationMinutes = 481 },
		func(r *dto.SaveLessonRequest) { r.Objective = "MEMORIZE" },
		func(r *dto.SaveLessonRequest) { r.Objective = "" },
		func(r *dto.SaveLessonRequest) { r.Method = "" },
	}
	for i, mutate := range incomplete {
		req := valid
		mutate(&req)
		_, err := svc.Save(context.Background(), "u1", req)
		require.Error(t, err, "case %d", i)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, "case %d", i)
	}

	created, err := svc.Save(context.Background(), "u1", valid)
	require.NoError(t, err)
	assert.True(t, created.Created)
}

func TestLessonServiceSaveUnknownID(t *testing.T) {
	svc := newTestLessonService(newFakeLessonRepo(), nil)
	_, err := svc.Save(context.Background(), "u1", dto.SaveLessonRequest{ID: "1f0f6f4e-8f57-4d4e-9d2e-8a1c1b2f3c4d", Content: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceGetScopedToOwner(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	svc := newTestLessonService(repo, nil)

	_, err := svc.Get(context.Background(), "u1", "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceDeleteRemovesFromCacheBeforeStore(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	cache := newMemoryCacheRepo()
	svc := newTestLessonService(repo, cache)
	ctx := context.Background()

	_, _, err := svc.ListSummaries(ctx, "u1", models.LessonFilter{})
	require.NoError(t, err)

	var seenDuringDelete []models.LessonSummary
	repo.onDelete = func() {
		require.NoError(t, cache.Get(ctx, summariesCacheKey("u1"), &seenDuringDelete))
	}

	require.NoError(t, svc.Delete(ctx, "u1", "a"))
	assert.NotContains(t, summaryIDs(seenDuringDelete), "a")
	assert.Len(t, seenDuringDelete, 3)

	resp, hit, err := svc.ListSummaries(ctx, "u1", models.LessonFilter{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, resp.Total)
}

func TestLessonServiceDeleteFailureInvalidatesCache(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	cache := newMemoryCacheRepo()
	svc := newTestLessonService(repo, cache)
	ctx := context.Background()

	_, _, err := svc.ListSummaries(ctx, "u1", models.LessonFilter{})
	require.NoError(t, err)

	repo.deleteErr = errors.New("connection reset")
	err = svc.Delete(ctx, "u1", "a")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.False(t, cache.has(summariesCacheKey("u1")))

	resp, hit, err := svc.ListSummaries(ctx, "u1", models.LessonFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, resp.Total)
}

func TestLessonServiceExportIndex(t *testing.T) {
	repo := newFakeLessonRepo()
	seedLessons(repo)
	svc := newTestLessonService(repo, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC) }

	file, err := svc.ExportIndex(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "lesson_index_20240602.csv", file.Name)
	body := string(file.Payload)
	assert.Contains(t, body, "subject,level,grade,duration_minutes,objective,method,last_modified")
	assert.Contains(t, body, "Fisika,SMA,11")
	assert.NotContains(t, body, "Kimia")
}
