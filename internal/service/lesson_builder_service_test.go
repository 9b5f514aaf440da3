package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/export"
	"github.com/noah-isme/lesson-planner-api/pkg/gemini"
)

type stubTextGenerator struct {
	reply       string
	err         error
	calls       int
	prompt      string
	system      string
	temperature float64
}

func (s *stubTextGenerator) GenerateText(ctx context.Context, prompt, system string, temperature float64) (string, error) {
	s.calls++
	s.prompt, s.system, s.temperature = prompt, system, temperature
	return s.reply, s.err
}

type stubStructuredGenerator struct {
	items  []string
	err    error
	schema map[string]any
}

func (s *stubStructuredGenerator) GenerateStructured(ctx context.Context, prompt string, schema map[string]any) ([]string, error) {
	s.schema = schema
	return s.items, s.err
}

type stubSpeech struct {
	started chan struct{}
	release chan struct{}
	pcm     []byte
	err     error
}

func (s *stubSpeech) GenerateSpeech(ctx context.Context, text string) (gemini.Speech, error) {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	return gemini.Speech{PCM: s.pcm, SampleRate: 24000}, s.err
}

func validLessonForm() dto.GenerateLessonRequest {
	return dto.GenerateLessonRequest{
		Subject:         "Matematika",
		Level:           models.LevelSD,
		Grade:           4,
		DurationMinutes: 70,
		Objective:       models.ObjectiveUnderstanding,
		Method:          models.MethodDiscovery,
	}
}

func TestLessonBuilderGenerateReturnsUnsavedDraft(t *testing.T) {
	text := &stubTextGenerator{reply: "```markdown\n## Pecahan\n- **Tujuan**: memahami\n```"}
	svc := NewLessonBuilderService(LessonBuilderParams{Text: text, Config: LessonBuilderConfig{Temperature: 0.7}})

	draft, err := svc.Generate(context.Background(), validLessonForm())
	require.NoError(t, err)
	assert.Equal(t, 1, text.calls)
	assert.Empty(t, draft.ID)
	assert.Equal(t, "## Pecahan\n- **Tujuan**: memahami", draft.Content)
	require.Len(t, draft.Preview, 2)
	assert.Equal(t, "h2", draft.Preview[0].Tag)
	assert.Equal(t, "ul", draft.Preview[1].Tag)

	assert.Equal(t, dialectInstruction, text.system)
	assert.Equal(t, 0.7, text.temperature)
	assert.Contains(t, text.prompt, "Matematika")
	assert.Contains(t, text.prompt, "SD kelas 4")
	assert.Contains(t, text.prompt, "70 menit")
}

func TestLessonBuilderGenerateRejectsGradeOutsideLevel(t *testing.T) {
	text := &stubTextGenerator{reply: "x"}
	svc := NewLessonBuilderService(LessonBuilderParams{Text: text})

	form := validLessonForm()
	form.Level = models.LevelSMA
	form.Grade = 7
	_, err := svc.Generate(context.Background(), form)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, text.calls)

	form = validLessonForm()
	form.DurationMinutes = 5
	_, err = svc.Generate(context.Background(), form)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLessonBuilderGenerateFailureIsUpstream(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewLessonBuilderService(LessonBuilderParams{Text: &stubTextGenerator{err: errors.New("quota")}, Metrics: metrics})

	_, err := svc.Generate(context.Background(), validLessonForm())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestLessonBuilderReformatKeepsID(t *testing.T) {
	text := &stubTextGenerator{reply: "## Rapi"}
	svc := NewLessonBuilderService(LessonBuilderParams{Text: text})

	draft, err := svc.Reformat(context.Background(), dto.ReformatRequest{ID: "lesson-1", Content: "Rapi"})
	require.NoError(t, err)
	assert.Equal(t, "lesson-1", draft.ID)
	assert.Equal(t, "## Rapi", draft.Content)
	assert.Equal(t, "Rapi", text.prompt)
	assert.Equal(t, reformatInstruction, text.system)
}

func TestLessonBuilderSuggestTrimsAndCaps(t *testing.T) {
	structured := &stubStructuredGenerator{items: []string{" Kuis ", "", "Diskusi", "Proyek"}}
	svc := NewLessonBuilderService(LessonBuilderParams{Structured: structured})

	resp, err := svc.Suggest(context.Background(), dto.SuggestRequest{Subject: "IPA", Level: "smp", Grade: 8, Count: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Kuis", "Diskusi"}, resp.Suggestions)
	assert.Equal(t, "ARRAY", structured.schema["type"])
}

func TestLessonBuilderExports(t *testing.T) {
	svc := NewLessonBuilderService(LessonBuilderParams{})
	req := dto.ExportRequest{Subject: "Ilmu  Pengetahuan Alam", Content: "## Judul\n| A | B |\n|---|---|\n| 1 | 2 |"}

	doc, err := svc.ExportDocument(req)
	require.NoError(t, err)
	assert.Equal(t, "Lesson_Plan_Ilmu_Pengetahuan_Alam.doc", doc.Name)
	assert.Equal(t, export.ContentTypeDoc, doc.ContentType)
	assert.Contains(t, string(doc.Payload), "<table")

	pdf, err := svc.ExportPDF(req)
	require.NoError(t, err)
	assert.Equal(t, "Lesson_Plan_Ilmu_Pengetahuan_Alam.pdf", pdf.Name)
	assert.True(t, strings.HasPrefix(string(pdf.Payload), "%PDF"))

	_, err = svc.ExportPDF(dto.ExportRequest{Subject: "x"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLessonBuilderReadAloudWrapsWAV(t *testing.T) {
	svc := NewLessonBuilderService(LessonBuilderParams{Speech: &stubSpeech{pcm: make([]byte, 480)}})

	file, err := svc.ReadAloud(context.Background(), "u1", dto.SpeechRequest{Content: "## Judul\nIsi"})
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", file.ContentType)
	require.Len(t, file.Payload, 44+480)
	assert.Equal(t, "RIFF", string(file.Payload[:4]))
}

func TestLessonBuilderReadAloudRejectsConcurrentCall(t *testing.T) {
	speech := &stubSpeech{started: make(chan struct{}, 1), release: make(chan struct{}), pcm: []byte{0, 0}}
	svc := NewLessonBuilderService(LessonBuilderParams{Speech: speech})

	done := make(chan error, 1)
	go func() {
		_, err := svc.ReadAloud(context.Background(), "u1", dto.SpeechRequest{Content: "Satu"})
		done <- err
	}()

	select {
	case <-speech.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first read aloud never started")
	}

	_, err := svc.ReadAloud(context.Background(), "u1", dto.SpeechRequest{Content: "Dua"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSpeechInProgress.Code, appErrors.FromError(err).Code)

	close(speech.release)
	require.NoError(t, <-done)

	speech.started = nil
	_, err = svc.ReadAloud(context.Background(), "u1", dto.SpeechRequest{Content: "Tiga"})
	assert.NoError(t, err)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "## A", stripFences("```markdown\n## A\n```"))
	assert.Equal(t, "## A", stripFences("  ## A \n"))
	assert.Equal(t, "```", stripFences("```"))
}
