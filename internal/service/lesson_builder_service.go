package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/pkg/audio"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/export"
	"github.com/noah-isme/lesson-planner-api/pkg/gemini"
	"github.com/noah-isme/lesson-planner-api/pkg/markdown"
)

// AI operation labels used for metrics.
const (
	opGenerate = "generate"
	opReformat = "reformat"
	opSuggest  = "suggest"
	opSpeech   = "speech"
	opChat     = "chat"
	opAnalyze  = "analyze"
)

const defaultSuggestionCount = 5

const dialectInstruction = `You write lesson plans for Indonesian school teachers in Bahasa Indonesia.
Format the answer using only this markdown subset:
- "## " for main sections and "### " for sub-sections
- "- " for bullet points
- **bold** for key terms
- pipe tables with a header row and a |---| separator row as the second line
- a line "> [SCHEMA] <description>" where a diagram or figure belongs
Do not use code fences, numbered lists, HTML, or any other markdown syntax.`

const reformatInstruction = dialectInstruction + `
You are given an existing lesson plan. Restructure it into the format above without adding, removing, or changing any information.`

type textGenerator interface {
	GenerateText(ctx context.Context, prompt, system string, temperature float64) (string, error)
}

type structuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, schema map[string]any) ([]string, error)
}

type speechSynthesizer interface {
	GenerateSpeech(ctx context.Context, text string) (gemini.Speech, error)
}

// LessonBuilderConfig tunes generation.
type LessonBuilderConfig struct {
	Temperature float64
}

// LessonBuilderParams groups constructor dependencies.
type LessonBuilderParams struct {
	Text       textGenerator
	Structured structuredGenerator
	Speech     speechSynthesizer
	PDF        *export.PDFExporter
	Validator  *validator.Validate
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     LessonBuilderConfig
}

// LessonBuilderService turns the builder form into lesson drafts and downloads.
type LessonBuilderService struct {
	text       textGenerator
	structured structuredGenerator
	speech     speechSynthesizer
	pdf        *export.PDFExporter
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        LessonBuilderConfig

	mu       sync.Mutex
	speaking map[string]struct{}
}

// NewLessonBuilderService constructs the builder.
func NewLessonBuilderService(params LessonBuilderParams) *LessonBuilderService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.PDF == nil {
		params.PDF = export.NewPDFExporter()
	}
	return &LessonBuilderService{
		text:       params.Text,
		structured: params.Structured,
		speech:     params.Speech,
		pdf:        params.PDF,
		validator:  params.Validator,
		metrics:    params.Metrics,
		logger:     params.Logger,
		cfg:        params.Config,
		speaking:   make(map[string]struct{}),
	}
}

// Generate produces a fresh draft from the form. The draft has no id until saved.
func (s *LessonBuilderService) Generate(ctx context.Context, req dto.GenerateLessonRequest) (*dto.LessonDraft, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Level = models.Level(strings.ToUpper(string(req.Level)))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson form")
	}
	if !req.Level.AcceptsGrade(req.Grade) {
		first, last := req.Level.GradeRange()
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade for %s must be between %d and %d", req.Level, first, last))
	}

	start := time.Now()
	content, err := s.text.GenerateText(ctx, lessonPrompt(req), dialectInstruction, s.cfg.Temperature)
	s.metrics.ObserveAICall(opGenerate, err, time.Since(start))
	if err != nil {
		s.logger.Warn("lesson generation failed", zap.String("subject", req.Subject), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to generate lesson")
	}
	return draft("", content), nil
}

// Reformat restructures existing content. The draft keeps its id.
func (s *LessonBuilderService) Reformat(ctx context.Context, req dto.ReformatRequest) (*dto.LessonDraft, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reformat payload")
	}

	start := time.Now()
	content, err := s.text.GenerateText(ctx, req.Content, reformatInstruction, 0)
	s.metrics.ObserveAICall(opReformat, err, time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to reformat lesson")
	}
	return draft(req.ID, content), nil
}

// Preview parses content without calling the model.
func (s *LessonBuilderService) Preview(req dto.PreviewRequest) *dto.LessonDraft {
	return &dto.LessonDraft{Content: req.Content, Preview: markdown.Preview(markdown.Parse(req.Content))}
}

// Suggest returns activity ideas for the form.
func (s *LessonBuilderService) Suggest(ctx context.Context, req dto.SuggestRequest) (*dto.SuggestResponse, error) {
	req.Level = models.Level(strings.ToUpper(string(req.Level)))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid suggestion payload")
	}
	count := req.Count
	if count == 0 {
		count = defaultSuggestionCount
	}
	prompt := fmt.Sprintf("Suggest %d short classroom activity ideas in Bahasa Indonesia for %s, %s grade %d.", count, req.Subject, req.Level, req.Grade)

	start := time.Now()
	ideas, err := s.structured.GenerateStructured(ctx, prompt, gemini.StringArraySchema("classroom activity ideas"))
	s.metrics.ObserveAICall(opSuggest, err, time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to suggest activities")
	}

	out := make([]string, 0, len(ideas))
	for _, idea := range ideas {
		if idea = strings.TrimSpace(idea); idea != "" {
			out = append(out, idea)
		}
		if len(out) == count {
			break
		}
	}
	return &dto.SuggestResponse{Suggestions: out}, nil
}

// ExportDocument renders content as a Word-compatible download.
func (s *LessonBuilderService) ExportDocument(req dto.ExportRequest) (*export.File, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	file := export.DocFile(req.Subject, req.Content)
	return &file, nil
}

// ExportPDF renders the formatted node view of content as a PDF.
func (s *LessonBuilderService) ExportPDF(req dto.ExportRequest) (*export.File, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	file, err := s.pdf.PDFFile(req.Subject, req.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return &file, nil
}

// ReadAloud synthesizes content as a WAV file. A second call for the same user while one is in flight is rejected.
func (s *LessonBuilderService) ReadAloud(ctx context.Context, userID string, req dto.SpeechRequest) (*export.File, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid speech payload")
	}
	text := markdown.Text(markdown.Parse(req.Content))
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to read")
	}

	if !s.acquireSpeech(userID) {
		return nil, appErrors.Clone(appErrors.ErrSpeechInProgress, "")
	}
	defer s.releaseSpeech(userID)

	start := time.Now()
	speech, err := s.speech.GenerateSpeech(ctx, text)
	s.metrics.ObserveAICall(opSpeech, err, time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to synthesize speech")
	}
	return &export.File{
		Name:        "lesson.wav",
		ContentType: "audio/wav",
		Payload:     audio.WAV(speech.PCM, speech.SampleRate),
	}, nil
}

func (s *LessonBuilderService) acquireSpeech(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.speaking[userID]; busy {
		return false
	}
	s.speaking[userID] = struct{}{}
	return true
}

func (s *LessonBuilderService) releaseSpeech(userID string) {
	s.mu.Lock()
	delete(s.speaking, userID)
	s.mu.Unlock()
}

func draft(id, content string) *dto.LessonDraft {
	content = stripFences(content)
	return &dto.LessonDraft{ID: id, Content: content, Preview: markdown.Preview(markdown.Parse(content))}
}

// stripFences drops a ```markdown wrapper some models add around the whole answer.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}
	trimmed = strings.TrimSuffix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	return strings.TrimSpace(trimmed)
}

var objectiveLabels = map[models.Objective]string{
	models.ObjectiveUnderstanding: "pemahaman konsep",
	models.ObjectiveApplication:   "penerapan",
	models.ObjectiveAnalysis:      "analisis",
	models.ObjectiveCreation:      "mencipta",
}

var methodLabels = map[models.Method]string{
	models.MethodDiscovery:         "discovery learning",
	models.MethodProjectBased:      "project based learning",
	models.MethodProblemBased:      "problem based learning",
	models.MethodCooperative:       "cooperative learning",
	models.MethodDirectInstruction: "direct instruction",
}

func lessonPrompt(req dto.GenerateLessonRequest) string {
	var b strings.Builder
	b.WriteString("Buat rencana pelaksanaan pembelajaran (RPP) lengkap.\n")
	fmt.Fprintf(&b, "Mata pelajaran: %s\n", req.Subject)
	fmt.Fprintf(&b, "Jenjang: %s kelas %d\n", req.Level, req.Grade)
	fmt.Fprintf(&b, "Alokasi waktu: %d menit\n", req.DurationMinutes)
	fmt.Fprintf(&b, "Tujuan utama: %s\n", objectiveLabels[req.Objective])
	fmt.Fprintf(&b, "Model pembelajaran: %s\n", methodLabels[req.Method])
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		fmt.Fprintf(&b, "Catatan guru: %s\n", notes)
	}
	b.WriteString("Sertakan tujuan pembelajaran, langkah kegiatan dalam tabel (tahap, kegiatan, waktu), asesmen, dan media.")
	return b.String()
}
