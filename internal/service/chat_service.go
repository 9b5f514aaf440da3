package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/gemini"
)

const chatInstruction = `You are a knowledgeable assistant for Indonesian school teachers.
Answer in the language of the question. Be accurate and concise, and prefer practical classroom examples.`

const defaultAnalyzePrompt = "Jelaskan isi berkas ini secara ringkas dan sebutkan bagaimana guru dapat menggunakannya di kelas."

type chatGateway interface {
	Chat(ctx context.Context, req gemini.ChatRequest) (gemini.ChatResponse, error)
	AnalyzeImage(ctx context.Context, data, mimeType, prompt string) (string, error)
}

// ChatServiceConfig tunes the knowledge chat.
type ChatServiceConfig struct {
	MaxAttachmentBytes int64
	GroundingEnabled   bool
}

// ChatService answers knowledge chat turns and file analysis requests.
type ChatService struct {
	gateway   chatGateway
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ChatServiceConfig
}

// NewChatService constructs a chat service.
func NewChatService(gateway chatGateway, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg ChatServiceConfig) *ChatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{gateway: gateway, validator: validate, metrics: metrics, logger: logger, cfg: cfg}
}

// Send answers one chat turn. A failed grounded call is retried exactly once without the search tool.
func (s *ChatService) Send(ctx context.Context, req dto.ChatRequest) (*models.ChatMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat payload")
	}

	call := gemini.ChatRequest{
		System:  chatInstruction,
		History: replayHistory(req.History),
		Message: strings.TrimSpace(req.Message),
	}
	if req.Attachment != nil {
		if err := s.checkAttachment(req.Attachment.Data); err != nil {
			return nil, err
		}
		call.Attachment = &gemini.Blob{MimeType: req.Attachment.MimeType, Data: req.Attachment.Data}
	}

	resp, err := s.ask(ctx, call)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "chat request failed")
	}

	return &models.ChatMessage{
		ID:      uuid.NewString(),
		Role:    models.ChatRoleModel,
		Text:    resp.Text,
		Sources: keepCompleteCitations(resp.Citations),
	}, nil
}

func (s *ChatService) ask(ctx context.Context, call gemini.ChatRequest) (gemini.ChatResponse, error) {
	call.UseSearch = s.cfg.GroundingEnabled
	start := time.Now()
	resp, err := s.gateway.Chat(ctx, call)
	s.metrics.ObserveAICall(opChat, err, time.Since(start))
	if err == nil || !call.UseSearch {
		return resp, err
	}

	s.logger.Warn("grounded chat failed, retrying without search", zap.Error(err))
	s.metrics.RecordChatFallback()
	call.UseSearch = false
	start = time.Now()
	resp, err = s.gateway.Chat(ctx, call)
	s.metrics.ObserveAICall(opChat, err, time.Since(start))
	return resp, err
}

// Analyze describes an uploaded image or document.
func (s *ChatService) Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid analysis payload")
	}
	if err := s.checkAttachment(req.Data); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = defaultAnalyzePrompt
	}

	start := time.Now()
	text, err := s.gateway.AnalyzeImage(ctx, req.Data, req.MimeType, prompt)
	s.metrics.ObserveAICall(opAnalyze, err, time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "analysis request failed")
	}
	return &dto.AnalyzeResponse{Text: text}, nil
}

func (s *ChatService) checkAttachment(data string) error {
	if s.cfg.MaxAttachmentBytes <= 0 {
		return nil
	}
	if size := decodedSize(data); size > s.cfg.MaxAttachmentBytes {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("attachment is %d bytes, limit is %d", size, s.cfg.MaxAttachmentBytes))
	}
	return nil
}

// decodedSize computes the byte length of padded standard base64 without decoding it.
func decodedSize(data string) int64 {
	n := int64(len(data))
	if n == 0 {
		return 0
	}
	size := n / 4 * 3
	if strings.HasSuffix(data, "==") {
		size -= 2
	} else if strings.HasSuffix(data, "=") {
		size--
	}
	return size
}

// replayHistory drops the synthetic welcome and any model turns before the first user turn.
func replayHistory(history []models.ChatMessage) []gemini.Turn {
	turns := make([]gemini.Turn, 0, len(history))
	for _, msg := range history {
		if msg.ID == models.WelcomeMessageID {
			continue
		}
		if len(turns) == 0 && msg.Role != models.ChatRoleUser {
			continue
		}
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		role := gemini.RoleUser
		if msg.Role == models.ChatRoleModel {
			role = gemini.RoleModel
		}
		turns = append(turns, gemini.Turn{Role: role, Text: text})
	}
	return turns
}

func keepCompleteCitations(citations []gemini.Citation) []models.Citation {
	out := make([]models.Citation, 0, len(citations))
	for _, c := range citations {
		title, uri := strings.TrimSpace(c.Title), strings.TrimSpace(c.URI)
		if title == "" || uri == "" {
			continue
		}
		out = append(out, models.Citation{Title: title, URI: uri})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
