package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/gemini"
)

type chatResult struct {
	resp gemini.ChatResponse
	err  error
}

type stubChatGateway struct {
	results  []chatResult
	requests []gemini.ChatRequest
	analyze  string
	prompt   string
}

func (s *stubChatGateway) Chat(ctx context.Context, req gemini.ChatRequest) (gemini.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.results) == 0 {
		return gemini.ChatResponse{}, errors.New("unexpected call")
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next.resp, next.err
}

func (s *stubChatGateway) AnalyzeImage(ctx context.Context, data, mimeType, prompt string) (string, error) {
	s.prompt = prompt
	return s.analyze, nil
}

func newTestChatService(gateway *stubChatGateway) *ChatService {
	return NewChatService(gateway, nil, NewMetricsService(), nil, ChatServiceConfig{MaxAttachmentBytes: 16, GroundingEnabled: true})
}

func TestChatServiceGroundedSuccessKeepsCompleteCitations(t *testing.T) {
	gateway := &stubChatGateway{results: []chatResult{{resp: gemini.ChatResponse{
		Text: "Fotosintesis adalah ...",
		Citations: []gemini.Citation{
			{Title: "Ensiklopedia", URI: "https://example.org/a"},
			{Title: "", URI: "https://example.org/b"},
			{Title: "Tanpa tautan"},
		},
	}}}}
	svc := newTestChatService(gateway)

	msg, err := svc.Send(context.Background(), dto.ChatRequest{Message: "Apa itu fotosintesis?"})
	require.NoError(t, err)
	require.Len(t, gateway.requests, 1)
	assert.True(t, gateway.requests[0].UseSearch)
	assert.Equal(t, models.ChatRoleModel, msg.Role)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, []models.Citation{{Title: "Ensiklopedia", URI: "https://example.org/a"}}, msg.Sources)
}

func TestChatServiceFallsBackExactlyOnce(t *testing.T) {
	gateway := &stubChatGateway{results: []chatResult{
		{err: errors.New("search tool unavailable")},
		{resp: gemini.ChatResponse{Text: "Jawaban tanpa pencarian"}},
	}}
	svc := newTestChatService(gateway)

	msg, err := svc.Send(context.Background(), dto.ChatRequest{Message: "Halo"})
	require.NoError(t, err)
	require.Len(t, gateway.requests, 2)
	assert.True(t, gateway.requests[0].UseSearch)
	assert.False(t, gateway.requests[1].UseSearch)
	assert.Equal(t, "Jawaban tanpa pencarian", msg.Text)
	assert.Nil(t, msg.Sources)
}

func TestChatServiceBothCallsFail(t *testing.T) {
	gateway := &stubChatGateway{results: []chatResult{
		{err: errors.New("first")},
		{err: errors.New("second")},
		{resp: gemini.ChatResponse{Text: "never"}},
	}}
	svc := newTestChatService(gateway)

	_, err := svc.Send(context.Background(), dto.ChatRequest{Message: "Halo"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
	assert.Len(t, gateway.requests, 2)
}

func TestChatServiceWithoutGroundingMakesSingleCall(t *testing.T) {
	gateway := &stubChatGateway{results: []chatResult{{err: errors.New("down")}}}
	svc := NewChatService(gateway, nil, nil, nil, ChatServiceConfig{})

	_, err := svc.Send(context.Background(), dto.ChatRequest{Message: "Halo"})
	require.Error(t, err)
	assert.Len(t, gateway.requests, 1)
	assert.False(t, gateway.requests[0].UseSearch)
}

func TestChatServiceReplayDropsWelcomeAndLeadingModelTurns(t *testing.T) {
	gateway := &stubChatGateway{results: []chatResult{{resp: gemini.ChatResponse{Text: "ok"}}}}
	svc := newTestChatService(gateway)

	_, err := svc.Send(context.Background(), dto.ChatRequest{
		History: []models.ChatMessage{
			{ID: models.WelcomeMessageID, Role: models.ChatRoleModel, Text: "Halo, ada yang bisa dibantu?"},
			{ID: "m0", Role: models.ChatRoleModel, Text: "stray"},
			{ID: "m1", Role: models.ChatRoleUser, Text: "Pertanyaan satu"},
			{ID: "m2", Role: models.ChatRoleModel, Text: "Jawaban satu"},
		},
		Message: "Pertanyaan dua",
	})
	require.NoError(t, err)
	require.Len(t, gateway.requests, 1)
	assert.Equal(t, []gemini.Turn{
		{Role: gemini.RoleUser, Text: "Pertanyaan satu"},
		{Role: gemini.RoleModel, Text: "Jawaban satu"},
	}, gateway.requests[0].History)
	assert.Equal(t, "Pertanyaan dua", gateway.requests[0].Message)
}

func TestChatServiceAttachmentCap(t *testing.T) {
	gateway := &stubChatGateway{results: []chatResult{{resp: gemini.ChatResponse{Text: "ok"}}}}
	svc := newTestChatService(gateway)

	big := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 17)))
	_, err := svc.Send(context.Background(), dto.ChatRequest{
		Message:    "lihat",
		Attachment: &models.Attachment{MimeType: "image/png", Data: big},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErrors.FromError(err).Code)
	assert.Empty(t, gateway.requests)

	small := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 16)))
	_, err = svc.Send(context.Background(), dto.ChatRequest{
		Attachment: &models.Attachment{MimeType: "image/png", Data: small},
	})
	require.NoError(t, err)
	require.NotNil(t, gateway.requests[0].Attachment)
	assert.Equal(t, "image/png", gateway.requests[0].Attachment.MimeType)
}

func TestChatServiceRejectsEmptyTurn(t *testing.T) {
	svc := newTestChatService(&stubChatGateway{})
	_, err := svc.Send(context.Background(), dto.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestChatServiceAnalyzeDefaultsPrompt(t *testing.T) {
	gateway := &stubChatGateway{analyze: "Gambar sel tumbuhan"}
	svc := newTestChatService(gateway)

	resp, err := svc.Analyze(context.Background(), dto.AnalyzeRequest{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString([]byte("jpeg"))})
	require.NoError(t, err)
	assert.Equal(t, "Gambar sel tumbuhan", resp.Text)
	assert.Equal(t, defaultAnalyzePrompt, gateway.prompt)
}

func TestDecodedSize(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 5, 100} {
		encoded := base64.StdEncoding.EncodeToString(make([]byte, n))
		assert.Equal(t, int64(n), decodedSize(encoded), "n=%d", n)
	}
}
