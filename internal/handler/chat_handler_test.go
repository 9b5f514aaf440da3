package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type fakeChatSrv struct {
	last dto.ChatRequest
	err  error
}

func (f *fakeChatSrv) Send(_ context.Context, req dto.ChatRequest) (*models.ChatMessage, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatMessage{ID: "m2", Role: models.ChatRoleModel, Text: "Jawaban"}, nil
}

func (f *fakeChatSrv) Analyze(_ context.Context, req dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	return &dto.AnalyzeResponse{Text: "Sel tumbuhan"}, nil
}

func TestChatHandlerSendReplaysHistory(t *testing.T) {
	srv := &fakeChatSrv{}
	handler := NewChatHandler(srv)

	body := []byte(`{"history":[{"id":"m1","role":"user","text":"Halo"}],"message":"Apa itu sel?"}`)
	c, rec := newAuthedContext(http.MethodPost, "/chat", body)
	handler.Send(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, srv.last.History, 1)
	assert.Equal(t, "Apa itu sel?", srv.last.Message)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Jawaban", envelope.Data["text"])
}

func TestChatHandlerSendMapsPayloadTooLarge(t *testing.T) {
	handler := NewChatHandler(&fakeChatSrv{err: appErrors.Clone(appErrors.ErrPayloadTooLarge, "attachment too large")})

	c, rec := newAuthedContext(http.MethodPost, "/chat", []byte(`{"message":"lihat"}`))
	handler.Send(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChatHandlerAnalyze(t *testing.T) {
	handler := NewChatHandler(&fakeChatSrv{})

	c, rec := newAuthedContext(http.MethodPost, "/chat/analyze", []byte(`{"mime_type":"image/png","data":"aGk="}`))
	handler.Analyze(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sel tumbuhan")
}
