// Package gemini is a small JSON-over-HTTP client for the hosted generative AI gateway.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/pkg/audio"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
)

// ErrEmptyResponse is returned when the gateway answers without usable content.
var ErrEmptyResponse = errors.New("gemini: empty response")

const defaultSpeechRate = 24000

// Client talks to the gateway REST endpoints and opens live audio sessions.
type Client struct {
	cfg        config.GeminiConfig
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for REST calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDialer overrides the websocket dialer used for live sessions.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// NewClient constructs a gateway client.
func NewClient(cfg config.GeminiConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		dialer:     websocket.DefaultDialer,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateText produces free text from a prompt and system instruction.
func (c *Client) GenerateText(ctx context.Context, prompt, system string, temperature float64) (string, error) {
	req := generateRequest{
		Contents:         []Content{userText(prompt)},
		GenerationConfig: &generationConfig{Temperature: &temperature},
	}
	if system != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}
	resp, err := c.generate(ctx, c.cfg.TextModel, req)
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

// StringArraySchema describes a JSON array of strings for structured output.
func StringArraySchema(description string) map[string]any {
	return map[string]any{
		"type":        "ARRAY",
		"description": description,
		"items":       map[string]any{"type": "STRING"},
	}
}

// GenerateStructured asks for JSON matching schema and validates it as an array of strings.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema map[string]any) ([]string, error) {
	req := generateRequest{
		Contents: []Content{userText(prompt)},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}
	resp, err := c.generate(ctx, c.cfg.TextModel, req)
	if err != nil {
		return nil, err
	}
	text, err := firstText(resp)
	if err != nil {
		return nil, err
	}

	var items []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &items); err != nil {
		return nil, fmt.Errorf("gemini: structured output is not a string array: %w", err)
	}
	return items, nil
}

// GenerateSpeech synthesizes text into PCM audio.
func (c *Client) GenerateSpeech(ctx context.Context, text string) (Speech, error) {
	req := generateRequest{
		Contents: []Content{userText(text)},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: c.cfg.TTSVoice},
			}},
		},
	}
	resp, err := c.generate(ctx, c.cfg.TTSModel, req)
	if err != nil {
		return Speech{}, err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return Speech{}, fmt.Errorf("gemini: decode speech: %w", err)
			}
			return Speech{PCM: pcm, SampleRate: audio.RateFromMIME(part.InlineData.MimeType, defaultSpeechRate)}, nil
		}
	}
	return Speech{}, ErrEmptyResponse
}

// AnalyzeImage describes or answers a prompt about an inline image or document.
func (c *Client) AnalyzeImage(ctx context.Context, data, mimeType, prompt string) (string, error) {
	req := generateRequest{
		Contents: []Content{{
			Role: RoleUser,
			Parts: []Part{
				{InlineData: &Blob{MimeType: mimeType, Data: data}},
				{Text: prompt},
			},
		}},
	}
	resp, err := c.generate(ctx, c.cfg.TextModel, req)
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

// Chat sends history plus a new message, optionally with the search tool enabled.
func (c *Client) Chat(ctx context.Context, in ChatRequest) (ChatResponse, error) {
	contents := make([]Content, 0, len(in.History)+1)
	for _, turn := range in.History {
		contents = append(contents, Content{Role: turn.Role, Parts: []Part{{Text: turn.Text}}})
	}
	msg := Content{Role: RoleUser}
	if in.Attachment != nil {
		msg.Parts = append(msg.Parts, Part{InlineData: in.Attachment})
	}
	if strings.TrimSpace(in.Message) != "" {
		msg.Parts = append(msg.Parts, Part{Text: in.Message})
	}
	contents = append(contents, msg)

	req := generateRequest{Contents: contents}
	if in.System != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: in.System}}}
	}
	if in.UseSearch {
		req.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	resp, err := c.generate(ctx, c.cfg.TextModel, req)
	if err != nil {
		return ChatResponse{}, err
	}
	text, err := firstText(resp)
	if err != nil {
		return ChatResponse{}, err
	}

	out := ChatResponse{Text: text}
	if meta := resp.Candidates[0].GroundingMetadata; meta != nil {
		for _, chunk := range meta.GroundingChunks {
			if chunk.Web != nil {
				out.Citations = append(out.Citations, *chunk.Web)
			}
		}
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, model string, body generateRequest) (*generateResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("gemini: read response: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var body apiErrorBody
		if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
			apiErr.Message = body.Error.Message
			apiErr.Status = body.Error.Status
		}
		c.logger.Warn("gemini request failed",
			zap.String("model", model),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("gemini: prompt blocked: %s", out.PromptFeedback.BlockReason)
		}
		return nil, ErrEmptyResponse
	}
	return &out, nil
}

func userText(text string) Content {
	return Content{Role: RoleUser, Parts: []Part{{Text: text}}}
}

func firstText(resp *generateResponse) (string, error) {
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
