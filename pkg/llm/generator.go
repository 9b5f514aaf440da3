// Package llm generates lesson text through any OpenAI-compatible endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/pkg/config"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// TextGenerator produces text with a system instruction and temperature.
type TextGenerator struct {
	model  llms.Model
	logger *zap.Logger
}

// New connects to the configured OpenAI-compatible server (OpenAI, Ollama, vLLM).
func New(cfg config.OpenAIConfig, logger *zap.Logger) (*TextGenerator, error) {
	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: init openai client: %w", err)
	}
	return NewWithModel(model, logger), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, logger *zap.Logger) *TextGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextGenerator{model: model, logger: logger}
}

// GenerateText sends one system + user exchange and returns the first choice.
func (g *TextGenerator) GenerateText(ctx context.Context, prompt, system string, temperature float64) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if system != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, prompt))

	resp, err := g.model.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		g.logger.Warn("llm generation failed", zap.Error(err))
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Content, nil
}
