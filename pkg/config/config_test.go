package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, ProviderGemini, cfg.AI.TextProvider)
	assert.Equal(t, int64(4*1024*1024), cfg.Chat.MaxAttachmentBytes)
	assert.True(t, cfg.Chat.GroundingEnabled)
	assert.Equal(t, 16000, cfg.Live.InputSampleRate)
	assert.Equal(t, 24000, cfg.Live.OutputSampleRate)
	assert.Equal(t, 4096, cfg.Live.FrameSamples)
	assert.Equal(t, 10*time.Minute, cfg.Lessons.CacheTTL)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.Gemini.BaseURL)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("AI_PROVIDER_TEXT", "OpenAI")
	v.Set("LIVE_FRAME_SAMPLES", -1)
	v.Set("LESSONS_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := fromViper(v)

	assert.Equal(t, ProviderOpenAI, cfg.AI.TextProvider)
	assert.Equal(t, 4096, cfg.Live.FrameSamples)
	assert.Equal(t, 10*time.Minute, cfg.Lessons.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
