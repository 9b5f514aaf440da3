package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Text generation providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	AI       AIConfig
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
	Chat     ChatConfig
	Lessons  LessonsConfig
	Live     LiveConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AIConfig selects which backend serves plain text generation.
type AIConfig struct {
	TextProvider string
	Temperature  float64
}

// GeminiConfig configures the hosted AI gateway.
type GeminiConfig struct {
	APIKey    string
	BaseURL   string
	TextModel string
	TTSModel  string
	TTSVoice  string
	LiveModel string
	LiveURL   string
	Timeout   time.Duration
}

// OpenAIConfig configures the OpenAI-compatible text backend.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// ChatConfig tunes the knowledge chat.
type ChatConfig struct {
	MaxAttachmentBytes int64
	GroundingEnabled   bool
}

// LessonsConfig governs the saved lesson summary cache.
type LessonsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// LiveConfig describes live voice audio formats and limits.
type LiveConfig struct {
	InputSampleRate  int
	OutputSampleRate int
	FrameSamples     int
	IdleTimeout      time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	provider := strings.ToLower(strings.TrimSpace(v.GetString("AI_PROVIDER_TEXT")))
	if provider != ProviderOpenAI {
		provider = ProviderGemini
	}
	cfg.AI = AIConfig{
		TextProvider: provider,
		Temperature:  v.GetFloat64("AI_TEMPERATURE"),
	}

	cfg.Gemini = GeminiConfig{
		APIKey:    v.GetString("GEMINI_API_KEY"),
		BaseURL:   strings.TrimRight(v.GetString("GEMINI_BASE_URL"), "/"),
		TextModel: v.GetString("GEMINI_TEXT_MODEL"),
		TTSModel:  v.GetString("GEMINI_TTS_MODEL"),
		TTSVoice:  v.GetString("GEMINI_TTS_VOICE"),
		LiveModel: v.GetString("GEMINI_LIVE_MODEL"),
		LiveURL:   v.GetString("GEMINI_LIVE_URL"),
		Timeout:   parseDuration(v.GetString("GEMINI_TIMEOUT"), 90*time.Second),
	}

	cfg.OpenAI = OpenAIConfig{
		BaseURL: v.GetString("OPENAI_BASE_URL"),
		APIKey:  v.GetString("OPENAI_API_KEY"),
		Model:   v.GetString("OPENAI_MODEL"),
	}

	maxAttachment := v.GetInt64("CHAT_MAX_ATTACHMENT_BYTES")
	if maxAttachment <= 0 {
		maxAttachment = 4 * 1024 * 1024
	}
	cfg.Chat = ChatConfig{
		MaxAttachmentBytes: maxAttachment,
		GroundingEnabled:   v.GetBool("CHAT_GROUNDING_ENABLED"),
	}

	cfg.Lessons = LessonsConfig{
		CacheEnabled: v.GetBool("ENABLE_LESSON_CACHE"),
		CacheTTL:     parseDuration(v.GetString("LESSONS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Live = LiveConfig{
		InputSampleRate:  positiveOr(v.GetInt("LIVE_INPUT_SAMPLE_RATE"), 16000),
		OutputSampleRate: positiveOr(v.GetInt("LIVE_OUTPUT_SAMPLE_RATE"), 24000),
		FrameSamples:     positiveOr(v.GetInt("LIVE_FRAME_SAMPLES"), 4096),
		IdleTimeout:      parseDuration(v.GetString("LIVE_IDLE_TIMEOUT"), 5*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lesson_planner")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AI_PROVIDER_TEXT", ProviderGemini)
	v.SetDefault("AI_TEMPERATURE", 0.7)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("GEMINI_TEXT_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts")
	v.SetDefault("GEMINI_TTS_VOICE", "Kore")
	v.SetDefault("GEMINI_LIVE_MODEL", "gemini-2.0-flash-live-001")
	v.SetDefault("GEMINI_LIVE_URL", "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent")
	v.SetDefault("GEMINI_TIMEOUT", "90s")

	v.SetDefault("OPENAI_BASE_URL", "http://localhost:11434/v1/")
	v.SetDefault("OPENAI_API_KEY", "unused")
	v.SetDefault("OPENAI_MODEL", "llama3.1:8b")

	v.SetDefault("CHAT_MAX_ATTACHMENT_BYTES", 4*1024*1024)
	v.SetDefault("CHAT_GROUNDING_ENABLED", true)

	v.SetDefault("ENABLE_LESSON_CACHE", true)
	v.SetDefault("LESSONS_CACHE_TTL", "10m")

	v.SetDefault("LIVE_INPUT_SAMPLE_RATE", 16000)
	v.SetDefault("LIVE_OUTPUT_SAMPLE_RATE", 24000)
	v.SetDefault("LIVE_FRAME_SAMPLES", 4096)
	v.SetDefault("LIVE_IDLE_TIMEOUT", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
