package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every configurable concern of the service.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Redis   RedisConfig
	Session SessionConfig
	Stream  StreamConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	redis, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	stream, err := loadStreamConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Redis: redis, Session: session, Stream: stream}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// Provider names accepted by AI_PROVIDER.
const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// AIConfig describes the language-model backends.
type AIConfig struct {
	Provider string

	// Ark credentials (teacher-compatible env names).
	ArkAPIKey  string
	ArkBaseURL string
	ArkRegion  string

	// OpenAI-compatible credentials.
	OpenAIAPIKey  string
	OpenAIBaseURL string

	Model            string
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	FrequencyPenalty *float64
	PresencePenalty  *float64

	// Timeout is the per-turn completion budget.
	Timeout time.Duration

	// IntentLLMEnabled switches intent detection from the keyword table to
	// the model-backed detector.
	IntentLLMEnabled bool
	// HistoryLimit bounds how many prior messages are replayed to the model.
	HistoryLimit int
}

// Enabled reports whether any provider credential is present.
func (c AIConfig) Enabled() bool {
	if c.Model == "" {
		return false
	}
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	default:
		return c.ArkAPIKey != ""
	}
}

// NewArkChatModel builds the eino chat model for the ark provider.
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.ArkAPIKey == "" || c.Model == "" {
		return nil, fmt.Errorf("ark credentials missing: ARK_API_KEY and AI_MODEL are required")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	freqPenalty, err := parseOptionalFloatEnv("AI_FREQUENCY_PENALTY")
	if err != nil {
		return AIConfig{}, err
	}

	presPenalty, err := parseOptionalFloatEnv("AI_PRESENCE_PENALTY")
	if err != nil {
		return AIConfig{}, err
	}

	timeoutMs, err := parseOptionalIntEnv("AI_TIMEOUT_MS")
	if err != nil {
		return AIConfig{}, err
	}
	timeout := 15 * time.Second
	if timeoutMs != nil && *timeoutMs > 0 {
		timeout = time.Duration(*timeoutMs) * time.Millisecond
	}

	intentLLM, err := parseBoolEnv("AI_INTENT_LLM_ENABLED", false)
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 10
	if limitOverride, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if limitOverride != nil && *limitOverride > 0 {
		historyLimit = *limitOverride
	}

	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderArk))
	if provider != ProviderArk && provider != ProviderOpenAI {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value: %q", provider)
	}

	return AIConfig{
		Provider:         provider,
		ArkAPIKey:        strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkBaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		OpenAIAPIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:    getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:            strings.TrimSpace(os.Getenv("AI_MODEL")),
		Temperature:      temperature,
		TopP:             topP,
		MaxTokens:        maxTokens,
		FrequencyPenalty: freqPenalty,
		PresencePenalty:  presPenalty,
		Timeout:          timeout,
		IntentLLMEnabled: intentLLM,
		HistoryLimit:     historyLimit,
	}, nil
}

// RedisConfig describes the optional durable session store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL expires idle session documents; zero keeps them forever.
	TTL time.Duration
}

// Enabled reports whether a redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func loadRedisConfig() (RedisConfig, error) {
	db := 0
	if dbOverride, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return RedisConfig{}, err
	} else if dbOverride != nil {
		db = *dbOverride
	}

	ttlHours, err := parseOptionalIntEnv("REDIS_SESSION_TTL_HOURS")
	if err != nil {
		return RedisConfig{}, err
	}
	ttl := time.Duration(0)
	if ttlHours != nil && *ttlHours > 0 {
		ttl = time.Duration(*ttlHours) * time.Hour
	}

	return RedisConfig{
		Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		Password: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		DB:       db,
		TTL:      ttl,
	}, nil
}

// SessionConfig tunes the inactivity sweep.
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	idleMinutes := 30
	if idleOverride, err := parseOptionalIntEnv("SESSION_IDLE_MINUTES"); err != nil {
		return SessionConfig{}, err
	} else if idleOverride != nil && *idleOverride > 0 {
		idleMinutes = *idleOverride
	}

	sweepMinutes := 5
	if sweepOverride, err := parseOptionalIntEnv("SESSION_SWEEP_MINUTES"); err != nil {
		return SessionConfig{}, err
	} else if sweepOverride != nil && *sweepOverride > 0 {
		sweepMinutes = *sweepOverride
	}

	return SessionConfig{
		IdleTimeout:   time.Duration(idleMinutes) * time.Minute,
		SweepInterval: time.Duration(sweepMinutes) * time.Minute,
	}, nil
}

// StreamConfig paces how a finished reply is chunked onto the channel.
type StreamConfig struct {
	ChunkWords int
	ChunkDelay time.Duration
}

func loadStreamConfig() (StreamConfig, error) {
	words := 3
	if wordsOverride, err := parseOptionalIntEnv("STREAM_CHUNK_WORDS"); err != nil {
		return StreamConfig{}, err
	} else if wordsOverride != nil && *wordsOverride > 0 {
		words = *wordsOverride
	}

	delayMs := 40
	if delayOverride, err := parseOptionalIntEnv("STREAM_CHUNK_DELAY_MS"); err != nil {
		return StreamConfig{}, err
	} else if delayOverride != nil && *delayOverride >= 0 {
		delayMs = *delayOverride
	}

	return StreamConfig{
		ChunkWords: words,
		ChunkDelay: time.Duration(delayMs) * time.Millisecond,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
