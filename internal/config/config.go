package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the LambdaPulse server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	LogSource LogSourceConfig
	Loki      LokiConfig
	AWS       AWSConfig
	AI        AIConfig
	Summary   SummaryConfig
	Cache     CacheConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	LogLevel           string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig selects the shared cache. An empty URL selects the in-process cache.
type RedisConfig struct {
	URL string
}

type LogSourceConfig struct {
	Kind string
}

type LokiConfig struct {
	BaseURL       string
	Username      string
	Password      string
	OrgID         string
	FunctionLabel string
	Timeout       time.Duration
}

type AWSConfig struct {
	EndpointURL    string
	CredentialsKey string
}

type AIConfig struct {
	Provider  string
	Model     string
	GitHub    GitHubConfig
	OpenAI    OpenAIConfig
	VLLM      VLLMConfig
	Ollama    OllamaConfig
	Anthropic AnthropicConfig
}

type GitHubConfig struct {
	Token   string
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// SummaryConfig tunes the AI summary job stages.
type SummaryConfig struct {
	InferenceTimeout   time.Duration
	ChunkTimeout       time.Duration
	ConsolidateTimeout time.Duration
	RetryTimeout       time.Duration
	FallbackTimeout    time.Duration
	MaxLogs            int
	ChunkSize          int
	FallbackThreshold  int
	TruncatedLogs      int
	SampleLogs         int
	JobTTL             time.Duration
}

type CacheConfig struct {
	LogsTTL    time.Duration
	MetricsTTL time.Duration
}

var validProviders = map[string]bool{
	"github":    true,
	"openai":    true,
	"vllm":      true,
	"ollama":    true,
	"anthropic": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("LAMBDAPULSE_PORT", 8080),
			Env:                envString("LAMBDAPULSE_ENV", "development"),
			LogLevel:           strings.ToLower(envString("LOG_LEVEL", "info")),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
			ShutdownTimeout:    envDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		LogSource: LogSourceConfig{
			Kind: strings.ToLower(envString("LOG_SOURCE", "cloudwatch")),
		},
		Loki: LokiConfig{
			BaseURL:       os.Getenv("LOKI_BASE_URL"),
			Username:      os.Getenv("LOKI_USERNAME"),
			Password:      os.Getenv("LOKI_PASSWORD"),
			OrgID:         envString("LOKI_ORG_ID", "default"),
			FunctionLabel: envString("LOKI_FUNCTION_LABEL", "function_name"),
			Timeout:       envDuration("LOKI_TIMEOUT", 30*time.Second),
		},
		AWS: AWSConfig{
			EndpointURL:    os.Getenv("AWS_ENDPOINT_URL"),
			CredentialsKey: os.Getenv("CREDENTIALS_KEY"),
		},
		AI: AIConfig{
			Provider: strings.ToLower(os.Getenv("AI_PROVIDER")),
			Model:    os.Getenv("AI_MODEL"),
			GitHub: GitHubConfig{
				Token:   os.Getenv("GITHUB_TOKEN"),
				BaseURL: envString("GITHUB_MODELS_BASE_URL", "https://models.github.ai/inference"),
				Model:   envString("GITHUB_MODEL", "openai/gpt-4o-mini"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			VLLM: VLLMConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000/v1"),
				Model:   envString("VLLM_MODEL", ""),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			Anthropic: AnthropicConfig{
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
		},
		Summary: SummaryConfig{
			InferenceTimeout:   envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 90*time.Second),
			ChunkTimeout:       envDurationSecs("AI_CHUNK_TIMEOUT_SECS", 45*time.Second),
			ConsolidateTimeout: envDurationSecs("AI_CONSOLIDATE_TIMEOUT_SECS", 60*time.Second),
			RetryTimeout:       envDurationSecs("AI_RETRY_TIMEOUT_SECS", 120*time.Second),
			FallbackTimeout:    envDurationSecs("AI_FALLBACK_TIMEOUT_SECS", 60*time.Second),
			MaxLogs:            envInt("AI_MAX_LOGS", 120),
			ChunkSize:          envInt("AI_CHUNK_SIZE", 40),
			FallbackThreshold:  envInt("AI_FALLBACK_THRESHOLD", 60),
			TruncatedLogs:      envInt("AI_TRUNCATED_LOGS", 30),
			SampleLogs:         envInt("AI_SAMPLE_LOGS", 15),
			JobTTL:             envDuration("AI_JOB_TTL", 30*time.Minute),
		},
		Cache: CacheConfig{
			LogsTTL:    envDuration("LOGS_CACHE_TTL", 60*time.Second),
			MetricsTTL: envDuration("METRICS_CACHE_TTL", 5*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultModel returns the model used when a summary request names none.
func (c AIConfig) DefaultModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case "github":
		return c.GitHub.Model
	case "openai":
		return c.OpenAI.Model
	case "vllm":
		return c.VLLM.Model
	case "ollama":
		return c.Ollama.Model
	case "anthropic":
		return c.Anthropic.Model
	default:
		return ""
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	switch c.LogSource.Kind {
	case "cloudwatch":
	case "loki":
		if c.Loki.BaseURL == "" {
			return fmt.Errorf("LOKI_BASE_URL is required when LOG_SOURCE is loki")
		}
		if !isHTTPURL(c.Loki.BaseURL) {
			return fmt.Errorf("LOKI_BASE_URL must start with http:// or https://, got %q", c.Loki.BaseURL)
		}
	default:
		return fmt.Errorf("LOG_SOURCE must be one of cloudwatch, loki; got %q", c.LogSource.Kind)
	}

	if c.AWS.CredentialsKey != "" {
		raw, err := base64.StdEncoding.DecodeString(c.AWS.CredentialsKey)
		if err != nil || len(raw) != 32 {
			return fmt.Errorf("CREDENTIALS_KEY must be 32 bytes, base64 encoded")
		}
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of github, openai, vllm, ollama, anthropic; got %q", c.AI.Provider)
	}

	if c.AI.Provider == "github" && c.AI.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is required when AI_PROVIDER is github")
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}
	if c.AI.DefaultModel() == "" {
		return fmt.Errorf("AI_MODEL is required when AI_PROVIDER is %s and no provider model is set", c.AI.Provider)
	}

	s := c.Summary
	if s.ChunkSize <= 0 || s.MaxLogs <= 0 || s.TruncatedLogs <= 0 || s.SampleLogs <= 0 {
		return fmt.Errorf("AI_CHUNK_SIZE, AI_MAX_LOGS, AI_TRUNCATED_LOGS and AI_SAMPLE_LOGS must be positive")
	}
	if s.InferenceTimeout <= 0 || s.ChunkTimeout <= 0 || s.ConsolidateTimeout <= 0 || s.RetryTimeout <= 0 || s.FallbackTimeout <= 0 {
		return fmt.Errorf("AI stage timeouts must be positive")
	}

	return nil
}

func isHTTPURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
