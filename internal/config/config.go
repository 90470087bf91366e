package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	ServerPort int    `envconfig:"SERVER_PORT" default:"8000"`
	StateDir   string `envconfig:"STATE_DIR" default:"vector_store"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`

	AIProvider     string `envconfig:"AI_PROVIDER" default:"openai"`
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	GeminiAPIKey         string `envconfig:"GEMINI_API_KEY"`
	GeminiEmbeddingModel string `envconfig:"GEMINI_EMBEDDING_MODEL" default:"gemini-embedding-001"`
	GeminiChatModel      string `envconfig:"GEMINI_CHAT_MODEL" default:"gemini-1.5-flash"`

	RequestTimeoutSeconds int      `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"30"`
	MaxUploadSizeMB       int64    `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	AllowedOrigins        []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:3000"`
	QueryLogPath          string   `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
}

func Load() (*Config, error) {
	// Env vars set in the shell win over .env; ignore a missing file.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("%w: STATE_DIR", ErrMissingRequired)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalidValue)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalidValue)
	}
	if c.AIProvider != ProviderOpenAI && c.AIProvider != ProviderGemini {
		return fmt.Errorf("%w: AI_PROVIDER must be %q or %q", ErrInvalidValue, ProviderOpenAI, ProviderGemini)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: REQUEST_TIMEOUT_SECONDS must be positive", ErrInvalidValue)
	}
	return nil
}
