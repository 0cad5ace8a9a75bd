package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// LLM / embedding provider. The base URL makes any OpenAI-compatible
	// endpoint usable (Together, vLLM, ...).
	LLMAPIKey           string  `envconfig:"LLM_API_KEY"`
	LLMBaseURL          string  `envconfig:"LLM_BASE_URL"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"togethercomputer/m2-bert-80M-32k-retrieval"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	ChatModel           string  `envconfig:"CHAT_MODEL" default:"meta-llama/Llama-3.3-70B-Instruct-Turbo"`
	SearchThreshold     float32 `envconfig:"SEARCH_THRESHOLD" default:"0.75"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"beacon-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Bootstrap: create initial workspace and API key on startup
	InitWorkspaceName string `envconfig:"INIT_WORKSPACE_NAME"`
	InitAPIKey        string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("BEACON", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasLLM() bool {
	return c.LLMAPIKey != ""
}
