package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends
const (
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DataDir        string `envconfig:"DATA_DIR" default:"data"`
	CatalogPattern string `envconfig:"CATALOG_PATTERN" default:"cursos_completo_*.json"`

	StoreBackend      string `envconfig:"STORE_BACKEND" default:"file"`
	StorePath         string `envconfig:"STORE_PATH" default:"data/course_embeddings.csv"`
	FallbackStorePath string `envconfig:"FALLBACK_STORE_PATH"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"coursebot-corpus"`
	S3Key       string `envconfig:"S3_KEY" default:"course_embeddings.csv"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey  string        `envconfig:"OPENAI_API_KEY"`
	OpenAIOrg     string        `envconfig:"OPENAI_ORG"`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL"`
	OpenAITimeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"0s"`

	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	GenerationModel     string  `envconfig:"GENERATION_MODEL" default:"gpt-3.5-turbo-0125"`
	Temperature         float32 `envconfig:"TEMPERATURE" default:"0.7"`
	TokenBudget         int     `envconfig:"TOKEN_BUDGET" default:"3596"`
	BatchSize           int     `envconfig:"BATCH_SIZE" default:"100"`
	TopN                int     `envconfig:"TOP_N" default:"100"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("COURSEBOT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected store backend has what it needs.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile:
		if c.StorePath == "" {
			return fmt.Errorf("STORE_PATH is required for the file backend")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (expected file, s3 or postgres)", c.StoreBackend)
	}

	if c.TokenBudget <= 0 {
		return fmt.Errorf("TOKEN_BUDGET must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}
	return nil
}

func (c *Config) HasS3Credentials() bool {
	return c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
