// Package cli wires configuration, stores and services into the coursebot commands.
package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/coursebot/internal/config"
	"github.com/cloo-solutions/coursebot/internal/database"
	"github.com/cloo-solutions/coursebot/internal/openai"
	"github.com/cloo-solutions/coursebot/internal/repository"
	"github.com/cloo-solutions/coursebot/internal/service"
	"github.com/cloo-solutions/coursebot/internal/storage"
	"github.com/cloo-solutions/coursebot/internal/telemetry"
	"github.com/cloo-solutions/coursebot/internal/tokenizer"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// initTelemetry starts Sentry when a DSN is configured. The returned func flushes it.
func initTelemetry(cfg *config.Config) func() {
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	flush, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return flush
}

// openStore returns the snapshot store selected by STORE_BACKEND and a func
// releasing whatever it holds open.
func openStore(ctx context.Context, cfg *config.Config) (service.SnapshotStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendS3:
		if !cfg.HasS3Credentials() {
			log.Println("store: no static S3 credentials, using the default AWS credential chain")
		}
		client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    cfg.S3Endpoint != "",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		log.Printf("store: s3://%s/%s", cfg.S3Bucket, cfg.S3Key)
		return storage.NewS3Store(client, cfg.S3Key), func() {}, nil

	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, err
		}
		log.Println("store: postgres")
		return repository.NewEmbeddingSnapshotRepository(pool), pool.Close, nil

	default:
		log.Printf("store: %s", cfg.StorePath)
		return storage.NewFileStore(cfg.StorePath, cfg.FallbackStorePath), func() {}, nil
	}
}

func newOpenAIClient(cfg *config.Config) (*openai.Client, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("COURSEBOT_OPENAI_API_KEY is required: %w", openai.ErrNoAPIKey)
	}
	return openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		OrgID:               cfg.OpenAIOrg,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		Timeout:             cfg.OpenAITimeout,
	}), nil
}

func addMigrateFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("migrate", false, "Apply database migrations before opening the postgres store")
}

// migrateIfRequested applies migrations when --migrate is set and the store is postgres.
func migrateIfRequested(cmd *cobra.Command, cfg *config.Config) error {
	migrate, _ := cmd.Flags().GetBool("migrate")
	if !migrate || cfg.StoreBackend != config.BackendPostgres {
		return nil
	}
	if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsSource); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// newAnswerService loads the persisted corpus and builds the query pipeline on top of it.
func newAnswerService(ctx context.Context, cfg *config.Config) (*service.AnswerService, func(), error) {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	corpus, err := service.LoadCorpus(ctx, store)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	log.Printf("corpus: loaded %d documents", corpus.Len())

	client, err := newOpenAIClient(cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	tok, err := tokenizer.New(cfg.GenerationModel)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	svc := service.NewAnswerService(corpus, client, client, tok, service.AnswerConfig{
		Model:       cfg.GenerationModel,
		Temperature: cfg.Temperature,
		TokenBudget: cfg.TokenBudget,
		TopN:        cfg.TopN,
		Debug:       cfg.Debug,
	})
	return svc, closeStore, nil
}
