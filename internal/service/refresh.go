package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/cloo-solutions/coursebot/internal/domain"
	"github.com/cloo-solutions/coursebot/internal/telemetry"
)

// SnapshotStore persists the embedding store as a whole.
type SnapshotStore interface {
	Save(ctx context.Context, records []domain.EmbeddingRecord) error
	Load(ctx context.Context) ([]domain.EmbeddingRecord, error)
}

// CorpusEmbedder embeds a list of documents.
type CorpusEmbedder interface {
	EmbedAll(ctx context.Context, docs []domain.FlattenedDocument, batchSize int) ([]domain.EmbeddingRecord, EmbedReport)
}

// RefreshConfig locates the catalog and sizes embedding batches.
type RefreshConfig struct {
	DataDir        string
	CatalogPattern string
	BatchSize      int
}

// RefreshResult describes a completed corpus build.
type RefreshResult struct {
	CatalogPath string
	Courses     int
	Documents   int
	Report      EmbedReport
}

// RefreshService rebuilds the persisted embedding store from the newest catalog.
type RefreshService struct {
	embedder CorpusEmbedder
	store    SnapshotStore
	cfg      RefreshConfig
}

// NewRefreshService creates a new RefreshService instance
func NewRefreshService(embedder CorpusEmbedder, store SnapshotStore, cfg RefreshConfig) *RefreshService {
	if cfg.CatalogPattern == "" {
		cfg.CatalogPattern = DefaultCatalogPattern
	}
	return &RefreshService{embedder: embedder, store: store, cfg: cfg}
}

// LatestCatalog returns the catalog file Run would build from.
func (s *RefreshService) LatestCatalog() (string, error) {
	return LatestCatalogFile(s.cfg.DataDir, s.cfg.CatalogPattern)
}

// Run builds the store from the most recent catalog file.
func (s *RefreshService) Run(ctx context.Context) (*RefreshResult, error) {
	path, err := s.LatestCatalog()
	if err != nil {
		return nil, err
	}
	return s.RunFile(ctx, path)
}

// RunFile builds the store from the given catalog file and persists it.
func (s *RefreshService) RunFile(ctx context.Context, path string) (*RefreshResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RefreshService.RunFile", telemetry.SpanAttributes{
		Operation: "refresh_corpus",
	})
	defer span.End()

	log.Printf("build: loading catalog %s", filepath.Base(path))
	catalog, err := LoadCatalog(path)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	docs := BuildCorpus(catalog)
	log.Printf("build: %d of %d courses have enough text to index", len(docs), len(catalog))

	records, report := s.embedder.EmbedAll(ctx, docs, s.cfg.BatchSize)
	if report.FailedBatch > 0 {
		log.Printf("build: %d of %d batches failed, %d documents stored with zero vectors",
			report.FailedBatch, report.Batches, report.Placeholders)
	}

	if err := s.store.Save(ctx, records); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to save embedding store: %w", err)
	}
	log.Printf("build: stored %d embeddings", len(records))

	return &RefreshResult{
		CatalogPath: path,
		Courses:     len(catalog),
		Documents:   len(records),
		Report:      report,
	}, nil
}

// LoadCorpus loads the persisted store into an in-memory Corpus.
func LoadCorpus(ctx context.Context, store SnapshotStore) (*Corpus, error) {
	records, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding store: %w", err)
	}
	return NewCorpus(records), nil
}
