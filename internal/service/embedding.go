package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/coursebot/internal/domain"
	"github.com/cloo-solutions/coursebot/internal/telemetry"
)

const (
	// DefaultBatchSize is the number of texts sent per embedding request.
	DefaultBatchSize = 100
	// DefaultEmbeddingDimensions matches text-embedding-ada-002.
	DefaultEmbeddingDimensions = 1536
)

// BatchEmbeddingClient embeds several texts in one request, returning vectors in input order.
type BatchEmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// BatchResult is the outcome of one embedding request.
type BatchResult struct {
	Index   int
	Start   int
	Vectors [][]float32
	Err     error
}

// Failed reports whether the batch vectors are zero placeholders.
func (b BatchResult) Failed() bool {
	return b.Err != nil
}

// EmbedReport summarizes an EmbedAll run.
type EmbedReport struct {
	Batches      int
	FailedBatch  int
	Placeholders int
}

// EmbeddingService turns flattened documents into embedding records.
type EmbeddingService struct {
	client     BatchEmbeddingClient
	dimensions int
}

// NewEmbeddingService creates a new EmbeddingService. dimensions <= 0 uses the ada-002 size.
func NewEmbeddingService(client BatchEmbeddingClient, dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &EmbeddingService{client: client, dimensions: dimensions}
}

// EmbedAll embeds docs sequentially in batches of batchSize. A failed batch does not
// abort the run: its documents get zero vectors and the failure is logged and reported.
func (s *EmbeddingService) EmbedAll(ctx context.Context, docs []domain.FlattenedDocument, batchSize int) ([]domain.EmbeddingRecord, EmbedReport) {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.EmbedAll", telemetry.SpanAttributes{
		Operation: "embed_corpus",
	})
	defer span.End()

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	total := (len(docs) + batchSize - 1) / batchSize
	records := make([]domain.EmbeddingRecord, 0, len(docs))
	report := EmbedReport{}

	for i := 0; i < total; i++ {
		start := i * batchSize
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}

		log.Printf("embedding: batch %d/%d (%d documents)", i+1, total, end-start)
		result := s.embedBatch(ctx, i, start, docs[start:end])
		report.Batches++
		if result.Failed() {
			report.FailedBatch++
			report.Placeholders += end - start
			log.Printf("embedding: batch %d/%d failed, using zero vectors: %v", i+1, total, result.Err)
			telemetry.CaptureError(ctx, fmt.Errorf("embedding batch %d failed: %w", i+1, result.Err))
		}

		for j, doc := range docs[start:end] {
			records = append(records, domain.EmbeddingRecord{
				CourseCode: doc.CourseCode,
				Text:       doc.Text,
				Embedding:  result.Vectors[j],
			})
		}
	}

	span.SetData("batches", report.Batches)
	span.SetData("failed_batches", report.FailedBatch)
	return records, report
}

func (s *EmbeddingService) embedBatch(ctx context.Context, index, start int, docs []domain.FlattenedDocument) BatchResult {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	vectors, err := s.client.CreateEmbeddings(ctx, texts)
	if err == nil {
		err = s.validate(vectors, len(docs))
	}
	if err != nil {
		return BatchResult{
			Index:   index,
			Start:   start,
			Vectors: zeroVectors(len(docs), s.dimensions),
			Err:     err,
		}
	}

	return BatchResult{Index: index, Start: start, Vectors: vectors}
}

func (s *EmbeddingService) validate(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("expected %d embeddings, got %d", want, len(vectors))
	}
	for i, v := range vectors {
		if len(v) != s.dimensions {
			return fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), s.dimensions)
		}
	}
	return nil
}

func zeroVectors(n, dimensions int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dimensions)
	}
	return out
}
