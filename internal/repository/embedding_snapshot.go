package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/coursebot/internal/domain"
)

// EmbeddingSnapshotRepository keeps the embedding table in Postgres. Rows are
// replaced wholesale on save and read back in corpus order.
type EmbeddingSnapshotRepository struct {
	db txBeginner
}

func NewEmbeddingSnapshotRepository(pool *pgxpool.Pool) *EmbeddingSnapshotRepository {
	return &EmbeddingSnapshotRepository{db: pool}
}

// Save replaces every stored row with records in a single transaction.
func (r *EmbeddingSnapshotRepository) Save(ctx context.Context, records []domain.EmbeddingRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := replaceRows(ctx, tx, records); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}
	return nil
}

func replaceRows(ctx context.Context, db dbtx, records []domain.EmbeddingRecord) error {
	if _, err := db.Exec(ctx, `DELETE FROM course_embeddings`); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, rec := range records {
		batch.Queue(
			`INSERT INTO course_embeddings (position, course_code, text, embedding)
			 VALUES ($1, $2, $3, $4)`,
			i, rec.CourseCode, rec.Text, pgvector.NewVector(rec.Embedding),
		)
	}

	results := db.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert embedding %d: %w", i, err)
		}
	}
	return results.Close()
}

// Load returns the stored rows ordered by position. An empty table is reported
// as a missing store.
func (r *EmbeddingSnapshotRepository) Load(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT course_code, text, embedding::text
		 FROM course_embeddings
		 ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord
	for rows.Next() {
		var (
			rec     domain.EmbeddingRecord
			rawVec  string
			decoded pgvector.Vector
		)
		if err := rows.Scan(&rec.CourseCode, &rec.Text, &rawVec); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		if err := decoded.Scan(rawVec); err != nil {
			return nil, domain.Wrap(domain.ErrInvalidEmbeddingData, err)
		}
		rec.Embedding = decoded.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read embeddings: %w", err)
	}

	if len(records) == 0 {
		return nil, domain.Wrap(domain.ErrEmbeddingStoreNotFound, fmt.Errorf("course_embeddings is empty"))
	}
	return records, nil
}

// Count returns the number of stored rows.
func (r *EmbeddingSnapshotRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM course_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}
