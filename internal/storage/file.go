package storage

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/coursebot/internal/domain"
)

// DefaultStorePath is where the embedding table is written when no path is configured.
const DefaultStorePath = "data/course_embeddings.csv"

// FileStore keeps the embedding table in a local CSV file.
type FileStore struct {
	path     string
	fallback string
}

// NewFileStore creates a FileStore. When the primary file does not exist, Load
// reads fallback instead, if set.
func NewFileStore(path, fallback string) *FileStore {
	if path == "" {
		path = DefaultStorePath
	}
	return &FileStore{path: path, fallback: fallback}
}

// Path returns the primary file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save replaces the file atomically.
func (s *FileStore) Save(ctx context.Context, records []domain.EmbeddingRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := WriteCSV(w, records); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

// Load reads the primary file, or the fallback when the primary is missing.
func (s *FileStore) Load(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	records, err := readCSVFile(s.path)
	if err == nil || !os.IsNotExist(err) || s.fallback == "" {
		return records, wrapNotExist(err)
	}

	log.Printf("storage: %s not found, using fallback %s", s.path, s.fallback)
	records, err = readCSVFile(s.fallback)
	return records, wrapNotExist(err)
}

func readCSVFile(path string) ([]domain.EmbeddingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ReadCSV(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

func wrapNotExist(err error) error {
	if err != nil && os.IsNotExist(err) {
		return domain.Wrap(domain.ErrEmbeddingStoreNotFound, err)
	}
	return err
}
