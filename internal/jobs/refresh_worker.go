package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/cloo-solutions/coursebot/internal/domain"
	"github.com/cloo-solutions/coursebot/internal/service"
	"github.com/cloo-solutions/coursebot/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for one catalog file
	MaxRetries = 3
)

// CorpusRefresher rebuilds the embedding store from a catalog file.
type CorpusRefresher interface {
	LatestCatalog() (string, error)
	RunFile(ctx context.Context, path string) (*service.RefreshResult, error)
}

type catalogVersion struct {
	path    string
	modTime int64
}

// RefreshWorker rebuilds the store whenever a newer catalog file shows up.
type RefreshWorker struct {
	refresher CorpusRefresher

	mu       sync.Mutex
	built    catalogVersion
	failed   catalogVersion
	attempts int
}

// NewRefreshWorker creates a new RefreshWorker instance
func NewRefreshWorker(refresher CorpusRefresher) *RefreshWorker {
	return &RefreshWorker{refresher: refresher}
}

// ProcessJobs implements the JobProcessor interface
func (w *RefreshWorker) ProcessJobs(ctx context.Context) error {
	path, err := w.refresher.LatestCatalog()
	if err != nil {
		if errors.Is(err, domain.ErrCatalogNotFound) {
			return nil
		}
		return fmt.Errorf("failed to locate catalog: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat catalog: %w", err)
	}
	version := catalogVersion{path: path, modTime: info.ModTime().UnixNano()}

	w.mu.Lock()
	defer w.mu.Unlock()

	if version == w.built {
		return nil
	}
	if version == w.failed && w.attempts >= MaxRetries {
		return nil
	}

	ctx, txn := telemetry.StartTransaction(ctx, "jobs.refresh_corpus", "job")
	defer txn.End()
	telemetry.AddBreadcrumb(ctx, "catalog", filepath.Base(path))

	log.Printf("worker: rebuilding corpus from %s", filepath.Base(path))
	result, err := w.refresher.RunFile(ctx, path)
	if err != nil {
		txn.SetError(err)
		if version != w.failed {
			w.failed = version
			w.attempts = 0
		}
		w.attempts++
		if w.attempts >= MaxRetries {
			log.Printf("worker: giving up on %s after %d attempts", filepath.Base(path), w.attempts)
		}
		return fmt.Errorf("failed to rebuild corpus (attempt %d/%d): %w", w.attempts, MaxRetries, err)
	}

	w.built = version
	w.failed = catalogVersion{}
	w.attempts = 0
	log.Printf("worker: corpus rebuilt with %d documents", result.Documents)
	return nil
}
