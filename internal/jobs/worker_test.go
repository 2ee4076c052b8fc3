package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/coursebot/internal/domain"
	"github.com/cloo-solutions/coursebot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockCorpusRefresher is a mock implementation of CorpusRefresher
type MockCorpusRefresher struct {
	mock.Mock
}

func (m *MockCorpusRefresher) LatestCatalog() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockCorpusRefresher) RunFile(ctx context.Context, path string) (*service.RefreshResult, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RefreshResult), args.Error(1)
}

func writeCatalogFile(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_RunOnStart(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	called := make(chan struct{}, 1)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil).Run(func(mock.Arguments) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	worker := NewWorker(mockProcessor, time.Hour).RunOnStart()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("processor was not called on start")
	}
	worker.Stop()
}

func TestWorker_ProcessorErrorKeepsRunning(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("boom"))

	worker := NewWorker(mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)
	time.Sleep(180 * time.Millisecond)
	worker.Stop()

	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 2)
}

func TestRefreshWorker_NoCatalog(t *testing.T) {
	refresher := new(MockCorpusRefresher)
	refresher.On("LatestCatalog").Return("", domain.Wrap(domain.ErrCatalogNotFound, errors.New("empty dir")))

	worker := NewRefreshWorker(refresher)

	assert.NoError(t, worker.ProcessJobs(context.Background()))
	refresher.AssertNotCalled(t, "RunFile", mock.Anything, mock.Anything)
}

func TestRefreshWorker_BuildsOncePerVersion(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalogFile(t, dir, "cursos_completo_1.json", time.Now().Add(-time.Hour))

	refresher := new(MockCorpusRefresher)
	refresher.On("LatestCatalog").Return(path, nil)
	refresher.On("RunFile", mock.Anything, path).Return(&service.RefreshResult{CatalogPath: path, Documents: 3}, nil).Once()

	worker := NewRefreshWorker(refresher)
	ctx := context.Background()

	require.NoError(t, worker.ProcessJobs(ctx))
	require.NoError(t, worker.ProcessJobs(ctx))

	refresher.AssertNumberOfCalls(t, "RunFile", 1)
}

func TestRefreshWorker_RebuildsWhenCatalogChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalogFile(t, dir, "cursos_completo_1.json", time.Now().Add(-time.Hour))

	refresher := new(MockCorpusRefresher)
	refresher.On("LatestCatalog").Return(path, nil)
	refresher.On("RunFile", mock.Anything, path).Return(&service.RefreshResult{CatalogPath: path}, nil)

	worker := NewRefreshWorker(refresher)
	ctx := context.Background()

	require.NoError(t, worker.ProcessJobs(ctx))

	touched := time.Now()
	require.NoError(t, os.Chtimes(path, touched, touched))
	require.NoError(t, worker.ProcessJobs(ctx))

	refresher.AssertNumberOfCalls(t, "RunFile", 2)
}

func TestRefreshWorker_GivesUpAfterMaxRetries(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalogFile(t, dir, "cursos_completo_1.json", time.Now().Add(-time.Hour))

	refresher := new(MockCorpusRefresher)
	refresher.On("LatestCatalog").Return(path, nil)
	refresher.On("RunFile", mock.Anything, path).Return(nil, errors.New("store unavailable"))

	worker := NewRefreshWorker(refresher)
	ctx := context.Background()

	for i := 1; i <= MaxRetries; i++ {
		err := worker.ProcessJobs(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store unavailable")
	}

	assert.NoError(t, worker.ProcessJobs(ctx))
	refresher.AssertNumberOfCalls(t, "RunFile", MaxRetries)
}

func TestRefreshWorker_NewCatalogResetsRetries(t *testing.T) {
	dir := t.TempDir()
	first := writeCatalogFile(t, dir, "cursos_completo_1.json", time.Now().Add(-time.Hour))

	refresher := new(MockCorpusRefresher)
	refresher.On("LatestCatalog").Return(first, nil).Times(MaxRetries)
	refresher.On("RunFile", mock.Anything, first).Return(nil, errors.New("bad catalog"))

	worker := NewRefreshWorker(refresher)
	ctx := context.Background()
	for i := 0; i < MaxRetries; i++ {
		require.Error(t, worker.ProcessJobs(ctx))
	}

	second := writeCatalogFile(t, dir, "cursos_completo_2.json", time.Now())
	refresher.On("LatestCatalog").Return(second, nil)
	refresher.On("RunFile", mock.Anything, second).Return(&service.RefreshResult{CatalogPath: second}, nil)

	require.NoError(t, worker.ProcessJobs(ctx))
	refresher.AssertCalled(t, "RunFile", mock.Anything, second)
}
