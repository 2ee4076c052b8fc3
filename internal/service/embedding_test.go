package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloo-solutions/coursebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBatchEmbeddingClient mocks the batch embedding API
type MockBatchEmbeddingClient struct {
	mock.Mock
}

func (m *MockBatchEmbeddingClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func makeDocs(n int) []domain.FlattenedDocument {
	docs := make([]domain.FlattenedDocument, n)
	for i := range docs {
		docs[i] = domain.FlattenedDocument{
			CourseCode: fmt.Sprintf("IA%04d", i),
			Text:       fmt.Sprintf("texto del curso %d", i),
		}
	}
	return docs
}

func texts(docs []domain.FlattenedDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out
}

func filledVectors(n, dims int, value float32) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dims)
		for j := range out[i] {
			out[i][j] = value + float32(i)
		}
	}
	return out
}

func TestEmbeddingService_EmbedAll_Batches(t *testing.T) {
	mockClient := new(MockBatchEmbeddingClient)
	service := NewEmbeddingService(mockClient, 4)

	ctx := context.Background()
	docs := makeDocs(5)

	mockClient.On("CreateEmbeddings", mock.Anything, texts(docs[0:2])).Return(filledVectors(2, 4, 1), nil).Once()
	mockClient.On("CreateEmbeddings", mock.Anything, texts(docs[2:4])).Return(filledVectors(2, 4, 10), nil).Once()
	mockClient.On("CreateEmbeddings", mock.Anything, texts(docs[4:5])).Return(filledVectors(1, 4, 20), nil).Once()

	records, report := service.EmbedAll(ctx, docs, 2)

	require.Len(t, records, 5)
	assert.Equal(t, EmbedReport{Batches: 3}, report)
	for i, rec := range records {
		assert.Equal(t, docs[i].CourseCode, rec.CourseCode)
		assert.Equal(t, docs[i].Text, rec.Text)
		assert.Len(t, rec.Embedding, 4)
	}
	assert.Equal(t, float32(11), records[3].Embedding[0])
	assert.Equal(t, float32(20), records[4].Embedding[0])
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_EmbedAll_FailedBatchGetsZeroVectors(t *testing.T) {
	mockClient := new(MockBatchEmbeddingClient)
	service := NewEmbeddingService(mockClient, 3)

	ctx := context.Background()
	docs := makeDocs(4)

	mockClient.On("CreateEmbeddings", mock.Anything, texts(docs[0:2])).Return(nil, errors.New("rate limit exceeded")).Once()
	mockClient.On("CreateEmbeddings", mock.Anything, texts(docs[2:4])).Return(filledVectors(2, 3, 1), nil).Once()

	records, report := service.EmbedAll(ctx, docs, 2)

	require.Len(t, records, 4)
	assert.Equal(t, EmbedReport{Batches: 2, FailedBatch: 1, Placeholders: 2}, report)
	assert.Equal(t, []float32{0, 0, 0}, records[0].Embedding)
	assert.Equal(t, []float32{0, 0, 0}, records[1].Embedding)
	assert.Equal(t, []float32{1, 1, 1}, records[2].Embedding)
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_EmbedAll_WrongShapeIsAFailure(t *testing.T) {
	mockClient := new(MockBatchEmbeddingClient)
	service := NewEmbeddingService(mockClient, 3)

	ctx := context.Background()
	docs := makeDocs(2)

	mockClient.On("CreateEmbeddings", mock.Anything, texts(docs)).Return(filledVectors(2, 5, 1), nil).Once()

	records, report := service.EmbedAll(ctx, docs, 10)

	assert.Equal(t, 1, report.FailedBatch)
	assert.Equal(t, []float32{0, 0, 0}, records[1].Embedding)
}

func TestEmbeddingService_EmbedAll_DefaultBatchSize(t *testing.T) {
	mockClient := new(MockBatchEmbeddingClient)
	service := NewEmbeddingService(mockClient, 2)

	ctx := context.Background()
	docs := makeDocs(150)

	mockClient.On("CreateEmbeddings", mock.Anything, texts(docs[0:100])).Return(filledVectors(100, 2, 0), nil).Once()
	mockClient.On("CreateEmbeddings", mock.Anything, texts(docs[100:150])).Return(filledVectors(50, 2, 0), nil).Once()

	records, report := service.EmbedAll(ctx, docs, 0)

	assert.Len(t, records, 150)
	assert.Equal(t, 2, report.Batches)
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_EmbedAll_Empty(t *testing.T) {
	mockClient := new(MockBatchEmbeddingClient)
	service := NewEmbeddingService(mockClient, 0)

	records, report := service.EmbedAll(context.Background(), nil, 100)

	assert.Empty(t, records)
	assert.Equal(t, EmbedReport{}, report)
	mockClient.AssertNotCalled(t, "CreateEmbeddings", mock.Anything, mock.Anything)
}

func TestBatchResult_Failed(t *testing.T) {
	assert.False(t, BatchResult{}.Failed())
	assert.True(t, BatchResult{Err: errors.New("boom")}.Failed())
}
