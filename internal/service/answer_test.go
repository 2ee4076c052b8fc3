package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/coursebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockQueryEmbedder mocks single-text embedding
type MockQueryEmbedder struct {
	mock.Mock
}

func (m *MockQueryEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockChatCompleter mocks the chat completion API
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func testCorpus() *Corpus {
	return NewCorpus([]domain.EmbeddingRecord{
		{CourseCode: "IA1001", Text: "Curso: IA1001 Contenidos: lógica proposicional", Embedding: []float32{0, 1, 0}},
		{CourseCode: "IA2001", Text: "Curso: IA2001 Evaluación: control 50% examen 50%", Embedding: []float32{1, 0, 0}},
		{CourseCode: "IA3001", Text: "Curso: IA3001 Bibliografía: Russell Norvig", Embedding: []float32{0, 0, 1}},
	})
}

func TestAnswerService_Init(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	completer := new(MockChatCompleter)
	svc := NewAnswerService(testCorpus(), embedder, completer, wordTokenizer{}, AnswerConfig{})

	out, err := svc.Answer(context.Background(), AnswerInput{Query: "init", ProfileName: "Ana"})

	require.NoError(t, err)
	assert.Equal(t, "", out.Response)
	assert.True(t, out.Init)
	assert.Equal(t, "Ana", out.UserName)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnswerService_EmptyQuery(t *testing.T) {
	svc := NewAnswerService(testCorpus(), new(MockQueryEmbedder), new(MockChatCompleter), wordTokenizer{}, AnswerConfig{})

	out, err := svc.Answer(context.Background(), AnswerInput{Query: "   "})

	assert.Nil(t, out)
	assert.True(t, errors.Is(err, domain.ErrEmptyQuery))
}

func TestAnswerService_RetrievesAndGenerates(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	completer := new(MockChatCompleter)
	svc := NewAnswerService(testCorpus(), embedder, completer, wordTokenizer{}, AnswerConfig{})

	query := "evaluación de IA2001"
	embedder.On("GenerateEmbedding", mock.Anything, query).Return([]float32{0.9, 0.1, 0}, nil)

	var captured domain.CompletionRequest
	completer.On("Complete", mock.Anything, mock.AnythingOfType("domain.CompletionRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(domain.CompletionRequest)
		}).
		Return("La evaluación tiene un control. También un examen. Cada uno vale 50%", nil)

	out, err := svc.Answer(context.Background(), AnswerInput{Query: query})
	require.NoError(t, err)

	assert.Equal(t, "La evaluación tiene un control. También un examen.\n\nCada uno vale 50%", out.Response)
	assert.Equal(t, DefaultDisplayName, out.UserName)
	assert.False(t, out.Init)
	require.NotEmpty(t, out.Sources)
	assert.Equal(t, "IA2001", out.Sources[0])

	assert.Equal(t, DefaultGenerationModel, captured.Model)
	assert.Zero(t, captured.Temperature)
	assert.Equal(t, systemInstruction, captured.SystemPrompt)
	firstBlock := strings.Index(captured.UserPrompt, "Información del curso")
	require.GreaterOrEqual(t, firstBlock, 0)
	assert.True(t, strings.HasPrefix(captured.UserPrompt[firstBlock:], "Información del curso:\n\"\"\"\nCurso: IA2001"))
	assert.True(t, strings.HasSuffix(captured.UserPrompt, "\n\nPregunta: "+query))

	embedder.AssertExpectations(t)
	completer.AssertExpectations(t)
}

func TestAnswerService_GreetsProfile(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	completer := new(MockChatCompleter)
	svc := NewAnswerService(testCorpus(), embedder, completer, wordTokenizer{}, AnswerConfig{Model: "gpt-4o-mini", Temperature: 0.2})

	embedder.On("GenerateEmbedding", mock.Anything, "hola").Return([]float32{1, 0, 0}, nil)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(req domain.CompletionRequest) bool {
		return strings.HasSuffix(req.SystemPrompt, " Saluda a Ana por su nombre.") &&
			req.Model == "gpt-4o-mini" &&
			req.Temperature == 0.2
	})).Return("Hola Ana", nil)

	out, err := svc.Answer(context.Background(), AnswerInput{Query: "hola", ProfileName: "Ana", UserName: "ana01"})
	require.NoError(t, err)

	assert.Equal(t, "Hola Ana", out.Response)
	assert.Equal(t, "Ana", out.UserName)
	completer.AssertExpectations(t)
}

func TestAnswerService_GenerationErrorPropagatesUnmodified(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	completer := new(MockChatCompleter)
	svc := NewAnswerService(testCorpus(), embedder, completer, wordTokenizer{}, AnswerConfig{})

	genErr := errors.New("service unavailable")
	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0, 0}, nil)
	completer.On("Complete", mock.Anything, mock.Anything).Return("", genErr)

	out, err := svc.Answer(context.Background(), AnswerInput{Query: "q"})

	assert.Nil(t, out)
	assert.Same(t, genErr, err)
}

func TestAnswerService_QueryEmbeddingError(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	completer := new(MockChatCompleter)
	svc := NewAnswerService(testCorpus(), embedder, completer, wordTokenizer{}, AnswerConfig{})

	embedErr := errors.New("timeout")
	embedder.On("GenerateEmbedding", mock.Anything, "q").Return(nil, embedErr)

	_, err := svc.Answer(context.Background(), AnswerInput{Query: "q"})

	assert.True(t, errors.Is(err, domain.ErrQueryEmbeddingFailed))
	assert.True(t, errors.Is(err, embedErr))
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnswerService_TokenBudgetTooSmall(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	completer := new(MockChatCompleter)
	svc := NewAnswerService(testCorpus(), embedder, completer, wordTokenizer{}, AnswerConfig{TokenBudget: 5})

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0, 0}, nil)

	_, err := svc.Answer(context.Background(), AnswerInput{Query: "q"})

	assert.True(t, errors.Is(err, domain.ErrTokenBudgetTooSmall))
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestSystemInstruction(t *testing.T) {
	assert.Equal(t, systemInstruction, SystemInstruction(""))
	assert.Equal(t, systemInstruction+" Saluda a Ana por su nombre.", SystemInstruction("Ana"))
}
