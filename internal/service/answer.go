package service

import (
	"context"
	"log"
	"strings"

	"github.com/cloo-solutions/coursebot/internal/domain"
	"github.com/cloo-solutions/coursebot/internal/telemetry"
)

const (
	// InitQuery is sent by chat clients on load to fetch the greeting name only.
	InitQuery = "init"
	// DefaultGenerationModel is the chat model used to answer questions.
	DefaultGenerationModel = "gpt-3.5-turbo-0125"
	// DefaultDisplayName is shown when the caller has no profile or user name.
	DefaultDisplayName = "Usuario"
)

const systemInstruction = `Eres un asistente del catálogo de cursos UC. Ayudas con información sobre cursos, créditos, contenidos y bibliografía.

IMPORTANTE: Estructura tus respuestas de manera clara y organizada:
- Usa párrafos separados para diferentes temas
- Organiza la información de manera lógica
- Si mencionas múltiples cursos o elementos, preséntalos de forma ordenada
- Usa un lenguaje claro y profesional
- Separa las ideas principales en párrafos distintos`

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChatCompleter runs one chat completion and returns the message content.
type ChatCompleter interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// AnswerConfig tunes the orchestrator. Zero Model, TokenBudget and TopN fall back
// to the defaults; Temperature is used as given.
type AnswerConfig struct {
	Model       string
	Temperature float32
	TokenBudget int
	TopN        int
	Debug       bool
}

// AnswerInput is a question and, optionally, who is asking.
type AnswerInput struct {
	Query       string
	ProfileName string
	UserName    string
}

// AnswerOutput is the formatted answer plus presentation metadata.
type AnswerOutput struct {
	Response string   `json:"response"`
	UserName string   `json:"user_name"`
	Init     bool     `json:"init"`
	Sources  []string `json:"sources,omitempty"`
}

// AnswerService answers questions over the course corpus.
type AnswerService struct {
	corpus    *Corpus
	embedder  QueryEmbedder
	completer ChatCompleter
	tokenizer Tokenizer
	cfg       AnswerConfig
}

// NewAnswerService creates a new AnswerService instance
func NewAnswerService(corpus *Corpus, embedder QueryEmbedder, completer ChatCompleter, tokenizer Tokenizer, cfg AnswerConfig) *AnswerService {
	if cfg.Model == "" {
		cfg.Model = DefaultGenerationModel
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = DefaultTokenBudget
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	return &AnswerService{
		corpus:    corpus,
		embedder:  embedder,
		completer: completer,
		tokenizer: tokenizer,
		cfg:       cfg,
	}
}

// Corpus returns the corpus the service answers from.
func (s *AnswerService) Corpus() *Corpus {
	return s.corpus
}

// Answer runs retrieval and generation for one question. The "init" query
// short-circuits with an empty response. Generation errors are returned as is.
func (s *AnswerService) Answer(ctx context.Context, in AnswerInput) (*AnswerOutput, error) {
	out := &AnswerOutput{UserName: displayName(in)}

	if in.Query == InitQuery {
		out.Init = true
		return out, nil
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		Model:     s.cfg.Model,
		Operation: "answer",
	})
	defer span.End()

	queryVector, err := s.embedder.GenerateEmbedding(ctx, in.Query)
	if err != nil {
		span.SetError(err)
		return nil, domain.Wrap(domain.ErrQueryEmbeddingFailed, err)
	}

	ranked := s.corpus.Rank(queryVector, s.cfg.TopN)
	prompt, err := AssemblePrompt(in.Query, ranked, s.cfg.TokenBudget, s.tokenizer)
	if err != nil {
		return nil, err
	}
	span.SetData("context_blocks", len(prompt.Sources))

	if s.cfg.Debug {
		log.Printf("answer: prompt (%d blocks):\n%s", len(prompt.Sources), prompt.Text)
	}

	raw, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Model:        s.cfg.Model,
		SystemPrompt: SystemInstruction(in.ProfileName),
		UserPrompt:   prompt.Text,
		Temperature:  s.cfg.Temperature,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	out.Response = FormatAnswer(raw)
	out.Sources = prompt.Sources
	return out, nil
}

// SystemInstruction returns the fixed assistant instruction, greeting profileName when set.
func SystemInstruction(profileName string) string {
	if profileName == "" {
		return systemInstruction
	}
	return systemInstruction + " Saluda a " + profileName + " por su nombre."
}

func displayName(in AnswerInput) string {
	switch {
	case in.ProfileName != "":
		return in.ProfileName
	case in.UserName != "":
		return in.UserName
	default:
		return DefaultDisplayName
	}
}
