package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cloo-solutions/coursebot/internal/api"
	"github.com/cloo-solutions/coursebot/internal/api/middleware"
	"github.com/cloo-solutions/coursebot/internal/domain"
	"github.com/cloo-solutions/coursebot/internal/service"
	"github.com/cloo-solutions/coursebot/internal/telemetry"
)

// GenerationFailedMessage is shown to the user when the language model or the
// embedding service cannot answer.
const GenerationFailedMessage = "Lo siento, no pude generar una respuesta en este momento. Por favor, intenta nuevamente."

type AnswerService interface {
	Answer(ctx context.Context, in service.AnswerInput) (*service.AnswerOutput, error)
}

type CorpusCounter interface {
	Len() int
}

type ChatHandler struct {
	svc    AnswerService
	corpus CorpusCounter
}

func NewChatHandler(svc AnswerService, corpus CorpusCounter) *ChatHandler {
	return &ChatHandler{svc: svc, corpus: corpus}
}

type ChatRequest struct {
	Query       string `json:"query"`
	ProfileName string `json:"profile_name,omitempty"`
	UserName    string `json:"user_name,omitempty"`
}

type ChatResponse struct {
	Response string   `json:"response"`
	UserName string   `json:"user_name"`
	Init     bool     `json:"init"`
	Sources  []string `json:"sources,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, HealthResponse{Status: "ok", Documents: h.corpus.Len()})
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if middleware.IsBodyTooLarge(err) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.svc.Answer(r.Context(), service.AnswerInput{
		Query:       req.Query,
		ProfileName: req.ProfileName,
		UserName:    req.UserName,
	})
	if err != nil {
		h.handleAnswerError(w, r, err)
		return
	}
	if !out.Init {
		middleware.RecordSources(r.Context(), len(out.Sources))
	}

	api.JSON(w, http.StatusOK, ChatResponse{
		Response: out.Response,
		UserName: out.UserName,
		Init:     out.Init,
		Sources:  out.Sources,
	})
}

func (h *ChatHandler) handleAnswerError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodeValidation {
		api.HandleError(w, err)
		return
	}

	log.Printf("chat: answer failed: %v", err)
	telemetry.CaptureError(r.Context(), err)
	api.Error(w, http.StatusBadGateway, GenerationFailedMessage)
}
