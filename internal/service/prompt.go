package service

import (
	"github.com/cloo-solutions/coursebot/internal/domain"
)

// DefaultTokenBudget leaves room for the answer inside a 4096 token window.
const DefaultTokenBudget = 4096 - 500

const promptIntroduction = `Usa la siguiente información del catálogo de cursos del Magíster en Inteligencia Artificial (MIA) de la Universidad Católica para responder la pregunta. Si la respuesta no se encuentra en la información, escribe "No pude encontrar una respuesta."`

// Tokenizer counts tokens with the generation model's encoding.
type Tokenizer interface {
	CountTokens(text string) int
}

// Prompt is an assembled user message and the courses whose text it includes.
type Prompt struct {
	Text    string
	Sources []string
}

// AssemblePrompt packs ranked texts into the user message while the whole message
// stays within budget tokens. Packing stops at the first block that does not fit.
func AssemblePrompt(query string, ranked []domain.RankedResult, budget int, tok Tokenizer) (Prompt, error) {
	question := "\n\nPregunta: " + query
	message := promptIntroduction

	if tok.CountTokens(message+question) > budget {
		return Prompt{}, domain.ErrTokenBudgetTooSmall
	}

	var sources []string
	for _, r := range ranked {
		block := "\n\nInformación del curso:\n\"\"\"\n" + r.Text + "\n\"\"\""
		if tok.CountTokens(message+block+question) > budget {
			break
		}
		message += block
		sources = append(sources, r.CourseCode)
	}

	return Prompt{Text: message + question, Sources: sources}, nil
}
