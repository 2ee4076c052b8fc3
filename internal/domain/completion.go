package domain

// CompletionRequest is a single-turn chat completion: one system and one user message.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
}
