package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// FakeChatRequest is a chat completion request received by FakeOpenAI.
type FakeChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float32
	// TemperatureSet reports whether the request carried a temperature field.
	TemperatureSet bool
}

// FakeOpenAI serves the embeddings and chat completion endpoints of the OpenAI API.
type FakeOpenAI struct {
	Server *httptest.Server

	embed func(text string) []float32
	reply func(req FakeChatRequest) string

	mu              sync.Mutex
	embeddingInputs [][]string
	chatRequests    []FakeChatRequest
	failEmbeddings  bool
}

// NewFakeOpenAI starts a fake OpenAI server; it is closed when the test ends.
func NewFakeOpenAI(t testing.TB, embed func(text string) []float32, reply func(req FakeChatRequest) string) *FakeOpenAI {
	f := &FakeOpenAI{embed: embed, reply: reply}

	r := chi.NewRouter()
	r.Post("/v1/embeddings", f.handleEmbeddings)
	r.Post("/v1/chat/completions", f.handleChat)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL is the value to use as the OpenAI client base URL.
func (f *FakeOpenAI) BaseURL() string {
	return f.Server.URL + "/v1"
}

// FailEmbeddings makes subsequent embedding requests return HTTP 500.
func (f *FakeOpenAI) FailEmbeddings(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failEmbeddings = fail
}

// EmbeddingInputs returns the input lists of every embeddings request received.
func (f *FakeOpenAI) EmbeddingInputs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.embeddingInputs...)
}

// ChatRequests returns every chat completion request received.
func (f *FakeOpenAI) ChatRequests() []FakeChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeChatRequest(nil), f.chatRequests...)
}

type embeddingItem struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

func (f *FakeOpenAI) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.mu.Lock()
	f.embeddingInputs = append(f.embeddingInputs, req.Input)
	fail := f.failEmbeddings
	f.mu.Unlock()

	if fail {
		writeAPIError(w, http.StatusInternalServerError, "embedding backend unavailable")
		return
	}

	data := make([]embeddingItem, len(req.Input))
	for i, text := range req.Input {
		data[i] = embeddingItem{Object: "embedding", Embedding: f.embed(text), Index: i}
	}
	writeJSON(w, map[string]interface{}{
		"object": "list",
		"data":   data,
		"model":  req.Model,
		"usage":  map[string]int{"prompt_tokens": 0, "total_tokens": 0},
	})
}

func (f *FakeOpenAI) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature *float32 `json:"temperature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat := FakeChatRequest{Model: req.Model}
	if req.Temperature != nil {
		chat.Temperature = *req.Temperature
		chat.TemperatureSet = true
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			chat.System = m.Content
		case "user":
			chat.User = m.Content
		}
	}

	f.mu.Lock()
	f.chatRequests = append(f.chatRequests, chat)
	f.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   req.Model,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": f.reply(chat)},
				"finish_reason": "stop",
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"message": message, "type": "server_error"},
	})
}
