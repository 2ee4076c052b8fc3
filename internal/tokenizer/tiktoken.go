// Package tokenizer counts tokens with the generation model's BPE encoding.
package tokenizer

import (
	"fmt"
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// FallbackEncoding is used when the model name is unknown to tiktoken.
const FallbackEncoding = "cl100k_base"

var loaderOnce sync.Once

// useOfflineLoader serves BPE ranks from embedded files instead of downloading them.
func useOfflineLoader() {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

// Tiktoken counts tokens for one model.
type Tiktoken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// New returns a tokenizer for model, falling back to cl100k_base for unknown models.
func New(model string) (*Tiktoken, error) {
	useOfflineLoader()

	enc, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return &Tiktoken{encoding: enc, name: model}, nil
	}

	log.Printf("tokenizer: no encoding registered for %q, using %s", model, FallbackEncoding)
	enc, err = tiktoken.GetEncoding(FallbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &Tiktoken{encoding: enc, name: FallbackEncoding}, nil
}

// Name returns the model or encoding the tokenizer was built for.
func (t *Tiktoken) Name() string {
	return t.name
}

// CountTokens returns the number of tokens in text.
func (t *Tiktoken) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}
