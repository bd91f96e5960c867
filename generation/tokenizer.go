package generation

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens for the history window budget. The tiktoken
// encoding is initialized lazily (first use may load encoding data); when
// initialization fails the counter falls back to a bytes/4 estimate so the
// window never depends on tokenizer availability.
type TokenCounter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
	initErr  error
}

// NewTokenCounter creates a counter using the cl100k_base encoding.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{encoding: "cl100k_base"}
}

func (t *TokenCounter) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = err
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// Count returns the token count of text.
func (t *TokenCounter) Count(text string) int {
	if err := t.init(); err != nil {
		return estimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// estimateTokens is the rough fallback: ~4 bytes per token.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
