// Package tokencount provides token counting for prompt budgeting.
//
// It uses tiktoken-go, a Go port of OpenAI's tiktoken library, so prompt
// trimming decisions match what the provider actually bills.
package tokencount

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting.
type Counter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// NewCounter creates a token counter.
func NewCounter() *Counter { return &Counter{} }

// DefaultCounter is a process-wide counter instance.
var DefaultCounter = NewCounter()

// encoding lazily initializes the cl100k_base encoding, which is a good
// approximation for every chat model this service talks to.
func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enc != nil {
		return c.enc, nil
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	c.enc = enc
	return enc, nil
}

// CountTokens counts the tokens in text.
func (c *Counter) CountTokens(text string) (int, error) {
	enc, err := c.encoding()
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountChatTokens counts tokens for a two-message chat request, including
// the per-message overhead used by OpenAI-compatible APIs.
func (c *Counter) CountChatTokens(systemPrompt, userPrompt string) (int, error) {
	enc, err := c.encoding()
	if err != nil {
		return 0, err
	}
	// 3 tokens per message + 1 for the role, plus the assistant reply
	// priming tokens.
	n := 0
	for _, msg := range []string{systemPrompt, userPrompt} {
		n += 4
		n += len(enc.Encode(msg, nil, nil))
	}
	n += 3
	return n, nil
}

// CountTokensDefault uses the default counter; falls back to a rough
// 4-chars-per-token estimate when the encoding is unavailable, so budgeting
// still works offline.
func CountTokensDefault(text string) int {
	n, err := DefaultCounter.CountTokens(text)
	if err != nil {
		return len(strings.TrimSpace(text)) / 4
	}
	return n
}
