package llmclient

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tokenEncoder *tiktoken.Tiktoken
	encoderOnce  sync.Once
	encoderErr   error
)

func initTokenEncoder() error {
	encoderOnce.Do(func() {
		// cl100k_base covers the GPT-4 family; close enough for accounting
		// across the other providers too.
		tokenEncoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoderErr
}

// CountTokens counts tokens in text with tiktoken, falling back to a
// word-count heuristic when the encoding tables are unavailable (offline).
func CountTokens(text string) int {
	if err := initTokenEncoder(); err != nil {
		return estimateTokens(text)
	}
	return len(tokenEncoder.Encode(text, nil, nil))
}

// CountMessageTokens counts tokens for a message list including the per-message
// framing overhead the chat APIs charge for.
func CountMessageTokens(messages []Message) int {
	if err := initTokenEncoder(); err != nil {
		total := 0
		for _, m := range messages {
			total += estimateTokens(m.Content)
		}
		return total
	}
	total := 0
	for _, m := range messages {
		total += 4
		total += len(tokenEncoder.Encode(m.Role, nil, nil))
		total += len(tokenEncoder.Encode(m.Content, nil, nil))
	}
	return total + 2
}

func estimateTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	if words := strings.Fields(text); len(words) > 0 {
		return len(words)
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
