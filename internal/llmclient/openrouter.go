package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterClient is the one non-streaming-typed capability in the catalog:
// its upstream call always completes in full and the result is normalized into
// a single delta followed by done. Consumers cannot tell the difference.
type OpenRouterClient struct {
	http    *http.Client
	apiKey  string
	model   string
	referer string
	title   string
}

func NewOpenRouterClient(apiKey, model, referer, title string) *OpenRouterClient {
	return &OpenRouterClient{
		http:    &http.Client{Timeout: 2 * time.Minute},
		apiKey:  apiKey,
		model:   model,
		referer: referer,
		title:   title,
	}
}

func (c *OpenRouterClient) Name() string { return "OpenRouter:" + c.model }
func (c *OpenRouterClient) Close() error { return nil }

func (c *OpenRouterClient) Invoke(ctx context.Context, messages []Message, _ bool) <-chan Event {
	out := make(chan Event, 1)
	go func() {
		defer close(out)
		text, err := c.complete(ctx, messages)
		if err != nil {
			emit(ctx, out, Event{Kind: EventError, Err: err})
			return
		}
		if !emit(ctx, out, Event{Kind: EventDelta, Text: text}) {
			return
		}
		emit(ctx, out, Event{Kind: EventDone})
	}()
	return out
}

func (c *OpenRouterClient) complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openRouterURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%s: api error %d: %s", c.Name(), resp.StatusCode, string(raw))
	}
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: empty completion", c.Name())
	}
	return parsed.Choices[0].Message.Content, nil
}
