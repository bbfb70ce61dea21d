package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// AnthropicClient calls the Anthropic messages API. Unlike the OpenAI dialect
// it takes the system prompt outside the message list and streams typed SSE
// events rather than bare deltas; both differences are absorbed here.
type AnthropicClient struct {
	http      *http.Client
	apiKey    string
	model     string
	maxTokens int
}

func NewAnthropicClient(apiKey, model string, maxTokens int) *AnthropicClient {
	if maxTokens <= 0 {
		maxTokens = 5000
	}
	return &AnthropicClient{
		http:      &http.Client{Timeout: 5 * time.Minute},
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *AnthropicClient) Name() string { return "Anthropic:" + c.model }
func (c *AnthropicClient) Close() error { return nil }

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// anthropicStreamEvent covers the event payloads we care about; everything
// else (ping, content_block_start, message_delta) is skipped by type.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// splitSystem pulls a leading system message out of the list; Anthropic wants
// it as a separate top-level field.
func splitSystem(messages []Message) (string, []Message) {
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		return messages[0].Content, messages[1:]
	}
	return "", messages
}

func (c *AnthropicClient) Invoke(ctx context.Context, messages []Message, streaming bool) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		var err error
		if streaming {
			err = c.stream(ctx, messages, out)
		} else {
			err = c.complete(ctx, messages, out)
		}
		if err != nil {
			emit(ctx, out, Event{Kind: EventError, Err: err})
			return
		}
		emit(ctx, out, Event{Kind: EventDone})
	}()
	return out
}

func (c *AnthropicClient) complete(ctx context.Context, messages []Message, out chan<- Event) error {
	system, rest := splitSystem(messages)
	resp, err := c.post(ctx, anthropicRequest{
		Model: c.model, MaxTokens: c.maxTokens, System: system, Messages: rest,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return fmt.Errorf("%s: empty response content", c.Name())
	}
	emit(ctx, out, Event{Kind: EventDelta, Text: parsed.Content[0].Text})
	return nil
}

func (c *AnthropicClient) stream(ctx context.Context, messages []Message, out chan<- Event) error {
	system, rest := splitSystem(messages)
	resp, err := c.post(ctx, anthropicRequest{
		Model: c.model, MaxTokens: c.maxTokens, System: system, Messages: rest, Stream: true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				if !emit(ctx, out, Event{Kind: EventDelta, Text: ev.Delta.Text}) {
					return ctx.Err()
				}
			}
		case "message_stop":
			return nil
		case "error":
			return fmt.Errorf("%s: %s: %s", c.Name(), ev.Error.Type, ev.Error.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

func (c *AnthropicClient) post(ctx context.Context, body anthropicRequest) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicURL, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, fmt.Errorf("%s: api error %d: %s", c.Name(), resp.StatusCode, string(raw))
	}
	return resp, nil
}
