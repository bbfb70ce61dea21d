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

	"golang.org/x/time/rate"
)

// OpenAIClient speaks the OpenAI chat-completions dialect, which Groq, Gemini,
// DeepSeek and OpenAI itself all serve. One instance is bound to one upstream
// model.
type OpenAIClient struct {
	name    string
	http    *http.Client
	apiKey  string
	baseURL string
	model   string
	limiter *rate.Limiter
}

// NewOpenAIClient creates a client for baseURL (e.g.
// "https://api.groq.com/openai/v1"). rps <= 0 disables rate limiting.
func NewOpenAIClient(name, baseURL, apiKey, model string, rps float64) *OpenAIClient {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &OpenAIClient{
		name:    name,
		http:    &http.Client{Timeout: 5 * time.Minute},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		limiter: limiter,
	}
}

func (c *OpenAIClient) Name() string { return c.name + ":" + c.model }
func (c *OpenAIClient) Close() error { return nil }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *OpenAIClient) Invoke(ctx context.Context, messages []Message, streaming bool) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				emit(ctx, out, Event{Kind: EventError, Err: err})
				return
			}
		}
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

func (c *OpenAIClient) complete(ctx context.Context, messages []Message, out chan<- Event) error {
	resp, err := c.post(ctx, chatRequest{Model: c.model, Messages: messages}, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return fmt.Errorf("%s: empty completion", c.Name())
	}
	emit(ctx, out, Event{Kind: EventDelta, Text: parsed.Choices[0].Message.Content})
	return nil
}

func (c *OpenAIClient) stream(ctx context.Context, messages []Message, out chan<- Event) error {
	resp, err := c.post(ctx, chatRequest{Model: c.model, Messages: messages, Stream: true}, true)
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
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			return nil
		}
		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("decode chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			if !emit(ctx, out, Event{Kind: EventDelta, Text: text}) {
				return ctx.Err()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

func (c *OpenAIClient) post(ctx context.Context, body chatRequest, streaming bool) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		err := fmt.Errorf("%s: unexpected status %s: %s", c.Name(), resp.Status, string(raw))
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(raw), `"context_length_exceeded"`) {
			return nil, NewPermanentError(err)
		}
		return nil, err
	}
	return resp, nil
}
