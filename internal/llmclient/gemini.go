package llmclient

import (
	"context"
	"encoding/json"
	"log"
	"time"

	genai "google.golang.org/genai"
)

// GeminiJSONClient wraps the official genai client in JSON-output mode. The
// task classifier runs on it: one request, one application/json document back.
type GeminiJSONClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiJSONClient(ctx context.Context, apiKey, model string) (*GeminiJSONClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiJSONClient{cli: cli, model: model}, nil
}

func (g *GeminiJSONClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiJSONClient) Close() error { return nil }

// GenerateJSON sends prompt plus the serialized input and requests
// application/json. Transient failures are retried with backoff; the last
// error wins.
func (g *GeminiJSONClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	in, _ := json.MarshalIndent(input, "", "  ")
	full := prompt + "\n\n[INPUT JSON]\n" + string(in)
	log.Printf("LLM request (%s): %d bytes", g.Name(), len(full))

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
			}
		}
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrInvalidJSON
			continue
		}
		return json.RawMessage(resp.Candidates[0].Content.Parts[0].Text), nil
	}
	return nil, lastErr
}
