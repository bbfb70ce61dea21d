package app

import (
	"context"
	"log"

	"codeassist/internal/convo"
	"codeassist/internal/gateway/config"
	"codeassist/internal/llmclient"
	"codeassist/internal/uploads"
	"codeassist/internal/usage"
)

func newConvoStore(cfg *config.Config) (convo.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL not set, conversations are in-memory")
		return convo.NewMemoryStore(), nil
	}
	return convo.NewPostgresStore(cfg.DatabaseURL)
}

func newUploadStore(cfg *config.Config) (uploads.Store, error) {
	if cfg.Uploads.Enabled {
		return uploads.NewS3Store(uploads.S3Config{
			Endpoint:  cfg.Uploads.Endpoint,
			Region:    cfg.Uploads.Region,
			AccessKey: cfg.Uploads.AccessKey,
			SecretKey: cfg.Uploads.SecretKey,
			Bucket:    cfg.Uploads.Bucket,
			UseSSL:    cfg.Uploads.UseSSL,
		})
	}
	return uploads.NewDiskStore(cfg.UploadDir)
}

// newUsageRecorder combines the daily ledger file with a per-turn store:
// token_usage rows in Postgres when a database is configured, in-memory
// otherwise.
func newUsageRecorder(cfg *config.Config) (usage.Recorder, func() error, error) {
	ledger := usage.NewLedger(cfg.UsagePath)
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL not set, per-turn usage records are in-memory")
		return usage.Multi{ledger, usage.NewMemoryStore()}, func() error { return nil }, nil
	}
	store, err := usage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return usage.Multi{ledger, store}, store.Close, nil
}

// newCatalog registers one capability per configured provider. An empty
// catalog gets a scripted fake so development works without keys.
func newCatalog(cfg *config.Config) *llmclient.Catalog {
	catalog := llmclient.NewCatalog()
	p := cfg.Providers

	if p.OpenAIKey != "" {
		catalog.Register("gpt-4o", llmclient.NewOpenAIClient("OpenAI", "https://api.openai.com/v1", p.OpenAIKey, "gpt-4o", 2))
		catalog.Register("gpt-4o-mini", llmclient.NewOpenAIClient("OpenAI", "https://api.openai.com/v1", p.OpenAIKey, "gpt-4o-mini", 2))
	}
	if p.AnthropicKey != "" {
		catalog.Register("claude-sonnet", llmclient.NewAnthropicClient(p.AnthropicKey, "claude-3-5-sonnet-latest", 5000))
	}
	if p.GroqKey != "" {
		catalog.Register("llama-70b", llmclient.NewOpenAIClient("Groq", "https://api.groq.com/openai/v1", p.GroqKey, "llama-3.3-70b-versatile", 1))
	}
	if p.DeepSeekKey != "" {
		catalog.Register("deepseek-chat", llmclient.NewOpenAIClient("DeepSeek", "https://api.deepseek.com/v1", p.DeepSeekKey, "deepseek-chat", 1))
	}
	if p.GeminiKey != "" {
		catalog.Register("gemini-flash", llmclient.NewOpenAIClient("Gemini", "https://generativelanguage.googleapis.com/v1beta/openai", p.GeminiKey, "gemini-2.0-flash", 2))
	}
	if p.OpenRouterKey != "" {
		catalog.Register("qwen-coder", llmclient.NewOpenRouterClient(p.OpenRouterKey, "qwen/qwen-2.5-coder-32b-instruct", "https://codeassist.dev", "codeassist"))
	}

	if len(catalog.Models()) == 0 {
		log.Printf("no provider keys configured, registering the offline fake model")
		catalog.Register("fake-model", llmclient.NewFakeCapability("offline", "No providers are configured."))
	}
	return catalog
}

// newClassifier picks the segregation-phase client. Gemini's JSON mode runs
// it in production; without a key a scripted fake keeps the binary usable.
func newClassifier(ctx context.Context, cfg *config.Config) (llmclient.JSONClient, func() error, error) {
	if cfg.Providers.GeminiKey != "" {
		cli, err := llmclient.NewGeminiJSONClient(ctx, cfg.Providers.GeminiKey, cfg.Classifier.Model)
		if err != nil {
			return nil, nil, err
		}
		return cli, cli.Close, nil
	}
	log.Printf("GEMINI_API_KEY not set, classification uses the offline fake")
	fake := &llmclient.FakeJSONClient{}
	return fake, fake.Close, nil
}
