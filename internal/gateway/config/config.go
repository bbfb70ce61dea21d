// Package config loads gateway configuration from the environment, with a
// .env file honored in development.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// DatabaseURL empty selects the in-memory conversation store.
	DatabaseURL string
	JWTSecret   string

	UploadDir  string
	UsagePath  string
	Uploads    UploadsConfig
	Providers  ProvidersConfig
	Classifier ClassifierConfig
}

// UploadsConfig selects the S3-compatible upload backend when an endpoint is
// configured; otherwise uploads go to UploadDir on disk.
type UploadsConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ProvidersConfig carries one API key per upstream. An empty key leaves that
// provider's models out of the catalog.
type ProvidersConfig struct {
	OpenAIKey     string
	AnthropicKey  string
	GroqKey       string
	DeepSeekKey   string
	GeminiKey     string
	OpenRouterKey string
}

// ClassifierConfig names the model running the segregation phase.
type ClassifierConfig struct {
	Model string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:        *port,
		Env:         env,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		UploadDir:   firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOAD_DIR")), "tmp/uploads"),
		UsagePath:   firstNonEmpty(strings.TrimSpace(os.Getenv("USAGE_LEDGER_PATH")), "tmp/usage.json"),
		Uploads:     loadUploadsConfig(env),
		Providers: ProvidersConfig{
			OpenAIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			AnthropicKey:  strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
			GroqKey:       strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
			DeepSeekKey:   strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY")),
			GeminiKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			OpenRouterKey: strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		},
		Classifier: ClassifierConfig{
			Model: firstNonEmpty(strings.TrimSpace(os.Getenv("CLASSIFIER_MODEL")), "gemini-2.0-flash"),
		},
	}, nil
}

func loadUploadsConfig(env string) UploadsConfig {
	endpoint := resolveUploadsEndpoint(env)
	return UploadsConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOADS_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOADS_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOADS_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOADS_S3_BUCKET")), "codeassist-uploads"),
		UseSSL:    resolveUploadsUseSSL(env),
	}
}

func resolveUploadsEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("UPLOADS_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("UPLOADS_S3_ENDPOINT"))
}

func resolveUploadsUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("UPLOADS_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
