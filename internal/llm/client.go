// Package llm talks to the locally hosted language model runtime.
//
// Every agent, the OCR vision extractor, the translator and the refiner go
// through a Client. Two implementations exist: OllamaClient for the native
// Ollama API and OpenAIClient for OpenAI-compatible servers (Ollama's /v1,
// llama.cpp, LM Studio, vLLM). Decorators add retries and metrics.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal/metrics"
)

// Request is a single prompt sent to the model.
type Request struct {
	Prompt string
	System string
	// Images are raw encoded images (PNG/JPEG) for multimodal models.
	Images [][]byte
	// JSON asks the runtime to constrain output to a JSON object.
	JSON bool
	// Model overrides the client's default model.
	Model string
}

// Response is the model's answer.
type Response struct {
	Text             string
	Model            string
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
}

// Client generates text from a prompt.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
	IsAvailable(ctx context.Context) error
}

// StatusError reports a non-200 reply from the runtime.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("model runtime returned status %d", e.Code)
	}
	return fmt.Sprintf("model runtime returned status %d: %s", e.Code, e.Body)
}

// Config selects and tunes a Client.
type Config struct {
	Provider    string
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	Temperature float32
}

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "gemma3"
)

// New builds the configured client wrapped with retries and metrics.
func New(cfg Config, logger *zap.Logger, rec *metrics.Recorder) (Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	var base Client
	switch cfg.Provider {
	case "", "ollama":
		base = NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.Temperature)
	case "openai":
		baseURL := strings.TrimRight(cfg.BaseURL, "/")
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL += "/v1"
		}
		base = NewOpenAIClient(baseURL, cfg.APIKey, cfg.Model, cfg.Timeout, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	client := Instrumented(base, rec, logger)
	if cfg.MaxAttempts > 1 {
		client = Retrying(client, cfg.MaxAttempts, cfg.RetryDelay, logger)
	}
	return client, nil
}
