// Package llm contains the language-model provider adapters, the prompt
// templates and the parser that turns raw model output into review findings.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
)

// CompletionRequest carries a single prompt to a provider.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the raw model output.
type CompletionResponse struct {
	Content    string
	TokensUsed int
}

// Completer is the provider abstraction. One call, one completion; retry
// policy lives with the caller.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Name() string
	Model() string
}

// New selects and constructs the configured provider. A missing credential
// surfaces here as a configuration error, before any network traffic.
func New(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		return NewAnthropic(cfg)
	case "openai":
		return NewOpenAI(cfg)
	case "gemini", "google":
		return NewGemini(ctx, cfg)
	case "ollama", "lmstudio":
		return NewOllama(cfg)
	default:
		return nil, core.ConfigurationError(fmt.Errorf("unknown provider: %s", cfg.LLMProvider))
	}
}

// classifyStatus maps a provider HTTP status into the error taxonomy.
// 401/403 mean a bad credential; 429 and 5xx are transient upstream failures.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ConfigurationError(err)
	case status == http.StatusTooManyRequests || status >= 500:
		return core.UpstreamError(err, true)
	default:
		return core.UpstreamError(err, false)
	}
}

// classifyTransport maps non-HTTP failures (dial errors, timeouts, context
// expiry) into the taxonomy. Timeouts are transient.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.UpstreamError(fmt.Errorf("model call timed out: %w", err), true)
	}
	if errors.Is(err, context.Canceled) {
		return core.UpstreamError(err, false)
	}
	return core.UpstreamError(err, true)
}
