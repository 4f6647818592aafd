package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
)

// Anthropic adapts the official anthropic-sdk-go client. The client is safe
// for concurrent use, so a single instance serves all invocations.
type Anthropic struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic builds the Anthropic provider from resolved configuration.
func NewAnthropic(cfg *config.Config) (*Anthropic, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, core.ConfigurationError(errors.New("ANTHROPIC_API_KEY is not configured"))
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	return &Anthropic{
		client: &client,
		model:  cfg.LLMModel,
	}, nil
}

func (a *Anthropic) Name() string  { return "anthropic" }
func (a *Anthropic) Model() string { return a.model }

// Complete issues one messages call and returns the concatenated text blocks.
func (a *Anthropic) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, a.classify(err)
	}

	var content string
	for _, block := range message.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return CompletionResponse{}, core.UpstreamError(errors.New("response contained no text blocks"), false)
	}

	return CompletionResponse{
		Content:    content,
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}

func (a *Anthropic) classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return classifyStatus(apierr.StatusCode, fmt.Errorf("anthropic API error: %w", err))
	}
	return classifyTransport(err)
}
