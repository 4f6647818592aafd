package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
)

// Gemini adapts the google generative-ai client. Unlike the other providers
// it holds a connection that must be released with Close.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds the Gemini provider from resolved configuration.
func NewGemini(ctx context.Context, cfg *config.Config) (*Gemini, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, core.ConfigurationError(errors.New("GEMINI_API_KEY is not configured"))
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  cfg.LLMModel,
	}, nil
}

func (g *Gemini) Name() string  { return "gemini" }
func (g *Gemini) Model() string { return g.model }

// Close releases the underlying client connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Complete issues one generate-content call and concatenates the text parts.
func (g *Gemini) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := g.client.GenerativeModel(g.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return CompletionResponse{}, g.classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return CompletionResponse{}, core.UpstreamError(errors.New("response contained no candidates"), false)
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			content += string(text)
		}
	}
	if content == "" {
		return CompletionResponse{}, core.UpstreamError(errors.New("response contained no text parts"), false)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return CompletionResponse{Content: content, TokensUsed: tokens}, nil
}

func (g *Gemini) classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return classifyStatus(gerr.Code, fmt.Errorf("gemini API error: %w", err))
	}
	return classifyTransport(err)
}
