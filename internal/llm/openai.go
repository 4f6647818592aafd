package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
)

// OpenAI adapts the official openai-go client.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the OpenAI provider from resolved configuration.
func NewOpenAI(cfg *config.Config) (*OpenAI, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, core.ConfigurationError(errors.New("OPENAI_API_KEY is not configured"))
	}
	client := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
	return &OpenAI{
		client: &client,
		model:  cfg.LLMModel,
	}, nil
}

func (o *OpenAI) Name() string  { return "openai" }
func (o *OpenAI) Model() string { return o.model }

// Complete issues one chat completion call.
func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(req.System),
				},
			},
		})
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(req.Prompt),
			},
		},
	})

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, o.classify(err)
	}
	if len(completion.Choices) == 0 {
		return CompletionResponse{}, core.UpstreamError(errors.New("response contained no choices"), false)
	}

	return CompletionResponse{
		Content:    completion.Choices[0].Message.Content,
		TokensUsed: int(completion.Usage.TotalTokens),
	}, nil
}

func (o *OpenAI) classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return classifyStatus(apierr.StatusCode, fmt.Errorf("openai API error: %w", err))
	}
	return classifyTransport(err)
}
