package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
)

const defaultOllamaHost = "http://localhost:11434"

// Ollama talks to an Ollama or LM Studio server over the OpenAI-compatible
// chat endpoint. No credential is required.
type Ollama struct {
	model    string
	endpoint string
	client   *http.Client
}

// NewOllama builds the provider from resolved configuration. The host is
// normalized so OLLAMA_HOST may be given with or without the /v1 path.
func NewOllama(cfg *config.Config) (*Ollama, error) {
	host := cfg.OllamaHost
	if host == "" {
		host = defaultOllamaHost
	}
	host = strings.TrimRight(host, "/")
	host = strings.TrimSuffix(host, "/v1/chat/completions")
	host = strings.TrimSuffix(host, "/v1")

	return &Ollama{
		model:    cfg.LLMModel,
		endpoint: host + "/v1/chat/completions",
		client:   &http.Client{Timeout: 300 * time.Second},
	}, nil
}

func (o *Ollama) Name() string  { return "ollama" }
func (o *Ollama) Model() string { return o.model }

// chatRequest is the OpenAI-compatible wire format Ollama and LM Studio accept.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatUsage struct {
	TotalTokens int `json:"total_tokens"`
}

// Complete issues one chat completion against the local server.
func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, classifyTransport(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return CompletionResponse{}, classifyTransport(err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return CompletionResponse{}, classifyStatus(httpResp.StatusCode,
			fmt.Errorf("ollama API error (status %d): %s", httpResp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return CompletionResponse{}, core.UpstreamError(fmt.Errorf("parsing response: %w", err), false)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return CompletionResponse{}, core.UpstreamError(errors.New("response contained no text content"), false)
	}

	return CompletionResponse{
		Content:    result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}
