package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
)

func newTestOllama(server *httptest.Server) *Ollama {
	return &Ollama{
		model:    "gemma3:latest",
		endpoint: server.URL,
		client:   server.Client(),
	}
}

func TestOllamaComplete(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "# SUMMARY\nok"}}},
			Usage:   chatUsage{TotalTokens: 120},
		})
	}))
	defer server.Close()

	o := newTestOllama(server)
	resp, err := o.Complete(context.Background(), CompletionRequest{
		System:    "reviewer",
		Prompt:    "diff here",
		MaxTokens: 512,
	})
	require.NoError(t, err)

	assert.Equal(t, "# SUMMARY\nok", resp.Content)
	assert.Equal(t, 120, resp.TokensUsed)

	assert.Equal(t, "gemma3:latest", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, 512, got.MaxTokens)
}

func TestOllamaServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	_, err := newTestOllama(server).Complete(context.Background(), CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, core.KindUpstream, core.KindOf(err))
	assert.True(t, core.IsTransient(err))
	// Retrying is the caller's job.
	assert.Equal(t, 1, attempts)
}

func TestOllamaStatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantKind      core.ErrorKind
		wantTransient bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantKind: core.KindConfiguration},
		{name: "forbidden", status: http.StatusForbidden, wantKind: core.KindConfiguration},
		{name: "rate limited", status: http.StatusTooManyRequests, wantKind: core.KindUpstream, wantTransient: true},
		{name: "bad gateway", status: http.StatusBadGateway, wantKind: core.KindUpstream, wantTransient: true},
		{name: "bad request", status: http.StatusBadRequest, wantKind: core.KindUpstream, wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestOllama(server).Complete(context.Background(), CompletionRequest{Prompt: "p"})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, core.KindOf(err))
			assert.Equal(t, tt.wantTransient, core.IsTransient(err))
		})
	}
}

func TestOllamaEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer server.Close()

	_, err := newTestOllama(server).Complete(context.Background(), CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, core.KindUpstream, core.KindOf(err))
	assert.False(t, core.IsTransient(err))
}

func TestNewOllamaHostNormalization(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{name: "default", host: "", want: "http://localhost:11434/v1/chat/completions"},
		{name: "trailing slash", host: "http://localhost:11434/", want: "http://localhost:11434/v1/chat/completions"},
		{name: "with v1", host: "http://localhost:11434/v1", want: "http://localhost:11434/v1/chat/completions"},
		{name: "full path", host: "http://localhost:11434/v1/chat/completions", want: "http://localhost:11434/v1/chat/completions"},
		{name: "custom host", host: "http://192.168.1.100:11434", want: "http://192.168.1.100:11434/v1/chat/completions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewOllama(&config.Config{LLMModel: "gemma3:latest", OllamaHost: tt.host})
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.endpoint)
		})
	}
}
