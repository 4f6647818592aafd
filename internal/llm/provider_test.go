package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
)

func TestNewProviderSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("ollama aliases need no credential", func(t *testing.T) {
		for _, name := range []string{"ollama", "lmstudio"} {
			c, err := New(ctx, &config.Config{LLMProvider: name, LLMModel: "gemma3:latest"})
			require.NoError(t, err)
			assert.Equal(t, "ollama", c.Name())
			assert.Equal(t, "gemma3:latest", c.Model())
		}
	})

	t.Run("anthropic with key", func(t *testing.T) {
		c, err := New(ctx, &config.Config{
			LLMProvider:     "anthropic",
			LLMModel:        "claude-haiku-4-5",
			AnthropicAPIKey: "sk-test",
		})
		require.NoError(t, err)
		assert.Equal(t, "anthropic", c.Name())
	})

	t.Run("missing credential is a configuration error", func(t *testing.T) {
		tests := []struct {
			provider string
		}{
			{provider: "anthropic"},
			{provider: "openai"},
			{provider: "gemini"},
		}
		for _, tt := range tests {
			_, err := New(ctx, &config.Config{LLMProvider: tt.provider, LLMModel: "m"})
			require.Error(t, err, tt.provider)
			assert.Equal(t, core.KindConfiguration, core.KindOf(err), tt.provider)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(ctx, &config.Config{LLMProvider: "bedrock"})
		require.Error(t, err)
		assert.Equal(t, core.KindConfiguration, core.KindOf(err))
		assert.Contains(t, err.Error(), "bedrock")
	})
}

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		status        int
		wantKind      core.ErrorKind
		wantTransient bool
	}{
		{status: 401, wantKind: core.KindConfiguration},
		{status: 403, wantKind: core.KindConfiguration},
		{status: 429, wantKind: core.KindUpstream, wantTransient: true},
		{status: 500, wantKind: core.KindUpstream, wantTransient: true},
		{status: 529, wantKind: core.KindUpstream, wantTransient: true},
		{status: 400, wantKind: core.KindUpstream, wantTransient: false},
		{status: 404, wantKind: core.KindUpstream, wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := classifyStatus(tt.status, cause)
			assert.Equal(t, tt.wantKind, core.KindOf(err))
			assert.Equal(t, tt.wantTransient, core.IsTransient(err))
			assert.ErrorIs(t, err, cause)
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	t.Run("deadline is transient", func(t *testing.T) {
		err := classifyTransport(context.DeadlineExceeded)
		assert.Equal(t, core.KindUpstream, core.KindOf(err))
		assert.True(t, core.IsTransient(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancellation is not retried", func(t *testing.T) {
		err := classifyTransport(context.Canceled)
		assert.False(t, core.IsTransient(err))
	})

	t.Run("dial failure is transient", func(t *testing.T) {
		err := classifyTransport(errors.New("connection refused"))
		assert.Equal(t, core.KindUpstream, core.KindOf(err))
		assert.True(t, core.IsTransient(err))
	})
}
