//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/diff-scout/internal/app"
	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/jobs"
	"github.com/sevigo/diff-scout/internal/llm"
	"github.com/sevigo/diff-scout/internal/review"
	"github.com/sevigo/diff-scout/internal/server"
)

// InitializeApp builds the server-mode object graph. The returned cleanup
// releases the LLM client.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(
		app.NewApp,
		server.NewServer,
		config.LoadConfig,
		jobs.NewReviewJob,
		review.NewInvoker,
		llm.NewPromptManager,
		provideCompleter,
		provideDispatcher,
		provideRegistry,
		provideRecorder,
		provideLoggerConfig,
		provideSlogLogger,
	)
	return &app.App{}, nil, nil
}
