// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/diff-scout/internal/app"
	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/jobs"
	"github.com/sevigo/diff-scout/internal/llm"
	"github.com/sevigo/diff-scout/internal/review"
	"github.com/sevigo/diff-scout/internal/server"
)

// InitializeApp creates and wires all server-mode dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Logger
	slogLogger := provideSlogLogger(provideLoggerConfig(cfg))

	// Metrics
	registry := provideRegistry()
	recorder := provideRecorder(registry)

	// LLM client
	completer, completerCleanup, err := provideCompleter(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	// Prompt templates
	promptMgr, err := llm.NewPromptManager()
	if err != nil {
		completerCleanup()
		return nil, nil, fmt.Errorf("failed to initialize prompt manager: %w", err)
	}

	// Review pipeline
	invoker := review.NewInvoker(cfg, completer, promptMgr, recorder, slogLogger)
	reviewJob := jobs.NewReviewJob(cfg, invoker, slogLogger)
	dispatcher := provideDispatcher(reviewJob, cfg, recorder, slogLogger)

	// HTTP server
	srv := server.NewServer(ctx, cfg, dispatcher, registry, slogLogger)

	// App
	application := app.NewApp(cfg, srv, dispatcher, slogLogger)

	cleanup := func() {
		completerCleanup()
	}
	return application, cleanup, nil
}
