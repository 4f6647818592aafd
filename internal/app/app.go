// Package app initializes and orchestrates the main components of the Diff
// Scout service. It wires together the configuration, server, and background
// workers.
package app

import (
	"log/slog"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
	"github.com/sevigo/diff-scout/internal/server"
)

// App holds the main application components.
type App struct {
	cfg        *config.Config
	server     *server.Server
	logger     *slog.Logger
	dispatcher core.JobDispatcher
}

// NewApp assembles the application from its already-constructed parts.
func NewApp(cfg *config.Config, srv *server.Server, dispatcher core.JobDispatcher, logger *slog.Logger) *App {
	return &App{
		cfg:        cfg,
		server:     srv,
		logger:     logger,
		dispatcher: dispatcher,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting diff-scout",
		"server_port", a.cfg.ServerPort,
		"llm_provider", a.cfg.LLMProvider,
		"llm_model", a.cfg.LLMModel,
		"max_workers", a.cfg.MaxWorkers)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down diff-scout services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Stop the job dispatcher, allowing in-flight jobs to finish.
	a.dispatcher.Stop()

	if serverErr != nil {
		return serverErr
	}

	a.logger.Info("diff-scout stopped")
	return nil
}
