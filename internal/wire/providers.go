package wire

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
	"github.com/sevigo/diff-scout/internal/jobs"
	"github.com/sevigo/diff-scout/internal/llm"
	"github.com/sevigo/diff-scout/internal/logger"
	"github.com/sevigo/diff-scout/internal/metrics"
)

// provideRegistry creates the process-wide Prometheus registry. A dedicated
// registry keeps the server's collectors separate from the global default.
func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideRecorder(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.NewRecorder(reg)
}

// provideCompleter builds the configured LLM client. The cleanup closes
// clients that hold a connection, such as the Gemini gRPC transport.
func provideCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, func(), error) {
	completer, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closer, ok := completer.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	return completer, cleanup, nil
}

func provideDispatcher(job core.Job, cfg *config.Config, recorder *metrics.Recorder, log *slog.Logger) core.JobDispatcher {
	return jobs.NewDispatcher(job, cfg.MaxWorkers, recorder, log)
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{
		Level:  cfg.LogLevel.String(),
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}
}

func provideSlogLogger(loggerConfig logger.Config) *slog.Logger {
	return logger.NewLogger(loggerConfig, nil)
}
