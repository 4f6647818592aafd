package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/llm"
	"github.com/sevigo/diff-scout/internal/logger"
	"github.com/sevigo/diff-scout/internal/review"
)

var (
	githubToken string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "scout reviews pull requests and local changes with a language model.",
	Long: `A one-shot code reviewer for CI jobs and local use. It fetches a pull
request diff or a local git diff, asks the configured language model for a
review, and prints the result as terminal Markdown.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub personal access token")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output with timing information")

	if err := viper.BindPFlag("GITHUB_TOKEN", rootCmd.PersistentFlags().Lookup("github-token")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.AutomaticEnv()
}

// cliLogger keeps log output on stderr so stdout carries only the review.
func cliLogger(cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	return logger.NewLogger(logger.Config{
		Level:  level.String(),
		Format: "text",
		Output: "stderr",
	}, nil)
}

// newInvoker builds the one-shot review pipeline shared by the CLI commands.
// The cleanup releases the LLM client.
func newInvoker(ctx context.Context, cfg *config.Config, log *slog.Logger) (*review.Invoker, func(), error) {
	completer, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	cleanup := func() {
		if closer, ok := completer.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	prompts, err := llm.NewPromptManager()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize prompt manager: %w", err)
	}
	return review.NewInvoker(cfg, completer, prompts, nil, log), cleanup, nil
}
