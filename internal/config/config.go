package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application's configuration values. All values are
// resolved once at load time; nothing reads the environment after startup.
type Config struct {
	ServerPort           string
	LogLevel             slog.Level
	LogFormat            string
	LogOutput            string
	GitHubAppID          int64
	GitHubWebhookSecret  string
	GitHubPrivateKeyPath string

	// GitHubToken is the personal access token used by the one-shot CLI
	// surfaces. Server mode authenticates as a GitHub App instead.
	GitHubToken string

	// TriggerPhrase is matched as a case-sensitive substring of PR comments.
	TriggerPhrase string

	LLMProvider    string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMMaxRetries  int
	LLMRetryWait   time.Duration
	LLMTemperature float64
	MaxTokens      int

	// MaxDiffBytes bounds the diff portion of the prompt; larger diffs are
	// trimmed section by section before the model is called.
	MaxDiffBytes int

	MaxWorkers int

	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	OllamaHost      string
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates everything server mode requires. It
// uses the Viper library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	cfg := readConfig()

	if cfg.GitHubAppID == 0 {
		return nil, fmt.Errorf("GITHUB_APP_ID must be set")
	}
	if cfg.GitHubWebhookSecret == "" {
		return nil, fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}
	if cfg.TriggerPhrase == "" {
		return nil, fmt.Errorf("TRIGGER_PHRASE must not be empty")
	}
	if err := validateProviderKey(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCLIConfig reads the same configuration sources as LoadConfig but only
// validates what a one-shot run needs: a usable provider. GitHub App
// credentials and the webhook secret stay optional.
func LoadCLIConfig() (*Config, error) {
	cfg := readConfig()
	if err := validateProviderKey(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfig() *Config {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("TRIGGER_PHRASE", "/review")
	viper.SetDefault("LLM_PROVIDER", "anthropic")
	viper.SetDefault("LLM_TIMEOUT", "60s")
	viper.SetDefault("LLM_MAX_RETRIES", 2)
	viper.SetDefault("LLM_RETRY_WAIT", "1s")
	viper.SetDefault("LLM_TEMPERATURE", 0.1)
	viper.SetDefault("MAX_TOKENS", 4000)
	viper.SetDefault("MAX_DIFF_BYTES", 100000)
	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/diff-scout-app.private-key.pem")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}

	provider := viper.GetString("LLM_PROVIDER")

	// Each provider carries its own default model when none is configured.
	model := viper.GetString("LLM_MODEL")
	if model == "" {
		model = DefaultModel(provider)
	}

	// Parse the log level string into a slog.Level type.
	var logLevel slog.Level
	logLevelStr := strings.ToLower(viper.GetString("LOG_LEVEL"))
	switch logLevelStr {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return &Config{
		ServerPort:           viper.GetString("SERVER_PORT"),
		LogLevel:             logLevel,
		LogFormat:            viper.GetString("LOG_FORMAT"),
		LogOutput:            viper.GetString("LOG_OUTPUT"),
		GitHubAppID:          viper.GetInt64("GITHUB_APP_ID"),
		GitHubWebhookSecret:  viper.GetString("GITHUB_WEBHOOK_SECRET"),
		GitHubPrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
		GitHubToken:          viper.GetString("GITHUB_TOKEN"),
		TriggerPhrase:        viper.GetString("TRIGGER_PHRASE"),
		LLMProvider:          provider,
		LLMModel:             model,
		LLMTimeout:           viper.GetDuration("LLM_TIMEOUT"),
		LLMMaxRetries:        viper.GetInt("LLM_MAX_RETRIES"),
		LLMRetryWait:         viper.GetDuration("LLM_RETRY_WAIT"),
		LLMTemperature:       viper.GetFloat64("LLM_TEMPERATURE"),
		MaxTokens:            viper.GetInt("MAX_TOKENS"),
		MaxDiffBytes:         viper.GetInt("MAX_DIFF_BYTES"),
		MaxWorkers:           viper.GetInt("MAX_WORKERS"),
		AnthropicAPIKey:      viper.GetString("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:         viper.GetString("OPENAI_API_KEY"),
		GeminiAPIKey:         viper.GetString("GEMINI_API_KEY"),
		OllamaHost:           viper.GetString("OLLAMA_HOST"),
	}
}

// DefaultModel returns the model used for a provider when LLM_MODEL is not
// configured.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "gemini", "google":
		return "gemini-2.5-flash"
	case "ollama", "lmstudio":
		return "gemma3:latest"
	default:
		return "claude-haiku-4-5"
	}
}

func validateProviderKey(cfg *Config) error {
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY must be set for provider %q", cfg.LLMProvider)
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be set for provider %q", cfg.LLMProvider)
		}
	case "gemini", "google":
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY must be set for provider %q", cfg.LLMProvider)
		}
	case "ollama", "lmstudio":
		// Local endpoint, no credential.
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	return nil
}
