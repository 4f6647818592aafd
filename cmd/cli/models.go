package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/diff-scout/internal/config"
)

var modelsJSON bool

type providerInfo struct {
	Provider     string `json:"provider"`
	DefaultModel string `json:"default_model"`
	Credential   string `json:"credential"`
	Configured   bool   `json:"configured"`
	Active       bool   `json:"active"`
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the supported providers and their default models",
	RunE: func(_ *cobra.Command, _ []string) error {
		providers := providerMatrix()

		if modelsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(providers)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tDEFAULT MODEL\tCREDENTIAL\tCONFIGURED\tACTIVE")
		for _, p := range providers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.Provider,
				p.DefaultModel,
				p.Credential,
				yesNo(p.Configured),
				yesNo(p.Active),
			)
		}
		return w.Flush()
	},
}

func providerMatrix() []providerInfo {
	// The active provider mirrors what LoadCLIConfig would resolve, but the
	// matrix must print even when no credential is configured.
	active := viper.GetString("LLM_PROVIDER")
	if active == "" {
		active = os.Getenv("LLM_PROVIDER")
	}
	if active == "" {
		active = "anthropic"
	}

	return []providerInfo{
		{
			Provider:     "anthropic",
			DefaultModel: config.DefaultModel("anthropic"),
			Credential:   "ANTHROPIC_API_KEY",
			Configured:   os.Getenv("ANTHROPIC_API_KEY") != "",
			Active:       active == "anthropic",
		},
		{
			Provider:     "openai",
			DefaultModel: config.DefaultModel("openai"),
			Credential:   "OPENAI_API_KEY",
			Configured:   os.Getenv("OPENAI_API_KEY") != "",
			Active:       active == "openai",
		},
		{
			Provider:     "gemini",
			DefaultModel: config.DefaultModel("gemini"),
			Credential:   "GEMINI_API_KEY",
			Configured:   os.Getenv("GEMINI_API_KEY") != "",
			Active:       active == "gemini" || active == "google",
		},
		{
			Provider:     "ollama",
			DefaultModel: config.DefaultModel("ollama"),
			Credential:   "(none, local endpoint)",
			Configured:   true,
			Active:       active == "ollama" || active == "lmstudio",
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output the provider matrix as JSON")
	rootCmd.AddCommand(modelsCmd)
}
