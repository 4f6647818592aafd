package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/diff-scout/internal/core"
)

// RepoConfigFile is the optional per-repository configuration file name.
const RepoConfigFile = ".diff-scout.yml"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParsing  = errors.New("config parsing failed")
)

// LoadRepoConfig loads and parses the .diff-scout.yml file from a repository
// working tree.
func LoadRepoConfig(repoPath string) (*core.RepoConfig, error) {
	configPath := filepath.Join(repoPath, RepoConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return core.DefaultRepoConfig(), ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", RepoConfigFile, err)
	}
	return ParseRepoConfig(data)
}

// ParseRepoConfig parses raw .diff-scout.yml content. Callers that fetch the
// file over the GitHub contents API share this with the local loader.
func ParseRepoConfig(data []byte) (*core.RepoConfig, error) {
	config := core.DefaultRepoConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	return config, nil
}
