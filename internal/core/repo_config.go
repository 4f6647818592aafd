package core

import "strings"

// RepoConfig represents the structure of the .diff-scout.yml file.
type RepoConfig struct {
	// Custom instructions for the LLM prompt.
	CustomInstructions []string `yaml:"custom_instructions"`

	// High-performance exclusion of entire directories by name.
	// Example: ["dist", "build", "docs"]
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// Exclusion of files based on their extension.
	// The leading dot is optional. Example: [".md", "lock", ".log"]
	ExcludeExts []string `yaml:"exclude_exts"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		CustomInstructions: []string{},
		ExcludeDirs:        []string{},
		ExcludeExts:        []string{},
	}
}

// ExcludesPath reports whether path falls under an excluded directory or
// carries an excluded extension.
func (c *RepoConfig) ExcludesPath(path string) bool {
	if c == nil {
		return false
	}
	for _, part := range strings.Split(path, "/") {
		for _, dir := range c.ExcludeDirs {
			if part == dir {
				return true
			}
		}
	}
	for _, ext := range c.ExcludeExts {
		if strings.HasSuffix(path, "."+strings.TrimPrefix(ext, ".")) {
			return true
		}
	}
	return false
}
