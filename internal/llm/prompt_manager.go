package llm

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed prompts/*.prompt
var promptFS embed.FS

type ModelProvider string
type PromptKey string

const (
	// DefaultProvider is the fallback when no provider-specific template exists.
	DefaultProvider ModelProvider = "default"

	SystemPromptKey  PromptKey = "system"
	CodeReviewPrompt PromptKey = "code_review"
)

// PromptManager loads the embedded prompt templates. Files are named
// key_provider.prompt; a provider without its own file falls back to the
// default variant.
type PromptManager struct {
	prompts map[PromptKey]map[ModelProvider]*template.Template
}

func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[PromptKey]map[ModelProvider]*template.Template),
	}

	files, err := promptFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		baseName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		sep := strings.LastIndex(baseName, "_")
		if sep <= 0 || sep == len(baseName)-1 {
			return nil, fmt.Errorf("invalid prompt filename %s (expected key_provider.prompt)", fileName)
		}
		key := PromptKey(baseName[:sep])
		provider := ModelProvider(baseName[sep+1:])

		content, err := promptFS.ReadFile("prompts/" + fileName)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded prompt %s: %w", fileName, err)
		}
		tmpl, err := template.New(baseName).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s: %w", fileName, err)
		}

		if _, ok := pm.prompts[key]; !ok {
			pm.prompts[key] = make(map[ModelProvider]*template.Template)
		}
		pm.prompts[key][provider] = tmpl
	}

	return pm, nil
}

// Get returns the template for key and provider, falling back to the default
// provider variant.
func (pm *PromptManager) Get(key PromptKey, provider ModelProvider) (*template.Template, error) {
	variants, ok := pm.prompts[key]
	if !ok {
		return nil, fmt.Errorf("no prompts found for key %q", key)
	}
	if tmpl, ok := variants[provider]; ok {
		return tmpl, nil
	}
	if tmpl, ok := variants[DefaultProvider]; ok {
		return tmpl, nil
	}
	return nil, fmt.Errorf("no template for key %q and provider %q, and no default available", key, provider)
}

// Render executes the resolved template with data.
func (pm *PromptManager) Render(key PromptKey, provider ModelProvider, data any) (string, error) {
	tmpl, err := pm.Get(key, provider)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", key, err)
	}
	return buf.String(), nil
}
