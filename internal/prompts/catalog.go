package prompts

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"upload-ai/internal/models"
)

//go:embed default_prompts.json
var defaultPrompts []byte

var ErrPromptNotFound = errors.New("prompt not found")

// Catalog is the read-only, ordered list of prompt templates.
type Catalog struct {
	prompts []models.PromptTemplate
}

// Load reads the catalog from filePath, or the built-in defaults when
// filePath is empty.
func Load(filePath string) (*Catalog, error) {
	if filePath == "" {
		return parse(defaultPrompts)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return parse(bytes)
}

func parse(data []byte) (*Catalog, error) {
	var promptsFile models.PromptsFile
	if err := json.Unmarshal(data, &promptsFile); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	seen := make(map[string]bool, len(promptsFile.Prompts))
	for _, p := range promptsFile.Prompts {
		if p.ID == "" {
			return nil, fmt.Errorf("prompt %q has no id", p.Title)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate prompt id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return &Catalog{prompts: promptsFile.Prompts}, nil
}

// List returns a copy of the templates in catalog order.
func (c *Catalog) List() []models.PromptTemplate {
	return append([]models.PromptTemplate(nil), c.prompts...)
}

func (c *Catalog) Get(id string) (models.PromptTemplate, error) {
	for _, p := range c.prompts {
		if p.ID == id {
			return p, nil
		}
	}
	return models.PromptTemplate{}, fmt.Errorf("%w: %s", ErrPromptNotFound, id)
}
