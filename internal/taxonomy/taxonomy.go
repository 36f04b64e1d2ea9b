// Package taxonomy loads the label taxonomy that constrains what the
// classification prompt asks the model for. A YAML file can override
// the embedded default.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_taxonomy.yaml
var defaultTaxonomy []byte

// Category is one group of related labels the model may choose from.
type Category struct {
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels"`
}

// Taxonomy is the full set of categories offered to the model.
type Taxonomy struct {
	Categories []Category `yaml:"categories"`
}

// Load reads a taxonomy from the given path, or the embedded default
// when path is empty. Returns an error if the file cannot be read, the
// YAML is malformed, or the taxonomy is empty.
func Load(path string) (*Taxonomy, error) {
	data := defaultTaxonomy
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read taxonomy file %s: %w", path, err)
		}
		data = fileData
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}

	return &t, nil
}

// validate rejects empty or degenerate taxonomies.
func (t *Taxonomy) validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy has no categories")
	}
	for _, c := range t.Categories {
		if c.Name == "" {
			return fmt.Errorf("taxonomy category without a name")
		}
		if len(c.Labels) == 0 {
			return fmt.Errorf("taxonomy category %q has no labels", c.Name)
		}
	}
	return nil
}

// PromptFragment renders the taxonomy as a compact list for inclusion
// in the classification prompt.
func (t *Taxonomy) PromptFragment() string {
	var b strings.Builder
	for _, c := range t.Categories {
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(strings.Join(c.Labels, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

// LabelCount returns the total number of labels across all categories.
func (t *Taxonomy) LabelCount() int {
	n := 0
	for _, c := range t.Categories {
		n += len(c.Labels)
	}
	return n
}
