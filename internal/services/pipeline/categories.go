package pipeline

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCategoryData []byte

// Category maps a language-agnostic category key onto the provider's type
// vocabulary.
type Category struct {
	Key          string   `yaml:"key"`
	ProviderType string   `yaml:"provider_type"`
	Aliases      []string `yaml:"aliases"`
}

// CategoryTable resolves intent category keys and free-text aliases to
// provider categories.
type CategoryTable struct {
	byKey map[string]*Category
}

type categoryFile struct {
	Categories []Category `yaml:"categories"`
}

// LoadCategoryTable parses a YAML category vocabulary.
func LoadCategoryTable(data []byte) (*CategoryTable, error) {
	var file categoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse category table: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("category table is empty")
	}

	table := &CategoryTable{byKey: make(map[string]*Category)}
	for i := range file.Categories {
		category := &file.Categories[i]
		if category.Key == "" || category.ProviderType == "" {
			return nil, fmt.Errorf("category %d is missing key or provider_type", i)
		}
		table.byKey[normalizeCategoryKey(category.Key)] = category
		for _, alias := range category.Aliases {
			key := normalizeCategoryKey(alias)
			if _, taken := table.byKey[key]; !taken {
				table.byKey[key] = category
			}
		}
	}
	return table, nil
}

// DefaultCategoryTable returns the embedded vocabulary.
func DefaultCategoryTable() *CategoryTable {
	table, err := LoadCategoryTable(defaultCategoryData)
	if err != nil {
		// The embedded file ships with the binary; failing to parse it is a
		// build defect, not a runtime condition.
		panic(err)
	}
	return table
}

// Lookup resolves a category key or alias. Unknown keys return false rather
// than guessing.
func (t *CategoryTable) Lookup(key string) (*Category, bool) {
	if key == "" {
		return nil, false
	}
	category, ok := t.byKey[normalizeCategoryKey(key)]
	return category, ok
}

func normalizeCategoryKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.Join(strings.Fields(key), "_")
}
