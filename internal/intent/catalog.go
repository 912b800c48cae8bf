package intent

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Intent is a classified purpose of a spoken phrase. It decides which
// instructions are sent to the completion service.
type Intent struct {
	Name              string   `yaml:"name" json:"name"`
	Keywords          []string `yaml:"keywords" json:"keywords"`
	Description       string   `yaml:"description" json:"description"`
	SystemInstruction string   `yaml:"system" json:"system_instruction"`
	TaskInstruction   string   `yaml:"task" json:"task_instruction"`
}

// Catalog is an ordered, immutable list of intents. The first entry is the
// default intent.
type Catalog struct {
	intents []Intent
}

// ErrEmptyCatalog is returned when a catalog has no intents.
var ErrEmptyCatalog = errors.New("intent catalog is empty")

// NewCatalog validates intents and returns a Catalog holding a private copy.
// Every intent needs at least one non-blank keyword and a description that
// no other intent uses.
func NewCatalog(intents []Intent) (*Catalog, error) {
	if len(intents) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]bool, len(intents))
	out := make([]Intent, len(intents))
	for i, in := range intents {
		if in.Description == "" {
			return nil, fmt.Errorf("intent %d (%s): description is required", i, in.Name)
		}
		if seen[in.Description] {
			return nil, fmt.Errorf("intent %d (%s): duplicate description %q", i, in.Name, in.Description)
		}
		seen[in.Description] = true

		keywords := make([]string, 0, len(in.Keywords))
		for _, kw := range in.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("intent %d (%s): at least one keyword is required", i, in.Name)
		}

		in.Keywords = keywords
		if in.Name == "" {
			in.Name = strings.ToLower(in.Description)
		}
		out[i] = in
	}
	return &Catalog{intents: out}, nil
}

// Parse decodes a YAML list of intents into a Catalog.
func Parse(data []byte) (*Catalog, error) {
	var intents []Intent
	if err := yaml.Unmarshal(data, &intents); err != nil {
		return nil, fmt.Errorf("parsing intent catalog: %w", err)
	}
	return NewCatalog(intents)
}

// LoadFile reads a YAML intent catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading intent catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load returns the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

var defaultCatalog = mustParse(defaultCatalogYAML)

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("built-in intent catalog: %v", err))
	}
	return c
}

// Default returns the built-in six-intent catalog.
func Default() *Catalog {
	return defaultCatalog
}

// Intents returns a copy of the catalog entries in priority order.
func (c *Catalog) Intents() []Intent {
	out := make([]Intent, len(c.intents))
	copy(out, c.intents)
	return out
}

// Len returns the number of intents.
func (c *Catalog) Len() int { return len(c.intents) }

// DefaultIntent returns the first intent, used when nothing matches.
func (c *Catalog) DefaultIntent() Intent {
	return c.intents[0]
}
