package clinic

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML fact sheet. An empty path returns the seeded facts.
// Fields absent from the file keep their seeded values.
func Load(path string) (Facts, error) {
	facts := Seed()
	if path == "" {
		return facts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Facts{}, fmt.Errorf("read clinic facts: %w", err)
	}
	if err := yaml.Unmarshal(data, &facts); err != nil {
		return Facts{}, fmt.Errorf("parse clinic facts %s: %w", path, err)
	}
	if err := facts.Validate(); err != nil {
		return Facts{}, fmt.Errorf("invalid clinic facts %s: %w", path, err)
	}
	return facts, nil
}
