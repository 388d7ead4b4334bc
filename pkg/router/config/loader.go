package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader reads a Config from a source. YAMLLoader is the only
// implementation; it follows the teacher's NewYAMLLoader(path).Load() shape.
type Loader interface {
	Load() (*Config, error)
}

// YAMLLoader loads a Config from a YAML file on disk.
type YAMLLoader struct {
	path string
}

// NewYAMLLoader creates a Loader reading from path.
func NewYAMLLoader(path string) *YAMLLoader {
	return &YAMLLoader{path: path}
}

// Load reads and parses the file, then applies defaults.
func (l *YAMLLoader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", l.path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", l.path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}
