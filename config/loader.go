package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and initial parsing of a DeploymentConfig from a file.
type Loader struct {
	filePath string
}

// NewLoader creates a new configuration loader for the given file path.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads the configuration file, unmarshals it into DeploymentConfig,
// and performs basic structural validation.
// Defaulting is handled separately by SetDefaults.
func (l *Loader) Load() (*DeploymentConfig, error) {
	if l.filePath == "" {
		return nil, fmt.Errorf("configuration file path is empty")
	}
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", l.filePath, err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("configuration file '%s' is empty", l.filePath)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("invalid config file '%s': %w", l.filePath, err)
	}
	return cfg, nil
}

// Parse unmarshals YAML content and checks the header fields.
func Parse(content []byte) (*DeploymentConfig, error) {
	var cfg DeploymentConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("config validation failed: apiVersion is a required field")
	}
	if cfg.APIVersion != APIVersion {
		return nil, fmt.Errorf("config validation failed: apiVersion must be '%s', got '%s'", APIVersion, cfg.APIVersion)
	}
	if cfg.Kind == "" {
		return nil, fmt.Errorf("config validation failed: kind is a required field")
	}
	if cfg.Kind != Kind {
		return nil, fmt.Errorf("config validation failed: kind must be '%s', got '%s'", Kind, cfg.Kind)
	}
	if cfg.Metadata.Name == "" {
		return nil, fmt.Errorf("config validation failed: metadata.name is a required field")
	}
	return &cfg, nil
}
