// Package config loads the YAML configuration driving the pdflex tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common errors
var (
	ErrConfigurationError = errors.New("configuration error")
	ErrUnexpectedField    = errors.New("unexpected field in configuration")
)

// versionRegex matches PDF version strings like "1.7".
var versionRegex = regexp.MustCompile(`^\d+\.\d+$`)

// ConfigError is a configuration error with field context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfigurationError
}

// NewConfigError creates a ConfigError for a field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// UpdateConfig describes an incremental update to apply.
type UpdateConfig struct {
	// Info holds document information entries (/Title, /Author, ...) to
	// set on the updated document.
	Info map[string]string `yaml:"info" json:"info,omitempty"`

	// MinVersion raises the document version via the catalog when the
	// input is older, e.g. "1.7".
	MinVersion string `yaml:"min-version" json:"min_version,omitempty"`

	// ForceWrite appends an update section even when nothing changed.
	ForceWrite bool `yaml:"force-write" json:"force_write"`
}

// Validate checks the update configuration.
func (c *UpdateConfig) Validate() error {
	if c.MinVersion != "" && !versionRegex.MatchString(c.MinVersion) {
		return NewConfigError("min-version",
			fmt.Sprintf("%q is not a version like 1.7", c.MinVersion))
	}
	for key := range c.Info {
		if key == "" {
			return NewConfigError("info", "entry keys must not be empty")
		}
		if strings.ContainsAny(key, " \t/") {
			return NewConfigError("info",
				fmt.Sprintf("entry key %q must be a plain name", key))
		}
	}
	return nil
}

// ToolConfig is the top-level tool configuration.
type ToolConfig struct {
	// Repair opts into xref reconstruction for damaged inputs.
	Repair bool `yaml:"repair" json:"repair"`

	// Output is the default output path for commands that write.
	Output string `yaml:"output" json:"output,omitempty"`

	// Update configures the update command.
	Update *UpdateConfig `yaml:"update" json:"update,omitempty"`
}

// Validate checks the whole configuration.
func (c *ToolConfig) Validate() error {
	if c.Update != nil {
		return c.Update.Validate()
	}
	return nil
}

// LoadConfig loads a configuration from a YAML file.
func LoadConfig(filename string) (*ToolConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data.
func ParseConfig(data []byte) (*ToolConfig, error) {
	var config ToolConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfigFromMap loads configuration from a generic map, as produced by
// other YAML or JSON layers.
func LoadConfigFromMap(data map[string]any) (*ToolConfig, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config map: %w", err)
	}
	return ParseConfig(yamlData)
}

// CheckConfigKeys rejects keys outside the expected set. Underscores and
// dashes are interchangeable.
func CheckConfigKeys(configName string, expectedKeys, suppliedKeys []string) error {
	expectedSet := make(map[string]bool)
	for _, k := range expectedKeys {
		expectedSet[normalizeKey(k)] = true
	}

	var unexpected []string
	for _, k := range suppliedKeys {
		if !expectedSet[normalizeKey(k)] {
			unexpected = append(unexpected, k)
		}
	}

	if len(unexpected) > 0 {
		keyWord := "key"
		if len(unexpected) > 1 {
			keyWord = "keys"
		}
		return fmt.Errorf("%w: unexpected %s in configuration for %s: %s",
			ErrUnexpectedField, keyWord, configName, strings.Join(unexpected, ", "))
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
