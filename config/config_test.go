package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfig(t *testing.T) {
	yamlData := `
repair: true
output: out.pdf
update:
  min-version: "1.7"
  force-write: true
  info:
    Title: Annual Report
    Author: Jane Doe
`
	config, err := ParseConfig([]byte(yamlData))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if !config.Repair {
		t.Error("Repair should be true")
	}
	if config.Output != "out.pdf" {
		t.Errorf("Output = %q, want out.pdf", config.Output)
	}
	if config.Update == nil {
		t.Fatal("Update section missing")
	}
	if config.Update.MinVersion != "1.7" {
		t.Errorf("MinVersion = %q, want 1.7", config.Update.MinVersion)
	}
	if !config.Update.ForceWrite {
		t.Error("ForceWrite should be true")
	}
	if config.Update.Info["Title"] != "Annual Report" {
		t.Errorf("Info[Title] = %q", config.Update.Info["Title"])
	}
	if config.Update.Info["Author"] != "Jane Doe" {
		t.Errorf("Info[Author] = %q", config.Update.Info["Author"])
	}
}

func TestParseConfigDefaults(t *testing.T) {
	config, err := ParseConfig([]byte("{}"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if config.Repair {
		t.Error("Repair should default to false")
	}
	if config.Output != "" {
		t.Errorf("Output should default to empty, got %q", config.Output)
	}
	if config.Update != nil {
		t.Error("Update should default to nil")
	}
}

func TestParseConfigInvalidYAML(t *testing.T) {
	_, err := ParseConfig([]byte("update: [not a mapping"))
	if err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestParseConfigInvalidVersion(t *testing.T) {
	_, err := ParseConfig([]byte("update:\n  min-version: seventeen\n"))
	if err == nil {
		t.Fatal("expected an error for a malformed version")
	}
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("error is %T, want *ConfigError", err)
	}
	if configErr.Field != "min-version" {
		t.Errorf("Field = %q, want min-version", configErr.Field)
	}
	if !errors.Is(err, ErrConfigurationError) {
		t.Error("ConfigError should unwrap to ErrConfigurationError")
	}
}

func TestParseConfigInvalidInfoKey(t *testing.T) {
	_, err := ParseConfig([]byte("update:\n  info:\n    \"/Title\": bad\n"))
	if err == nil {
		t.Fatal("expected an error for an info key containing a slash")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdflex.yaml")
	data := "output: result.pdf\nupdate:\n  info:\n    Title: From File\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Output != "result.pdf" {
		t.Errorf("Output = %q", config.Output)
	}
	if config.Update.Info["Title"] != "From File" {
		t.Errorf("Info[Title] = %q", config.Update.Info["Title"])
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadConfigFromMap(t *testing.T) {
	config, err := LoadConfigFromMap(map[string]any{
		"repair": true,
		"update": map[string]any{
			"min-version": "2.0",
		},
	})
	if err != nil {
		t.Fatalf("LoadConfigFromMap failed: %v", err)
	}
	if !config.Repair {
		t.Error("Repair should be true")
	}
	if config.Update.MinVersion != "2.0" {
		t.Errorf("MinVersion = %q, want 2.0", config.Update.MinVersion)
	}
}

func TestCheckConfigKeys(t *testing.T) {
	expected := []string{"repair", "output", "min-version"}

	if err := CheckConfigKeys("test", expected, []string{"repair", "output"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// Underscores and dashes are interchangeable.
	if err := CheckConfigKeys("test", expected, []string{"min_version"}); err != nil {
		t.Errorf("unexpected error for underscore variant: %v", err)
	}

	err := CheckConfigKeys("test", expected, []string{"repair", "bogus", "extra"})
	if err == nil {
		t.Fatal("expected an error for unexpected keys")
	}
	if !errors.Is(err, ErrUnexpectedField) {
		t.Error("error should unwrap to ErrUnexpectedField")
	}
}
