package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
	if c.Interpreter.MaxDepth != 8 {
		t.Errorf("max depth: %d", c.Interpreter.MaxDepth)
	}
	if c.Memory.TopK != 3 || c.Memory.LearningRate != 0.2 {
		t.Errorf("memory defaults: %+v", c.Memory)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /tmp/taut-test
generation:
  provider: anthropic
  api_key: ${TAUT_TEST_KEY}
  model: claude-3-haiku-20240307
evolution:
  min_runs: 10
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TAUT_TEST_KEY", "sk-test-12345678")

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if c.DataDir != "/tmp/taut-test" {
		t.Errorf("data_dir: %q", c.DataDir)
	}
	if c.Generation.Provider != "anthropic" || c.Generation.APIKey != "sk-test-12345678" {
		t.Errorf("generation: %+v", c.Generation)
	}
	if c.Evolution.MinRuns != 10 {
		t.Errorf("min_runs override: %d", c.Evolution.MinRuns)
	}
	// unset sections keep their defaults
	if c.Evolution.MinSuccessRate != 0.3 {
		t.Errorf("min_success_rate default lost: %g", c.Evolution.MinSuccessRate)
	}
	if c.Logging.Level != "debug" {
		t.Errorf("log level: %q", c.Logging.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TAUT_DATA_DIR", "/tmp/env-dir")
	t.Setenv("TAUT_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env-87654321")
	t.Setenv("TAUT_LOG_LEVEL", "trace")
	t.Setenv("TAUT_MAX_DEPTH", "4")

	c := Default()
	applyEnvOverrides(c)

	if c.DataDir != "/tmp/env-dir" {
		t.Errorf("data dir: %q", c.DataDir)
	}
	if c.Generation.Provider != "anthropic" || c.Generation.APIKey != "sk-env-87654321" {
		t.Errorf("generation: %+v", c.Generation)
	}
	if c.Logging.Level != "trace" {
		t.Errorf("log level: %q", c.Logging.Level)
	}
	if c.Interpreter.MaxDepth != 4 {
		t.Errorf("max depth: %d", c.Interpreter.MaxDepth)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.Generation.Provider = "quantum" }},
		{"negative timeout", func(c *Config) { c.Generation.Timeout = -1 }},
		{"rate out of range", func(c *Config) { c.Evolution.MinSuccessRate = 1.5 }},
		{"threshold out of range", func(c *Config) { c.Memory.ActivationThreshold = -0.1 }},
		{"zero top_k", func(c *Config) { c.Memory.TopK = 0 }},
		{"zero max depth", func(c *Config) { c.Interpreter.MaxDepth = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRedactedAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "(set)"},
		{"sk-abcdefghijklmnop", "sk-a...mnop"},
	}
	for _, tt := range tests {
		c := GenerationConfig{APIKey: tt.key}
		if got := c.RedactedAPIKey(); got != tt.want {
			t.Errorf("RedactedAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
