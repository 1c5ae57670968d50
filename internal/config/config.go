// Package config provides unified configuration loading for taut.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tautline/taut/internal/gen"
)

// Config contains all taut configuration settings.
type Config struct {
	// DataDir is the root for pools, units, blueprints, memories, and
	// the metrics database. Defaults to ~/.taut.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Generation configures the text-generation provider.
	Generation GenerationConfig `json:"generation" yaml:"generation"`

	// Evolution configures metric-driven selection and pruning.
	Evolution EvolutionConfig `json:"evolution" yaml:"evolution"`

	// Memory configures the recall population.
	Memory MemoryConfig `json:"memory" yaml:"memory"`

	// Interpreter configures unit execution.
	Interpreter InterpreterConfig `json:"interpreter" yaml:"interpreter"`

	// Logging configures operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// GenerationConfig configures the generation backend.
type GenerationConfig struct {
	// Provider identifies the backend: "anthropic", "openai", "local",
	// "static", or "" for the static fallback.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the provider credential. Supports ${VAR} syntax for
	// env vars.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint for OpenAI-compatible
	// servers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier to request.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout bounds a single generation request.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// LocalLibPath is the directory holding yzma shared libraries.
	// Only used when provider is "local". Requires -tags llamacpp.
	LocalLibPath string `json:"local_lib_path,omitempty" yaml:"local_lib_path,omitempty"`

	// LocalModelPath is the path to a GGUF model file.
	// Only used when provider is "local".
	LocalModelPath string `json:"local_model_path,omitempty" yaml:"local_model_path,omitempty"`
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "sk-a...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12
// chars.
func (c GenerationConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key
// logging.
func (c GenerationConfig) String() string {
	return fmt.Sprintf("GenerationConfig{Provider:%s, APIKey:%s, Model:%s}",
		c.Provider, c.RedactedAPIKey(), c.Model)
}

// EvolutionConfig configures the evolution engine.
type EvolutionConfig struct {
	// MinRuns is how many tracked runs a unit needs before it can be
	// pruned.
	MinRuns int `json:"min_runs" yaml:"min_runs"`

	// MinSuccessRate is the rate below which a unit with enough runs
	// is archived.
	MinSuccessRate float64 `json:"min_success_rate" yaml:"min_success_rate"`

	// EvolveThreshold is the success rate below which an evolution
	// step rewrites the weakest pool member.
	EvolveThreshold float64 `json:"evolve_threshold" yaml:"evolve_threshold"`
}

// MemoryConfig configures the living memory.
type MemoryConfig struct {
	// ActivationThreshold is the minimum activation for recall. Zero
	// recalls everything that activated at all; raise it to filter.
	ActivationThreshold float64 `json:"activation_threshold" yaml:"activation_threshold"`

	// TopK bounds how many memories activate per recall.
	TopK int `json:"top_k" yaml:"top_k"`

	// LearningRate is the EMA weight for success-rate updates.
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`

	// PruneTension and PruneSuccess: memories below BOTH are deleted.
	PruneTension float64 `json:"prune_tension" yaml:"prune_tension"`
	PruneSuccess float64 `json:"prune_success" yaml:"prune_success"`
}

// InterpreterConfig configures unit execution.
type InterpreterConfig struct {
	// MaxDepth bounds sub-unit recursion.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
}

// LoggingConfig configures taut's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or
	// "trace". "debug" enables trace logging to <data>/trace.jsonl.
	// "trace" additionally includes full prompt/response content.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dataDir := ".taut"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".taut")
	}
	return &Config{
		DataDir: dataDir,
		Generation: GenerationConfig{
			Provider: "",
			Timeout:  30 * time.Second,
		},
		Evolution: EvolutionConfig{
			MinRuns:         5,
			MinSuccessRate:  0.3,
			EvolveThreshold: 0.4,
		},
		Memory: MemoryConfig{
			ActivationThreshold: 0,
			TopK:                3,
			LearningRate:        0.2,
			PruneTension:        0.05,
			PruneSuccess:        0.2,
		},
		Interpreter: InterpreterConfig{
			MaxDepth: 8,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment
// variables. Order: defaults -> ~/.taut/config.yaml -> environment.
func Load() (*Config, error) {
	config := Default()

	if home, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(home, ".taut", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Generation.APIKey = expandEnvVars(config.Generation.APIKey)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	validProviders := map[string]bool{"": true, "anthropic": true, "openai": true, "local": true, "static": true}
	if !validProviders[c.Generation.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: anthropic, openai, local, static, or empty)", c.Generation.Provider)
	}

	if c.Generation.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Generation.Timeout)
	}

	if c.Evolution.MinSuccessRate < 0 || c.Evolution.MinSuccessRate > 1 {
		return fmt.Errorf("min_success_rate must be between 0 and 1, got %g", c.Evolution.MinSuccessRate)
	}
	if c.Evolution.EvolveThreshold < 0 || c.Evolution.EvolveThreshold > 1 {
		return fmt.Errorf("evolve_threshold must be between 0 and 1, got %g", c.Evolution.EvolveThreshold)
	}

	if c.Memory.ActivationThreshold < 0 || c.Memory.ActivationThreshold > 1 {
		return fmt.Errorf("activation_threshold must be between 0 and 1, got %g", c.Memory.ActivationThreshold)
	}
	if c.Memory.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", c.Memory.TopK)
	}

	if c.Interpreter.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", c.Interpreter.MaxDepth)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// GenConfig translates the generation section into the client config
// the gen package consumes.
func (c *Config) GenConfig() gen.Config {
	return gen.Config{
		Provider:  c.Generation.Provider,
		APIKey:    c.Generation.APIKey,
		BaseURL:   c.Generation.BaseURL,
		Model:     c.Generation.Model,
		Timeout:   c.Generation.Timeout,
		LibPath:   c.Generation.LocalLibPath,
		ModelPath: c.Generation.LocalModelPath,
	}
}

// applyEnvOverrides applies environment variable overrides to the
// config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TAUT_DATA_DIR"); v != "" {
		config.DataDir = v
	}

	if v := os.Getenv("TAUT_PROVIDER"); v != "" {
		config.Generation.Provider = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.Generation.Provider == "anthropic" {
		config.Generation.APIKey = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" && config.Generation.Provider == "openai" {
		config.Generation.APIKey = v
	}

	if v := os.Getenv("TAUT_LOCAL_LIB_PATH"); v != "" {
		config.Generation.LocalLibPath = v
	}
	if v := os.Getenv("TAUT_LOCAL_MODEL_PATH"); v != "" {
		config.Generation.LocalModelPath = v
	}

	if v := os.Getenv("TAUT_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Interpreter.MaxDepth = n
		}
	}

	if v := os.Getenv("TAUT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment
// variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
