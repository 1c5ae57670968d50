// Package gen provides the text-generation collaborator used by the
// generate primitive, the evolution engine, and the living memory. It
// supports Anthropic, OpenAI, a local GGUF model, and a deterministic
// static fallback.
package gen

import (
	"context"
	"time"
)

// Client is the minimal generation surface the rest of the system
// depends on.
type Client interface {
	// Generate sends a prompt and returns the raw response text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Available reports whether the client is configured and ready.
	// For API clients this means credentials are present.
	Available() bool
}

// Embedder is an optional interface a Client may support for dense
// vector embeddings. Consumers type-assert to check for support:
// if e, ok := client.(Embedder); ok { ... }
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Closer is an optional interface for clients holding resources that
// need cleanup.
type Closer interface {
	Close() error
}

// Config configures a generation client.
type Config struct {
	// Provider selects the backend: "anthropic", "openai", "local",
	// or "static".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the provider credential. Not used for local or static.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint, for OpenAI-compatible
	// servers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier to request.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout bounds a single request.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// LibPath is the directory holding yzma shared libraries for the
	// local provider. Falls back to the YZMA_LIB env var.
	LibPath string `json:"lib_path,omitempty" yaml:"lib_path,omitempty"`

	// ModelPath is the GGUF model file for the local provider.
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty"`
}

// DefaultConfig returns a Config that needs no credentials: the static
// provider with a 30 second timeout.
func DefaultConfig() Config {
	return Config{
		Provider: "static",
		Timeout:  30 * time.Second,
	}
}

// FromConfig builds the client named by cfg.Provider. An unknown or
// empty provider, or a provider whose client reports unavailable,
// yields the static client so callers always get something that works.
func FromConfig(cfg Config) Client {
	var c Client
	switch cfg.Provider {
	case "anthropic":
		c = NewAnthropicClient(cfg)
	case "openai":
		c = NewOpenAIClient(cfg)
	case "local":
		c = NewLocalClient(LocalConfig{LibPath: cfg.LibPath, ModelPath: cfg.ModelPath})
	default:
		return NewStaticClient()
	}
	if !c.Available() {
		return NewStaticClient()
	}
	return c
}
