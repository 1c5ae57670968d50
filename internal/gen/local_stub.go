//go:build !llamacpp

package gen

import (
	"context"
	"fmt"
)

// LocalClient is a stub used when the llamacpp build tag is not set.
// It reports Available()=false so FromConfig falls back to the static
// client.
type LocalClient struct {
	libPath   string
	modelPath string
}

// LocalConfig configures the local model client.
type LocalConfig struct {
	// LibPath is the directory containing yzma shared libraries.
	LibPath string

	// ModelPath is the path to the GGUF model file.
	ModelPath string

	// GPULayers is the number of layers to offload to GPU (0 = CPU).
	GPULayers int
}

// NewLocalClient creates a LocalClient. In the stub build (without
// the llamacpp tag) this client is always unavailable.
func NewLocalClient(cfg LocalConfig) *LocalClient {
	return &LocalClient{libPath: cfg.LibPath, modelPath: cfg.ModelPath}
}

// Generate returns an error because the local model is not compiled
// in without the llamacpp build tag.
func (c *LocalClient) Generate(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("local model not available: build with -tags llamacpp")
}

// Available returns false in stub builds.
func (c *LocalClient) Available() bool {
	return false
}

// Embed returns an error because the local model is not compiled in
// without the llamacpp build tag.
func (c *LocalClient) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("local model not available: build with -tags llamacpp")
}

// Close is a no-op for the stub client.
func (c *LocalClient) Close() error {
	return nil
}
