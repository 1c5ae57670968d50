package gen

import (
	"context"
	"strings"
)

// StaticClient is the zero-configuration fallback. It returns a
// deterministic placeholder derived from the prompt so that pipelines
// keep flowing when no real provider is configured.
type StaticClient struct{}

// NewStaticClient creates a StaticClient.
func NewStaticClient() *StaticClient {
	return &StaticClient{}
}

// Generate returns "[generated: <prompt prefix>]". The prefix is the
// first line of the prompt truncated to 60 runes, so the same prompt
// always yields the same output.
func (c *StaticClient) Generate(_ context.Context, prompt string) (string, error) {
	prefix := prompt
	if i := strings.IndexByte(prefix, '\n'); i >= 0 {
		prefix = prefix[:i]
	}
	runes := []rune(prefix)
	if len(runes) > 60 {
		prefix = string(runes[:60])
	}
	return "[generated: " + strings.TrimSpace(prefix) + "]", nil
}

// Available always returns true; the static client needs nothing.
func (c *StaticClient) Available() bool {
	return true
}
