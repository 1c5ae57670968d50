//go:build llamacpp

package gen

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"
)

// Package-level library initialization. llama.Load() and llama.Init()
// are process-global operations that must only happen once.
var (
	libOnce    sync.Once
	libLoadErr error
)

func loadLib(libPath string) error {
	libOnce.Do(func() {
		if err := llama.Load(libPath); err != nil {
			libLoadErr = fmt.Errorf("loading yzma shared library from %q: %w", libPath, err)
			return
		}
		llama.LogSet(llama.LogSilent())
		llama.Init()
	})
	return libLoadErr
}

// LocalClient runs a local GGUF model via hybridgroup/yzma (purego).
// It serves Embed for similarity queries without external API
// dependencies; text generation still goes through an API provider.
// Thread-safe: all model access is serialized via mutex. Contexts are
// created per Embed() call and freed immediately.
type LocalClient struct {
	libPath   string
	modelPath string
	gpuLayers int

	mu      sync.Mutex
	model   llama.Model
	vocab   llama.Vocab
	nEmbd   int32
	loaded  bool
	loadErr error
	once    sync.Once
}

// LocalConfig configures the local model client.
type LocalConfig struct {
	// LibPath is the directory containing yzma shared libraries
	// (.so/.dylib). Falls back to the YZMA_LIB env var at runtime.
	LibPath string

	// ModelPath is the path to the GGUF model file.
	ModelPath string

	// GPULayers is the number of layers to offload to GPU (0 = CPU).
	GPULayers int
}

// NewLocalClient creates a LocalClient. The model is not loaded until
// first use.
func NewLocalClient(cfg LocalConfig) *LocalClient {
	libPath := cfg.LibPath
	if libPath == "" {
		libPath = os.Getenv("YZMA_LIB")
	}
	return &LocalClient{
		libPath:   libPath,
		modelPath: cfg.ModelPath,
		gpuLayers: cfg.GPULayers,
	}
}

func (c *LocalClient) resolveLibPath() string {
	if c.libPath != "" {
		return c.libPath
	}
	return os.Getenv("YZMA_LIB")
}

// loadModel lazy-loads the model on first use.
func (c *LocalClient) loadModel() error {
	c.once.Do(func() {
		if c.modelPath == "" {
			c.loadErr = fmt.Errorf("no model path configured")
			return
		}
		libPath := c.resolveLibPath()
		if libPath == "" {
			c.loadErr = fmt.Errorf("no library path configured (set lib_path or YZMA_LIB)")
			return
		}
		if err := loadLib(libPath); err != nil {
			c.loadErr = err
			return
		}

		modelParams := llama.ModelDefaultParams()
		gpuLayers := c.gpuLayers
		if gpuLayers > math.MaxInt32 {
			gpuLayers = math.MaxInt32
		}
		modelParams.NGpuLayers = int32(gpuLayers)

		model, err := llama.ModelLoadFromFile(c.modelPath, modelParams)
		if err != nil {
			c.loadErr = fmt.Errorf("loading model %s: %w", c.modelPath, err)
			return
		}
		if model == 0 {
			c.loadErr = fmt.Errorf("loading model %s: returned null handle", c.modelPath)
			return
		}

		c.model = model
		c.vocab = llama.ModelGetVocab(model)
		c.nEmbd = int32(llama.ModelNEmbd(model))
		c.loaded = true
	})
	return c.loadErr
}

// Generate is not served locally; the local client exists for
// embedding-based similarity. Callers should route generation through
// an API provider.
func (c *LocalClient) Generate(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("local client does not generate text: configure an API provider")
}

// Available returns true if both the library directory and model file
// exist on disk. Cheap check, does not load the model or library.
func (c *LocalClient) Available() bool {
	libPath := c.resolveLibPath()
	if libPath == "" || c.modelPath == "" {
		return false
	}
	if info, err := os.Stat(libPath); err != nil || !info.IsDir() {
		return false
	}
	_, err := os.Stat(c.modelPath)
	return err == nil
}

// Embed returns a dense vector embedding for the given text. Creates
// a fresh llama context per call and frees it immediately.
func (c *LocalClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.loadModel(); err != nil {
		return nil, fmt.Errorf("local embed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	tokens := llama.Tokenize(c.vocab, text, true, true)

	ctxParams := llama.ContextDefaultParams()
	nTokens := len(tokens) + 64
	if nTokens > math.MaxUint32 {
		nTokens = math.MaxUint32
	}
	ctxParams.NCtx = uint32(nTokens)

	lctx, err := llama.InitFromModel(c.model, ctxParams)
	if err != nil {
		return nil, fmt.Errorf("creating embedding context: %w", err)
	}
	defer func() { _ = llama.Free(lctx) }()

	llama.SetEmbeddings(lctx, true)

	batch := llama.BatchGetOne(tokens)
	if _, err := llama.Decode(lctx, batch); err != nil {
		return nil, fmt.Errorf("decoding tokens: %w", err)
	}

	rawVec, err := llama.GetEmbeddingsSeq(lctx, 0, c.nEmbd)
	if err != nil {
		return nil, fmt.Errorf("getting embeddings: %w", err)
	}

	// Copy + L2 normalize (rawVec points to memory owned by lctx)
	vec := make([]float32, len(rawVec))
	copy(vec, rawVec)
	normalize(vec)

	return vec, nil
}

// Close releases model resources. Safe to call multiple times. Does
// NOT call llama.Close(), which is process-global.
func (c *LocalClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		_ = llama.ModelFree(c.model)
		c.model = 0
		c.vocab = 0
		c.nEmbd = 0
		c.loaded = false
		c.once = sync.Once{} // allow reloading after close
	}
	return nil
}
