package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tautline/taut/internal/blueprint"
	"github.com/tautline/taut/internal/config"
	"github.com/tautline/taut/internal/evolve"
	"github.com/tautline/taut/internal/gen"
	"github.com/tautline/taut/internal/interp"
	"github.com/tautline/taut/internal/logging"
	"github.com/tautline/taut/internal/memory"
	"github.com/tautline/taut/internal/pool"
	"github.com/tautline/taut/internal/primitive"
)

// runtime holds the wired collaborators every subcommand works with.
type runtime struct {
	cfg     *config.Config
	log     *slog.Logger
	trace   *logging.TraceLogger
	client  gen.Client
	pools   *pool.Store
	prints  *blueprint.Store
	metrics *evolve.Metrics
	book    *memory.Book
	interp  *interp.Interpreter
	engine  *evolve.Engine
}

// newRuntime loads configuration and constructs the object graph.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfgPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromFile(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if dataDir, _ := cmd.Flags().GetString("data"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.NewLogger(cfg.Logging.Level, os.Stderr)
	trace := logging.NewTraceLogger(cfg.DataDir, cfg.Logging.Level)
	client := gen.FromConfig(cfg.GenConfig())

	pools := pool.NewStore(cfg.DataDir)
	prints := blueprint.NewStore(filepath.Join(cfg.DataDir, "blueprints"))

	metrics, err := evolve.OpenMetrics(filepath.Join(cfg.DataDir, "metrics.db"))
	if err != nil {
		return nil, err
	}

	reg := primitive.New(primitive.Deps{Gen: client, Units: pools, Log: log})
	in := interp.New(reg, pools, log)
	in.MaxDepth = cfg.Interpreter.MaxDepth

	book := memory.New(filepath.Join(cfg.DataDir, "memory"), client, log, memory.Options{
		ActivationThreshold: cfg.Memory.ActivationThreshold,
		TopK:                cfg.Memory.TopK,
		LearningRate:        cfg.Memory.LearningRate,
		PruneTension:        cfg.Memory.PruneTension,
		PruneSuccess:        cfg.Memory.PruneSuccess,
	})

	engine := evolve.New(evolve.Deps{
		Pools:      pools,
		Blueprints: prints,
		Metrics:    metrics,
		Gen:        client,
		Interp:     in,
		Log:        log,
		Trace:      trace,
		Options: evolve.Options{
			MinRuns:         cfg.Evolution.MinRuns,
			MinSuccessRate:  cfg.Evolution.MinSuccessRate,
			EvolveThreshold: cfg.Evolution.EvolveThreshold,
		},
	})

	return &runtime{
		cfg:     cfg,
		log:     log,
		trace:   trace,
		client:  client,
		pools:   pools,
		prints:  prints,
		metrics: metrics,
		book:    book,
		interp:  in,
		engine:  engine,
	}, nil
}

// close releases everything the runtime holds open.
func (rt *runtime) close() {
	if c, ok := rt.client.(gen.Closer); ok {
		if err := c.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "closing client: %v\n", err)
		}
	}
	rt.trace.Close()
	if err := rt.metrics.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing metrics: %v\n", err)
	}
}
