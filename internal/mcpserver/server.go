// Package mcpserver exposes taut over the Model Context Protocol so
// agent hosts can run units, recall memories, and feed outcomes back.
package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tautline/taut/internal/evolve"
	"github.com/tautline/taut/internal/interp"
	"github.com/tautline/taut/internal/memory"
	"github.com/tautline/taut/internal/pool"
)

// Deps are the server's collaborators.
type Deps struct {
	Pools   *pool.Store
	Book    *memory.Book
	Metrics *evolve.Metrics
	Interp  *interp.Interpreter
	Log     *slog.Logger
}

// Server wraps the MCP SDK server with the taut tools.
type Server struct {
	server  *sdk.Server
	pools   *pool.Store
	book    *memory.Book
	metrics *evolve.Metrics
	interp  *interp.Interpreter
	log     *slog.Logger
}

// New creates an MCP server and registers the taut tools.
func New(name, version string, deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		server: sdk.NewServer(&sdk.Implementation{
			Name:    name,
			Version: version,
		}, nil),
		pools:   deps.Pools,
		book:    deps.Book,
		metrics: deps.Metrics,
		interp:  deps.Interp,
		log:     deps.Log,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "taut_run",
		Description: "Run a stored unit with an input context and return its result",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "taut_recall",
		Description: "Recall memories relevant to a situation (sense, then activate the top matches)",
	}, s.handleRecall)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "taut_learn",
		Description: "Extract a reusable lesson from a task outcome and store it as a memory",
	}, s.handleLearn)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "taut_feedback",
		Description: "Reinforce or weaken memories that were used, based on the outcome",
	}, s.handleFeedback)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "taut_pools",
		Description: "List unit pool members with their tracked success metrics",
	}, s.handlePools)
}

// Run serves over stdio until the client disconnects or the context is
// cancelled. SIGINT/SIGTERM trigger a graceful stop.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		cancel()
	}()

	s.log.Info("mcp server listening on stdio")
	return s.server.Run(ctx, &sdk.StdioTransport{})
}
