// Package interp executes unit graphs. Nodes run in dependency order,
// dispatch to registered primitives or recurse into sub-units, and a
// single failing node never aborts the run.
package interp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tautline/taut/internal/graph"
	"github.com/tautline/taut/internal/primitive"
)

// DefaultMaxDepth bounds sub-unit recursion.
const DefaultMaxDepth = 8

// Loader resolves a sub-unit reference to its unit.
type Loader interface {
	LoadByID(id string) (*graph.Unit, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(id string) (*graph.Unit, error)

func (f LoaderFunc) LoadByID(id string) (*graph.Unit, error) { return f(id) }

// Result is the outcome of one run. Success means no node recorded an
// error; Value is the result of the last node executed.
type Result struct {
	Value   any            `json:"result"`
	Vars    map[string]any `json:"context"`
	History []Entry        `json:"history"`
	Errors  []string       `json:"errors"`
	Success bool           `json:"success"`
}

// Interpreter runs units against a primitive registry. Loader may be
// nil when units never reference sub-units.
type Interpreter struct {
	reg    *primitive.Registry
	loader Loader
	log    *slog.Logger

	// MaxDepth bounds sub-unit recursion; exceeding it records a node
	// error instead of descending further.
	MaxDepth int
}

// New creates an Interpreter with the default recursion bound.
func New(reg *primitive.Registry, loader Loader, log *slog.Logger) *Interpreter {
	if log == nil {
		log = slog.Default()
	}
	return &Interpreter{reg: reg, loader: loader, log: log, MaxDepth: DefaultMaxDepth}
}

// Run executes every node of the unit in dependency order and returns
// the collected result. Node states are reset first, then updated as
// the run progresses.
func (in *Interpreter) Run(ctx context.Context, u *graph.Unit, initial map[string]any) *Result {
	ec := NewContext(initial)
	u.ResetStates()

	value := in.runNodes(ctx, u, u.Nodes, ec, 0)

	return &Result{
		Value:   value,
		Vars:    ec.Vars,
		History: ec.History,
		Errors:  ec.Errors,
		Success: len(ec.Errors) == 0,
	}
}

// RunPhase executes only the nodes tagged with the given phase,
// sharing the caller's context across calls.
func (in *Interpreter) RunPhase(ctx context.Context, u *graph.Unit, phase graph.Phase, ec *Context) any {
	return in.runNodes(ctx, u, u.NodesByPhase(phase), ec, 0)
}

func (in *Interpreter) runNodes(ctx context.Context, u *graph.Unit, nodes []graph.Node, ec *Context, depth int) any {
	ordered := executionOrder(nodes, u.Edges)

	var value any
	for _, idx := range ordered {
		// phase subsets carry copies; state updates go to the unit's
		// own node when it exists
		node := u.GetNode(nodes[idx].ID)
		if node == nil {
			node = &nodes[idx]
		}

		out, err := in.executeNode(ctx, node, ec, depth)
		if err != nil {
			node.State = graph.StateFailed
			ec.AddError(fmt.Sprintf("Node %s failed: %v", node.ID, err))
			ec.Log(node.ID, "failed", err.Error())
			in.log.Debug("node failed", "unit", u.ID, "node", node.ID, "error", err)
			continue
		}

		value = out
		if node.Output != "" {
			ec.Set(node.Output, out)
		}
		node.State = graph.StateCompleted
		ec.Log(node.ID, "completed", out)
	}
	return value
}

func (in *Interpreter) executeNode(ctx context.Context, node *graph.Node, ec *Context, depth int) (any, error) {
	node.State = graph.StateActive

	var input any
	if node.Input != nil {
		input = ec.Resolve(node.Input)
	}

	if node.SubUnit != "" {
		return in.runSubUnit(ctx, node.SubUnit, input, ec, depth)
	}

	fn, err := in.reg.Get(node.Op)
	if err != nil {
		return nil, err
	}
	return fn(ctx, input, node.Args, ec.Vars)
}

// runSubUnit recurses into a referenced unit. The sub-run gets its own
// copy of the variable bindings seeded with the resolved input, so it
// can read the parent's state but never mutate it.
func (in *Interpreter) runSubUnit(ctx context.Context, ref string, input any, ec *Context, depth int) (any, error) {
	if depth >= in.MaxDepth {
		return nil, fmt.Errorf("max recursion depth %d exceeded", in.MaxDepth)
	}
	if in.loader == nil {
		return nil, fmt.Errorf("could not load sub-unit: %s: no loader configured", ref)
	}
	sub, err := in.loader.LoadByID(ref)
	if err != nil {
		return nil, fmt.Errorf("could not load sub-unit: %s: %w", ref, err)
	}

	subCtx := NewContext(ec.Vars)
	if input != nil {
		subCtx.Set("input", input)
	}
	sub.ResetStates()

	value := in.runNodes(ctx, sub, sub.Nodes, subCtx, depth+1)

	// sub-unit failures surface in the parent's error list
	for _, e := range subCtx.Errors {
		ec.AddError(fmt.Sprintf("%s: %s", ref, e))
	}
	return value, nil
}

// executionOrder returns indices into nodes in dependency order using
// Kahn's algorithm. The ready queue is FIFO and seeded in node-list
// order, so runs are deterministic. If the edges (restricted to these
// nodes) form a cycle, the order falls back to the stable phase
// ordering sense, act, feedback.
func executionOrder(nodes []graph.Node, edges []graph.Edge) []int {
	if len(nodes) == 0 {
		return nil
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	inDegree := make([]int, len(nodes))
	adj := make([][]int, len(nodes))
	for _, e := range edges {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom || !okTo {
			continue
		}
		adj[from] = append(adj[from], to)
		inDegree[to]++
	}

	var queue []int
	for i := range nodes {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(nodes))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, j := range adj[i] {
			inDegree[j]--
			if inDegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if len(order) != len(nodes) {
		return phaseOrder(nodes)
	}
	return order
}

// phaseOrder is the cycle fallback: stable sort by phase.
func phaseOrder(nodes []graph.Node) []int {
	rank := func(p graph.Phase) int {
		switch p {
		case graph.PhaseSense:
			return 0
		case graph.PhaseFeedback:
			return 2
		default:
			return 1
		}
	}

	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return rank(nodes[order[i]].Phase) < rank(nodes[order[j]].Phase)
	})
	return order
}
