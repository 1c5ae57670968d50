// Package seed ships the starter units a fresh data directory needs so
// selection and evolution have something to work with before any unit
// has been generated or learned.
package seed

import (
	"fmt"

	"github.com/tautline/taut/internal/graph"
	"github.com/tautline/taut/internal/pool"
)

// Result reports what a seeding pass did.
type Result struct {
	Total   int
	Added   []string
	Skipped []string
}

// Seeder populates the standard pools with starter units.
type Seeder struct {
	pools *pool.Store
}

// NewSeeder creates a Seeder over the given store.
func NewSeeder(pools *pool.Store) *Seeder {
	return &Seeder{pools: pools}
}

// starter describes one seeded pool member.
type starter struct {
	pool   string
	name   string
	intent string
	typ    graph.UnitType
	phase  graph.Phase
	nodes  []graph.Node
	edges  []graph.Edge
}

func starters() []starter {
	return []starter{
		{
			pool: "sense", name: "get_input",
			intent: "Read the incoming input",
			typ:    graph.UnitSense, phase: graph.PhaseSense,
			nodes: []graph.Node{
				{ID: "s1", Type: graph.NodeInput, Phase: graph.PhaseSense, Op: "emit", Input: "$input", Output: "result"},
			},
		},
		{
			pool: "sense", name: "parse_input",
			intent: "Parse and extract structure from the input",
			typ:    graph.UnitSense, phase: graph.PhaseSense,
			nodes: []graph.Node{
				{ID: "s1", Type: graph.NodeInput, Phase: graph.PhaseSense, Op: "parse_json", Input: "$input",
					Args: map[string]any{"format": "json"}, Output: "result"},
			},
		},
		{
			pool: "act", name: "generate_response",
			intent: "Generate a response to the input",
			typ:    graph.UnitAct, phase: graph.PhaseAct,
			nodes: []graph.Node{
				{ID: "a1", Type: graph.NodeProcess, Phase: graph.PhaseAct, Op: "generate", Input: "$input",
					Args: map[string]any{"prompt": "{input}"}, Output: "result"},
			},
		},
		{
			pool: "act", name: "summarize_text",
			intent: "Summarize the input briefly",
			typ:    graph.UnitAct, phase: graph.PhaseAct,
			nodes: []graph.Node{
				{ID: "a1", Type: graph.NodeProcess, Phase: graph.PhaseAct, Op: "generate", Input: "$input",
					Args: map[string]any{"prompt": "Summarize briefly:\n\n{input}"}, Output: "result"},
			},
		},
		{
			pool: "feedback", name: "emit_result",
			intent: "Emit the result unchanged",
			typ:    graph.UnitFeedback, phase: graph.PhaseFeedback,
			nodes: []graph.Node{
				{ID: "f1", Type: graph.NodeOutput, Phase: graph.PhaseFeedback, Op: "emit", Input: "$input", Output: "result"},
			},
		},
		{
			pool: "feedback", name: "evaluate_quality",
			intent: "Evaluate the quality of the result",
			typ:    graph.UnitFeedback, phase: graph.PhaseFeedback,
			nodes: []graph.Node{
				{ID: "f1", Type: graph.NodeProcess, Phase: graph.PhaseFeedback, Op: "calc_tension", Input: "$input", Output: "tension"},
				{ID: "f2", Type: graph.NodeOutput, Phase: graph.PhaseFeedback, Op: "emit", Input: "$input", Output: "result"},
			},
			edges: []graph.Edge{{From: "f1", To: "f2"}},
		},
	}
}

// Seed writes every starter unit that is not already present. It is
// idempotent: existing members are never overwritten.
func (s *Seeder) Seed() (*Result, error) {
	result := &Result{}

	for _, st := range starters() {
		result.Total++

		existing, err := s.pools.List(st.pool)
		if err != nil {
			return nil, fmt.Errorf("seeding %s/%s: %w", st.pool, st.name, err)
		}
		present := false
		for _, name := range existing {
			if name == st.name {
				present = true
				break
			}
		}
		if present {
			result.Skipped = append(result.Skipped, st.pool+"/"+st.name)
			continue
		}

		u, err := graph.New(st.intent, st.typ, st.nodes, st.edges)
		if err != nil {
			return nil, fmt.Errorf("seeding %s/%s: %w", st.pool, st.name, err)
		}
		if err := s.pools.Save(st.pool, st.name, u); err != nil {
			return nil, err
		}
		result.Added = append(result.Added, st.pool+"/"+st.name)
	}

	return result, nil
}
