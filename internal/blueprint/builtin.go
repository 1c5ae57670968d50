package blueprint

import (
	"time"

	"github.com/tautline/taut/internal/graph"
)

// builtinBlueprints is the seed set available without any files on
// disk: a passthrough pipeline, a generation pipeline, and a
// generation pipeline that records the outcome.
func builtinBlueprints() map[string]*graph.Unit {
	return map[string]*graph.Unit{
		"passthrough": template("pass input through unchanged", []graph.Node{
			{ID: "s1", Type: graph.NodeInput, Phase: graph.PhaseSense, Description: "read input", Op: "get", Args: map[string]any{"key": "input"}, Output: "input"},
			{ID: "a1", Type: graph.NodeProcess, Phase: graph.PhaseAct, Description: "carry value", Op: "emit", Input: "$input", Output: "result"},
			{ID: "f1", Type: graph.NodeOutput, Phase: graph.PhaseFeedback, Description: "return result", Op: "emit", Input: "$result", Output: "output"},
		}, []graph.Edge{
			{From: "s1", To: "a1"},
			{From: "a1", To: "f1"},
		}),

		"generate": template("generate a response for the input", []graph.Node{
			{ID: "s1", Type: graph.NodeInput, Phase: graph.PhaseSense, Description: "read input", Op: "get", Args: map[string]any{"key": "input"}, Output: "input"},
			{ID: "a1", Type: graph.NodeProcess, Phase: graph.PhaseAct, Description: "generate", Op: "generate", Input: "$input", Args: map[string]any{"prompt": "{input}"}, Output: "result"},
			{ID: "f1", Type: graph.NodeOutput, Phase: graph.PhaseFeedback, Description: "return result", Op: "emit", Input: "$result", Output: "output"},
		}, []graph.Edge{
			{From: "s1", To: "a1"},
			{From: "a1", To: "f1"},
		}),

		"generate_json": template("generate structured data for the input", []graph.Node{
			{ID: "s1", Type: graph.NodeInput, Phase: graph.PhaseSense, Description: "read input", Op: "get", Args: map[string]any{"key": "input"}, Output: "input"},
			{ID: "a1", Type: graph.NodeProcess, Phase: graph.PhaseAct, Description: "generate", Op: "generate", Input: "$input", Args: map[string]any{"prompt": "{input}"}, Output: "raw"},
			{ID: "a2", Type: graph.NodeProcess, Phase: graph.PhaseAct, Description: "parse", Op: "parse_json", Input: "$raw", Args: map[string]any{"format": "json"}, Output: "result"},
			{ID: "f1", Type: graph.NodeOutput, Phase: graph.PhaseFeedback, Description: "return result", Op: "emit", Input: "$result", Output: "output"},
		}, []graph.Edge{
			{From: "s1", To: "a1"},
			{From: "a1", To: "a2"},
			{From: "a2", To: "f1"},
		}),
	}
}

func template(intent string, nodes []graph.Node, edges []graph.Edge) *graph.Unit {
	now := time.Unix(0, 0).UTC()
	return &graph.Unit{
		ID:         graph.NewID(),
		Type:       graph.UnitBlueprint,
		Intent:     intent,
		Phases:     []graph.Phase{graph.PhaseSense, graph.PhaseAct, graph.PhaseFeedback},
		Tension:    0.5,
		Importance: 0.5,
		Nodes:      nodes,
		Edges:      edges,
		Profile:    graph.TensionProfile{MaxTension: 1.0},
		Meta:       graph.Meta{CreatedAt: now, UpdatedAt: now, Version: 1},
	}
}
