package interp

import (
	"context"

	"github.com/tautline/taut/internal/graph"
)

// Loop drives a unit through repeated sense-act-feedback rounds until
// its tension settles below the threshold or the iteration cap is hit.
type Loop struct {
	Root   *graph.Unit
	Interp *Interpreter

	// Threshold is the tension below which the loop stops.
	Threshold float64

	// MaxIterations caps the number of rounds.
	MaxIterations int
}

// LoopResult summarizes a finished loop.
type LoopResult struct {
	Value        any            `json:"result"`
	Iterations   int            `json:"iterations"`
	FinalTension float64        `json:"final_tension"`
	Vars         map[string]any `json:"context"`
}

// NewLoop creates a Loop with the standard bounds: threshold 0.1, at
// most 1000 iterations.
func NewLoop(root *graph.Unit, in *Interpreter) *Loop {
	return &Loop{Root: root, Interp: in, Threshold: 0.1, MaxIterations: 1000}
}

// Run iterates until the root's tension drops to the threshold or the
// cap is reached. Each round runs the sense phase, then act, then
// feedback with the act result bound as action_result, and finally
// adjusts tension from the feedback value.
func (l *Loop) Run(ctx context.Context) *LoopResult {
	ec := NewContext(nil)
	iterations := 0

	for l.Root.Tension > l.Threshold && iterations < l.MaxIterations {
		select {
		case <-ctx.Done():
			return l.result(ec, iterations)
		default:
		}
		iterations++

		l.Interp.RunPhase(ctx, l.Root, graph.PhaseSense, ec)
		actResult := l.Interp.RunPhase(ctx, l.Root, graph.PhaseAct, ec)
		ec.Set("action_result", actResult)
		feedback := l.Interp.RunPhase(ctx, l.Root, graph.PhaseFeedback, ec)

		l.updateTension(feedback)
	}

	return l.result(ec, iterations)
}

// updateTension relaxes tension on success, raises it on reported
// failure, and drifts down slightly when feedback has no verdict.
func (l *Loop) updateTension(feedback any) {
	if m, ok := feedback.(map[string]any); ok {
		if success, _ := m["success"].(bool); success {
			l.Root.Tension *= 0.5
		} else {
			l.Root.Tension = min(1.0, l.Root.Tension*1.1)
		}
		return
	}
	l.Root.Tension *= 0.9
}

func (l *Loop) result(ec *Context, iterations int) *LoopResult {
	return &LoopResult{
		Value:        ec.Get("result"),
		Iterations:   iterations,
		FinalTension: l.Root.Tension,
		Vars:         ec.Vars,
	}
}
