package primitive

import (
	"context"

	"github.com/tautline/taut/internal/tension"
)

// opCalcTension blends the four drive factors of a map input into a
// tension value. Missing factors default to 0.5 except blocking (0).
func (r *Registry) opCalcTension(_ context.Context, input any, _, _ map[string]any) (any, error) {
	m, ok := input.(map[string]any)
	if !ok {
		return 0.5, nil
	}
	return tension.Calculate(
		floatOr(m["importance"], 0.5),
		floatOr(m["urgency"], 0.5),
		floatOr(m["unresolved"], 0.5),
		floatOr(m["blocking"], 0.0),
		r.deps.Tension,
	), nil
}

// opPropagateTension blends the tensions of a list of unit records
// into a parent tension.
func (r *Registry) opPropagateTension(_ context.Context, input any, _, _ map[string]any) (any, error) {
	list, ok := input.([]any)
	if !ok {
		return map[string]any{"tension": itemTension(input)}, nil
	}
	if len(list) == 0 {
		return map[string]any{"tension": 0.5}, nil
	}

	tensions := make([]float64, len(list))
	max := 0.0
	sum := 0.0
	for i, item := range list {
		tensions[i] = itemTension(item)
		if tensions[i] > max {
			max = tensions[i]
		}
		sum += tensions[i]
	}
	return map[string]any{
		"tension": tension.PropagateUp(tensions, r.deps.Tension),
		"max":     max,
		"avg":     sum / float64(len(list)),
	}, nil
}

// opHighestTension returns the list item with the greatest tension, or
// nil for an empty list.
func opHighestTension(_ context.Context, input any, _, _ map[string]any) (any, error) {
	list, ok := input.([]any)
	if !ok {
		return input, nil
	}
	if len(list) == 0 {
		return nil, nil
	}
	best := list[0]
	bestT := itemTension(best)
	for _, item := range list[1:] {
		if t := itemTension(item); t > bestT {
			best, bestT = item, t
		}
	}
	return best, nil
}

func itemTension(v any) float64 {
	if m, ok := v.(map[string]any); ok {
		return floatOr(m["tension"], 0.5)
	}
	return 0.5
}

func floatOr(v any, def float64) float64 {
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}
