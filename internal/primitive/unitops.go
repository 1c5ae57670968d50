package primitive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tautline/taut/internal/graph"
)

// Unit primitives surface failures as error-shaped values rather than
// aborting the run: a unit graph that queries for something missing
// should be able to branch on the miss.

func (r *Registry) opLoadUnit(_ context.Context, input any, args, _ map[string]any) (any, error) {
	id, _ := args["id"].(string)
	if id == "" {
		id, _ = input.(string)
	}
	if id == "" || r.deps.Units == nil {
		return map[string]any{"error": fmt.Sprintf("unit not found: %s", id)}, nil
	}
	u, err := r.deps.Units.LoadByID(id)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("unit not found: %s", id)}, nil
	}
	return unitToMap(u), nil
}

func (r *Registry) opSaveUnit(_ context.Context, input any, _, _ map[string]any) (any, error) {
	if r.deps.Units == nil {
		return map[string]any{"saved": false, "error": "no unit store configured"}, nil
	}
	u, err := unitFromValue(input)
	if err != nil {
		return map[string]any{"saved": false, "error": err.Error()}, nil
	}
	if err := r.deps.Units.SaveUnit(u); err != nil {
		return map[string]any{"saved": false, "error": err.Error()}, nil
	}
	return map[string]any{"saved": true, "id": u.ID}, nil
}

func (r *Registry) opQueryUnits(_ context.Context, input any, args, _ map[string]any) (any, error) {
	if r.deps.Units == nil {
		return []any{}, nil
	}
	pool, _ := args["pool"].(string)
	q, _ := args["query"].(string)
	if q == "" {
		q, _ = input.(string)
	}
	limit := 100
	if f, ok := toFloat(args["limit"]); ok && f > 0 {
		limit = int(f)
	}

	units, err := r.deps.Units.Query(pool, q)
	if err != nil {
		return []any{}, nil
	}
	out := make([]any, 0, len(units))
	for _, u := range units {
		out = append(out, unitToMap(u))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// opNewUnit returns a fresh unit skeleton as data. It is not persisted
// and carries no nodes yet; validation happens when it is saved.
func opNewUnit(_ context.Context, input any, args, _ map[string]any) (any, error) {
	typ, ok := args["type"].(string)
	if !ok || typ == "" {
		typ = string(graph.UnitComposite)
	}
	intent, _ := args["intent"].(string)
	if intent == "" {
		intent, _ = input.(string)
	}
	if intent == "" {
		intent = "new unit"
	}
	return map[string]any{
		"id":         graph.NewID(),
		"type":       typ,
		"intent":     intent,
		"phases":     []any{"sense", "act", "feedback"},
		"tension":    0.8,
		"importance": 0.5,
		"nodes":      []any{},
		"edges":      []any{},
	}, nil
}

// opUpdateUnit shallow-merges args.updates into a unit record.
func opUpdateUnit(_ context.Context, input any, args, _ map[string]any) (any, error) {
	record, ok := input.(map[string]any)
	if !ok {
		return map[string]any{"error": "invalid input for update"}, nil
	}
	updates, _ := args["updates"].(map[string]any)
	for k, v := range updates {
		record[k] = v
	}
	return record, nil
}

// unitToMap converts a unit into the loose map form that flows through
// node pipelines.
func unitToMap(u *graph.Unit) map[string]any {
	data, err := json.Marshal(u)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"error": err.Error()}
	}
	return m
}

// unitFromValue accepts either a typed unit or its loose map form.
func unitFromValue(v any) (*graph.Unit, error) {
	switch x := v.(type) {
	case *graph.Unit:
		return x, nil
	case map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("encoding unit data: %w", err)
		}
		return graph.Decode(data)
	default:
		return nil, fmt.Errorf("invalid unit data: %T", v)
	}
}
