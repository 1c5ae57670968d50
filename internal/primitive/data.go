package primitive

import (
	"context"
	"sort"
)

// opGet reads a variable from the run's bindings, falling back to the
// node input when the key is absent or unset.
func opGet(_ context.Context, input any, args, vars map[string]any) (any, error) {
	if key, ok := args["key"].(string); ok && key != "" {
		if v, ok := vars[key]; ok {
			return v, nil
		}
	}
	return input, nil
}

// opSet binds the input under args.key and passes the input through.
func opSet(_ context.Context, input any, args, vars map[string]any) (any, error) {
	if key, ok := args["key"].(string); ok && key != "" {
		vars[key] = input
	}
	return input, nil
}

// opMerge flattens a list of maps into one map, later entries winning.
// A single map passes through; anything else is wrapped as {"value": x}.
func opMerge(_ context.Context, input any, _, _ map[string]any) (any, error) {
	switch v := input.(type) {
	case []any:
		out := make(map[string]any)
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				for k, val := range m {
					out[k] = val
				}
			}
		}
		return out, nil
	case map[string]any:
		return v, nil
	default:
		return map[string]any{"value": input}, nil
	}
}

// opFilter keeps list items matching the args: key+threshold keeps
// items whose field is >= threshold, key+value keeps exact matches,
// no args drops falsy items.
func opFilter(_ context.Context, input any, args, _ map[string]any) (any, error) {
	list, ok := input.([]any)
	if !ok {
		if truthy(input) {
			return []any{input}, nil
		}
		return []any{}, nil
	}

	key, _ := args["key"].(string)
	threshold, hasThreshold := toFloat(args["threshold"])
	value, hasValue := args["value"]

	out := make([]any, 0, len(list))
	for _, item := range list {
		switch {
		case hasThreshold && key != "":
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if f, ok := toFloat(m[key]); ok && f >= threshold {
				out = append(out, item)
			}
		case hasValue && key != "":
			if m, ok := item.(map[string]any); ok && m[key] == value {
				out = append(out, item)
			}
		default:
			if truthy(item) {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

// opMap projects a field out of each list item when args.key is set,
// otherwise passes the list through. Non-map items pass unchanged.
func opMap(_ context.Context, input any, args, _ map[string]any) (any, error) {
	list, ok := input.([]any)
	if !ok {
		list = []any{input}
	}
	key, _ := args["key"].(string)
	if key == "" {
		return list, nil
	}
	out := make([]any, len(list))
	for i, item := range list {
		if m, ok := item.(map[string]any); ok {
			out[i] = m[key]
		} else {
			out[i] = item
		}
	}
	return out, nil
}

// opFirst returns the head of a list; non-lists and empty lists pass
// through.
func opFirst(_ context.Context, input any, _, _ map[string]any) (any, error) {
	if list, ok := input.([]any); ok && len(list) > 0 {
		return list[0], nil
	}
	return input, nil
}

// opSort orders a list. args.by names a field for maps of numbers,
// args.order "desc" reverses. Mixed non-numeric lists sort by their
// string form.
func opSort(_ context.Context, input any, args, _ map[string]any) (any, error) {
	list, ok := input.([]any)
	if !ok {
		return []any{input}, nil
	}
	by, _ := args["by"].(string)
	order, _ := args["order"].(string)
	desc := order == "desc"

	out := make([]any, len(list))
	copy(out, list)

	sort.SliceStable(out, func(i, j int) bool {
		less := lessValue(sortKey(out[i], by), sortKey(out[j], by))
		if desc {
			return !less
		}
		return less
	})
	return out, nil
}

func sortKey(item any, by string) any {
	if by == "" {
		return item
	}
	if m, ok := item.(map[string]any); ok {
		return m[by]
	}
	return item
}

// opDiff compares two states given as a two-element list and reports
// changed, added, and removed keys.
func opDiff(_ context.Context, input any, _, _ map[string]any) (any, error) {
	empty := map[string]any{"changes": []any{}, "added": []any{}, "removed": []any{}}

	list, ok := input.([]any)
	if !ok || len(list) < 2 {
		return empty, nil
	}
	oldState, okOld := list[0].(map[string]any)
	newState, okNew := list[1].(map[string]any)
	if !okOld || !okNew {
		return empty, nil
	}

	changes := []any{}
	added := []any{}
	removed := []any{}

	newKeys := make([]string, 0, len(newState))
	for k := range newState {
		newKeys = append(newKeys, k)
	}
	sort.Strings(newKeys)
	for _, k := range newKeys {
		oldVal, exists := oldState[k]
		if !exists {
			added = append(added, k)
		} else if !equalValue(oldVal, newState[k]) {
			changes = append(changes, map[string]any{"key": k, "old": oldVal, "new": newState[k]})
		}
	}

	oldKeys := make([]string, 0, len(oldState))
	for k := range oldState {
		oldKeys = append(oldKeys, k)
	}
	sort.Strings(oldKeys)
	for _, k := range oldKeys {
		if _, exists := newState[k]; !exists {
			removed = append(removed, k)
		}
	}

	return map[string]any{"changes": changes, "added": added, "removed": removed}, nil
}

// truthy mirrors the loose semantics unit data flows rely on: nil,
// false, empty strings, zero numbers, and empty collections are falsy.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		if f, ok := toFloat(v); ok {
			return f != 0
		}
		return true
	}
}
