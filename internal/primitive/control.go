package primitive

import "context"

// opIf evaluates a small fixed set of conditions against the input and
// returns args.then or args.else. Unknown conditions fall back to a
// truthiness check on the input.
func opIf(_ context.Context, input any, args, _ map[string]any) (any, error) {
	condition, _ := args["condition"].(string)
	thenValue, hasThen := args["then"]
	if !hasThen {
		thenValue = true
	}
	elseValue, hasElse := args["else"]
	if !hasElse {
		elseValue = false
	}

	switch condition {
	case "success < 0.5":
		success := 1.0
		if m, ok := input.(map[string]any); ok {
			if f, ok := toFloat(m["success"]); ok {
				success = f
			}
		}
		if success < 0.5 {
			return thenValue, nil
		}
		return elseValue, nil
	case "result != null":
		if input != nil {
			return thenValue, nil
		}
		return elseValue, nil
	}

	if truthy(input) {
		return thenValue, nil
	}
	return elseValue, nil
}

// opLoop bounds a list to args.max items (default 100). Non-lists are
// wrapped.
func opLoop(_ context.Context, input any, args, _ map[string]any) (any, error) {
	list, ok := input.([]any)
	if !ok {
		return []any{input}, nil
	}
	max := 100
	if f, ok := toFloat(args["max"]); ok && f >= 0 {
		max = int(f)
	}
	if len(list) > max {
		return list[:max], nil
	}
	return list, nil
}

// opBranch maps a string input through args.branches, falling back to
// args.default (or "main").
func opBranch(_ context.Context, input any, args, _ map[string]any) (any, error) {
	def, ok := args["default"].(string)
	if !ok {
		def = "main"
	}
	branches, _ := args["branches"].(map[string]any)
	if key, ok := input.(string); ok {
		if target, ok := branches[key]; ok {
			return target, nil
		}
	}
	return def, nil
}
