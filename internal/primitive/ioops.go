package primitive

import "context"

// opEmit passes its input through; it exists so graphs have an
// explicit output node.
func opEmit(_ context.Context, input any, _, _ map[string]any) (any, error) {
	return input, nil
}

// opLog records the input on the injected logger and passes it
// through.
func (r *Registry) opLog(_ context.Context, input any, args, _ map[string]any) (any, error) {
	message, _ := args["message"].(string)
	level, _ := args["level"].(string)
	switch level {
	case "debug", "DEBUG":
		r.deps.Log.Debug(message, "value", input)
	case "warn", "WARN":
		r.deps.Log.Warn(message, "value", input)
	case "error", "ERROR":
		r.deps.Log.Error(message, "value", input)
	default:
		r.deps.Log.Info(message, "value", input)
	}
	return input, nil
}
