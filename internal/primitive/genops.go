package primitive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tautline/taut/internal/gen"
)

// opGenerate renders args.prompt as a template against the input and
// sends it to the generation client. A string input replaces {input};
// a map input replaces {key} and {$key} for each entry.
func (r *Registry) opGenerate(ctx context.Context, input any, args, _ map[string]any) (any, error) {
	template, ok := args["prompt"].(string)
	if !ok || template == "" {
		template = "{input}"
	}

	prompt := renderPrompt(template, input)

	out, err := r.deps.Gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

func renderPrompt(template string, input any) string {
	prompt := template
	switch v := input.(type) {
	case string:
		prompt = strings.ReplaceAll(prompt, "{input}", v)
	case map[string]any:
		for key, value := range v {
			s := fmt.Sprint(value)
			prompt = strings.ReplaceAll(prompt, "{$"+key+"}", s)
			prompt = strings.ReplaceAll(prompt, "{"+key+"}", s)
		}
	case nil:
	default:
		prompt = strings.ReplaceAll(prompt, "{input}", fmt.Sprint(v))
	}

	// unfilled template slots render as nothing
	prompt = strings.ReplaceAll(prompt, "{input}", "")
	prompt = strings.ReplaceAll(prompt, "{$input}", "")
	return prompt
}

// opParseJSON parses a generation response into structured data when
// args.format is "json". Parse failures return an error value carrying
// the raw text so downstream nodes can recover.
func opParseJSON(_ context.Context, input any, args, _ map[string]any) (any, error) {
	format, _ := args["format"].(string)
	if format != "json" {
		return input, nil
	}
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(gen.ExtractJSON(s)), &parsed); err != nil {
		return map[string]any{"error": "failed to parse JSON", "raw": s}, nil
	}
	return parsed, nil
}

// opValidate checks a map against args.schema.required and reports
// which keys are missing.
func opValidate(_ context.Context, input any, args, _ map[string]any) (any, error) {
	m, ok := input.(map[string]any)
	if !ok {
		return map[string]any{"valid": false, "error": "not a valid object"}, nil
	}

	var required []string
	if schema, ok := args["schema"].(map[string]any); ok {
		if list, ok := schema["required"].([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					required = append(required, s)
				}
			}
		}
	}

	missing := []any{}
	for _, key := range required {
		if _, ok := m[key]; !ok {
			missing = append(missing, key)
		}
	}
	return map[string]any{
		"valid":   len(missing) == 0,
		"data":    m,
		"missing": missing,
	}, nil
}
