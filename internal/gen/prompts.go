package gen

import (
	"fmt"
	"strings"
)

// UnitPrompt asks the model to produce a node/edge graph for an
// intent. The response is expected to be a JSON unit record.
func UnitPrompt(intent string) string {
	return fmt.Sprintf(`Design a small executable graph for this intent:

%s

Respond with ONLY a JSON object in this exact format:
{
  "intent": "...",
  "nodes": [
    {"id": "s1", "type": "input", "phase": "sense", "op": "get", "args": {"key": "input"}, "output": "input"},
    {"id": "a1", "type": "process", "phase": "act", "op": "generate", "input": "$input", "output": "result"},
    {"id": "f1", "type": "output", "phase": "feedback", "op": "emit", "input": "$result"}
  ],
  "edges": [
    {"from": "s1", "to": "a1"},
    {"from": "a1", "to": "f1"}
  ]
}

Use only these ops: get, set, merge, filter, map, first, sort, if, branch, emit, log, generate, parse_json, validate.
Every node needs a unique id. Every edge must reference existing node ids.`, intent)
}

// ImprovePrompt asks the model to rewrite an existing unit record so
// it serves its intent better. failures lists recent error messages.
func ImprovePrompt(record string, failures []string) string {
	var b strings.Builder
	b.WriteString("This executable graph is underperforming. Improve it while keeping the same intent.\n\n")
	b.WriteString("Current graph:\n")
	b.WriteString(record)
	if len(failures) > 0 {
		b.WriteString("\n\nRecent failures:\n")
		for _, f := range failures {
			b.WriteString("- " + f + "\n")
		}
	}
	b.WriteString("\nRespond with ONLY the improved JSON object, same schema, no commentary.")
	return b.String()
}

// RelevancePrompt asks the model to rate how relevant each listed
// memory is to a situation. One call covers the whole batch; the
// response is expected to be a JSON array of numbers in [0, 1], one
// per memory, in order.
func RelevancePrompt(situation string, intents []string) string {
	var b strings.Builder
	b.WriteString("Rate how relevant each memory is to the current situation.\n\n")
	b.WriteString("Situation: " + situation + "\n\nMemories:\n")
	for i, intent := range intents {
		fmt.Fprintf(&b, "%d. %s\n", i+1, intent)
	}
	fmt.Fprintf(&b, "\nRespond with ONLY a JSON array of %d numbers between 0.0 and 1.0, one per memory, in order. Example: [0.8, 0.1, 0.5]", len(intents))
	return b.String()
}

// LessonPrompt asks the model to distill a reusable lesson from an
// experience. The response is expected to be a JSON object with
// intent, lesson, and patterns fields.
func LessonPrompt(experience, outcome string) string {
	return fmt.Sprintf(`Extract a reusable lesson from this experience.

Experience: %s
Outcome: %s

Respond with ONLY a JSON object in this exact format:
{
  "intent": "short statement of when this lesson applies",
  "lesson": "the lesson itself, one or two sentences",
  "patterns": ["trigger phrase", "another trigger phrase"]
}

Patterns are short lowercase phrases that should activate this lesson when they appear in a future situation.`, experience, outcome)
}
