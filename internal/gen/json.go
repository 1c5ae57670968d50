package gen

import "strings"

// ExtractJSON pulls a JSON document out of a model response. Models
// wrap JSON in markdown fences or surround it with prose; this handles
// ```json fences, generic ``` fences, and bare text containing a JSON
// object or array. Returns the trimmed input when no structure is
// found.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if idx := strings.Index(response, "```json"); idx != -1 {
		rest := response[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	if idx := strings.Index(response, "```"); idx != -1 {
		rest := response[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			// skip a language tag on the fence line
			firstLine := strings.TrimSpace(rest[:nl])
			if firstLine != "" && !strings.ContainsAny(firstLine, "{[") {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	start := strings.IndexAny(response, "{[")
	if start == -1 {
		return response
	}
	open := response[start]
	close := byte('}')
	if open == '[' {
		close = ']'
	}
	if end := strings.LastIndexByte(response, close); end > start {
		return strings.TrimSpace(response[start : end+1])
	}
	return strings.TrimSpace(response[start:])
}
