package ai

import (
	"encoding/json"
	"strings"
)

const noAnswerText = "No se obtuvo respuesta."

// ExtractOutput unwraps {"output": "..."} replies. Content that is not a JSON
// object is returned as-is; an object without a string output yields
// noAnswerText.
func ExtractOutput(content string) string {
	trimmed := strings.TrimSpace(content)
	trimmed = stripCodeFence(trimmed)
	if !strings.HasPrefix(trimmed, "{") {
		return strings.TrimSpace(content)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return strings.TrimSpace(content)
	}

	if output, ok := payload["output"].(string); ok {
		return strings.TrimSpace(output)
	}
	return noAnswerText
}

// stripCodeFence removes a ```json ... ``` wrapper some models add.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.HasPrefix(strings.TrimSpace(inner[:nl]), "{") {
		inner = inner[nl+1:]
	}
	return strings.TrimSpace(inner)
}
