package generate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON decodes a model reply that should be a JSON object, tolerating a
// markdown code fence wrapper.
func ParseJSON(raw string, v any) error {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return nil
}

// stripCodeFence removes markdown code block wrappers (```json ... ```).
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
