package gemini

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)^\\s*```(?:json|JSON)?\\s*\\n?(.*?)\\n?\\s*```\\s*$")

// stripCodeFences removes the markdown fence wrapper models sometimes add
// despite the prompt asking for bare JSON.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func parseModelJSON(raw string, out any) error {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return fmt.Errorf("empty response after fence stripping")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("parse model json: %w (response: %.200s)", err, cleaned)
	}
	return nil
}
