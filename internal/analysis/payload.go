package analysis

import (
	"encoding/json"
	"strings"
)

// ExtractPayload parses the structured object embedded in a log line, starting
// at the first opening brace. Most lines are plain text, so any parse failure
// simply yields (nil, false).
func ExtractPayload(message string) (map[string]any, bool) {
	idx := strings.IndexByte(message, '{')
	if idx < 0 {
		return nil, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(message[idx:]), &payload); err != nil {
		return nil, false
	}
	if payload == nil {
		return nil, false
	}
	return payload, true
}
