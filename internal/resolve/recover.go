package resolve

import (
	"encoding/json"
	"strings"
)

// maxRecoverInput bounds how much model output the extraction scan will
// walk. Anything past this is noise, not a result object.
const maxRecoverInput = 1 << 20 // 1 MB

// RecoverJSON extracts a JSON object from semi-structured model output.
// It tries a strict parse first, then falls back to the outermost brace
// pair in the text. It never fails: unusable input yields an empty map.
func RecoverJSON(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	if len(raw) > maxRecoverInput {
		raw = raw[:maxRecoverInput]
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil && out != nil {
		return out
	}

	// Models often wrap the object in prose. Take the span from the
	// first "{" to the last "}" and try again.
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return map[string]any{}
	}

	out = nil
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err == nil && out != nil {
		return out
	}
	return map[string]any{}
}
