package invocation

import (
	"encoding/json"
	"strings"
)

// ParseParameters turns "key=value" strings into a parameter map. The value is
// decoded as JSON when it parses, otherwise kept as a string. Entries without
// "=" are skipped; later keys win.
func ParseParameters(raw []string) map[string]any {
	params := make(map[string]any, len(raw))
	for _, p := range raw {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			continue
		}
		params[key] = coerce(value)
	}
	return params
}

func coerce(value string) any {
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		return decoded
	}
	return value
}
