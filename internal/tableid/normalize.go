package tableid

import "strings"

// Normalize canonicalizes parameter-table names used as storage keys.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.ReplaceAll(normalized, "/", "-")
	for strings.Contains(normalized, "--") {
		normalized = strings.ReplaceAll(normalized, "--", "-")
	}
	normalized = strings.Trim(normalized, "-")
	return trimTableSuffix(normalized)
}

func trimTableSuffix(value string) string {
	for _, suffix := range []string{"-table", "-yaml", "-yml"} {
		if trimmed := strings.TrimSuffix(value, suffix); trimmed != value && trimmed != "" {
			return trimmed
		}
	}
	return value
}
