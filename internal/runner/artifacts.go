package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// RedactedValue replaces secret-bearing config values in _run.json.
const RedactedValue = "***REDACTED***"

var secretKeyRE = regexp.MustCompile(`(?i)api_key|token|secret|password|authorization|private_key`)

// Redact returns a deep copy of a config map with every value under a
// secret-looking key replaced. Nested maps and lists are walked; keys match
// on substring, case-insensitive.
func Redact(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if secretKeyRE.MatchString(k) {
			out[k] = RedactedValue
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Redact(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}

// WriteJSONAtomic marshals v and writes it with a write-then-rename so a
// crash never leaves a truncated artifact behind.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}

// GameFileName renders the dense 1-indexed game artifact name.
func GameFileName(n int) string {
	return fmt.Sprintf("game_%04d.json", n)
}

// gameNumberFromName parses game_NNNN.json back to its number.
func gameNumberFromName(name string) (int, bool) {
	if !strings.HasPrefix(name, "game_") || !strings.HasSuffix(name, ".json") {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(name, "game_%04d.json", &n); err != nil {
		return 0, false
	}
	return n, true
}
