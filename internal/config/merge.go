package config

import (
	"strconv"
	"strings"
)

// DeepMerge merges overlay into base recursively and returns the result.
// Mappings recurse key-wise; any non-mapping leaf in the overlay replaces the
// base value outright. Lists are replaced, never merged element-wise.
// Neither input is mutated.
func DeepMerge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range overlay {
		bv, exists := out[k]
		bm, baseIsMap := bv.(map[string]any)
		om, overlayIsMap := v.(map[string]any)
		if exists && baseIsMap && overlayIsMap {
			out[k] = DeepMerge(bm, om)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// Override is one parsed dotted.path=value command-line override.
type Override struct {
	Path  []string
	Value any
}

// ParseOverride parses "dotted.path=value". The value is interpreted as
// true/false/null first, then int, then float, and otherwise kept as a
// string.
func ParseOverride(s string) (Override, error) {
	eq := strings.Index(s, "=")
	if eq <= 0 {
		return Override{}, Errorf("override %q must be of the form dotted.path=value", s)
	}
	path := strings.Split(s[:eq], ".")
	for _, seg := range path {
		if seg == "" {
			return Override{}, Errorf("override %q has an empty path segment", s)
		}
	}
	return Override{Path: path, Value: parseOverrideValue(s[eq+1:])}, nil
}

func parseOverrideValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// ApplyOverride sets the override's value in the config map, creating
// intermediate mappings as needed. A non-mapping intermediate is replaced.
func ApplyOverride(cfg map[string]any, ov Override) {
	cur := cfg
	for _, seg := range ov.Path[:len(ov.Path)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[ov.Path[len(ov.Path)-1]] = ov.Value
}
