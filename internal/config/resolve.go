package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/defaults.yaml
var builtinDefaults []byte

// DefaultSystemPromptID is the fallback system prompt when a requested id is
// unknown to the registry.
const DefaultSystemPromptID = "default"

// Options parameterizes resolution. KnownSystemPrompt lets the prompt
// registry veto unknown ids without this package importing it.
type Options struct {
	// KnownSystemPrompt reports whether the registry can serve the id.
	// When nil, only DefaultSystemPromptID is considered known.
	KnownSystemPrompt func(id string) bool
}

// Resolution is the product of layering: the frozen canonical map, its
// content hash, and the typed view.
type Resolution struct {
	Map    map[string]any
	Hash   string
	Config *Resolved
}

// LoadLayered deep-merges defaults, an optional model profile, the
// experiment file, and command-line overrides, then freezes the system
// prompt, hashes, validates, and decodes the typed config.
//
// defaultsPath may be empty; the embedded builtin defaults are used then.
// modelProfilePath may be empty.
func LoadLayered(defaultsPath, modelProfilePath, experimentPath string, cliOverrides []string, opts Options) (*Resolution, error) {
	merged, err := loadLayerFile(defaultsPath, builtinDefaults)
	if err != nil {
		return nil, err
	}

	if modelProfilePath != "" {
		profile, err := loadLayerFile(modelProfilePath, nil)
		if err != nil {
			return nil, err
		}
		merged = DeepMerge(merged, profile)
	}

	if experimentPath != "" {
		exp, err := loadLayerFile(experimentPath, nil)
		if err != nil {
			return nil, err
		}
		merged = DeepMerge(merged, exp)
	}

	for _, raw := range cliOverrides {
		ov, err := ParseOverride(raw)
		if err != nil {
			return nil, err
		}
		ApplyOverride(merged, ov)
	}

	freezeSystemPrompt(merged, opts.KnownSystemPrompt)

	return Finalize(merged)
}

// Finalize hashes a merged map, validates it, and decodes the typed view.
// Exposed for tests and for callers that assemble the map themselves.
func Finalize(merged map[string]any) (*Resolution, error) {
	hash := Hash(hashable(merged))

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &Resolution{Map: merged, Hash: hash, Config: cfg}, nil
}

// hashable strips the volatile resume switches before hashing so a resumed
// run hashes identically to the run it continues.
func hashable(m map[string]any) map[string]any {
	rt, ok := m["runtime"].(map[string]any)
	if !ok {
		return m
	}
	rtCopy := make(map[string]any, len(rt))
	for k, v := range rt {
		if k == "resume" || k == "resume_run_id" {
			continue
		}
		rtCopy[k] = v
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	out["runtime"] = rtCopy
	return out
}

func loadLayerFile(path string, fallback []byte) (map[string]any, error) {
	var data []byte
	if path == "" {
		if fallback == nil {
			return map[string]any{}, nil
		}
		data = fallback
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, &Error{Msg: fmt.Sprintf("reading layer %s", path), Err: err}
		}
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &Error{Msg: fmt.Sprintf("parsing layer %s", path), Err: err}
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// freezeSystemPrompt records the requested system prompt id and pins the
// effective one. Unknown ids fall back to the default template; the
// effective id is always present after resolution.
func freezeSystemPrompt(cfg map[string]any, known func(string) bool) {
	strategy, ok := cfg["strategy"].(map[string]any)
	if !ok {
		strategy = map[string]any{}
		cfg["strategy"] = strategy
	}

	requested := DefaultSystemPromptID
	if id, ok := strategy["system_prompt_id"].(string); ok && id != "" {
		requested = id
	}

	effective := requested
	if requested != DefaultSystemPromptID {
		if known == nil || !known(requested) {
			effective = DefaultSystemPromptID
		}
	}

	strategy["system_prompt_requested"] = requested
	strategy["system_prompt_effective"] = effective
	strategy["system_prompt_id"] = effective
}

func decode(m map[string]any) (*Resolved, error) {
	// YAML round-trip keeps one set of field tags authoritative.
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, &Error{Msg: "encoding merged config", Err: err}
	}
	var cfg Resolved
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &Error{Msg: "decoding merged config", Err: err}
	}
	return &cfg, nil
}

// WriteResolvedYAML renders the frozen map as YAML for the run directory.
func WriteResolvedYAML(path string, m map[string]any) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding resolved config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
