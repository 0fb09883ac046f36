package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"chessbench/internal/config"
	"chessbench/internal/types"
)

//go:embed fewshot/examples.yaml
var fewShotYAML []byte

// Example is one worked move shown to the model before its own position.
type Example struct {
	Phase   types.Phase `yaml:"phase"`
	FEN     string      `yaml:"fen"`
	MoveUCI string      `yaml:"move_uci"`
	Note    string      `yaml:"note"`
}

type exampleFile struct {
	Examples []Example `yaml:"examples"`
}

var (
	fewShotOnce sync.Once
	fewShotLib  []Example
	fewShotErr  error
)

// BuiltinExamples returns the embedded few-shot library, parsed once.
func BuiltinExamples() ([]Example, error) {
	fewShotOnce.Do(func() {
		var f exampleFile
		if err := yaml.Unmarshal(fewShotYAML, &f); err != nil {
			fewShotErr = fmt.Errorf("parsing embedded few-shot examples: %w", err)
			return
		}
		fewShotLib = f.Examples
	})
	return fewShotLib, fewShotErr
}

// SelectExamples routes examples by phase: inline config examples first, then
// builtin ones matching the current phase, capped at maxExamples.
func SelectExamples(fc config.FewShotConfig, phase types.Phase) []Example {
	if !fc.Enabled || fc.MaxExamples <= 0 {
		return nil
	}
	var out []Example
	for _, in := range fc.Inline {
		ex := Example{Phase: types.Phase(in.Phase), FEN: in.FEN, MoveUCI: in.MoveUCI, Note: in.Note}
		if ex.Phase == "" || ex.Phase == phase {
			out = append(out, ex)
		}
		if len(out) == fc.MaxExamples {
			return out
		}
	}
	builtin, err := BuiltinExamples()
	if err != nil {
		return out
	}
	for _, ex := range builtin {
		if ex.Phase == phase {
			out = append(out, ex)
		}
		if len(out) == fc.MaxExamples {
			break
		}
	}
	return out
}

func renderExamples(examples []Example) string {
	var b strings.Builder
	b.WriteString("Worked examples:\n")
	for _, ex := range examples {
		fmt.Fprintf(&b, "Position: %s\nMove: %s", ex.FEN, ex.MoveUCI)
		if ex.Note != "" {
			fmt.Fprintf(&b, " (%s)", ex.Note)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
