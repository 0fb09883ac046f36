// Package report loads finished runs and renders the post-hoc views: run
// summaries, per-game timelines, and the two-run statistical comparison.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"chessbench/internal/evaluation"
	"chessbench/internal/stats"
	"chessbench/internal/types"
)

// Run is a finished run directory loaded back into memory. The evaluated
// report is preferred when present; Scored is empty until the run has been
// through the evaluation pipeline.
type Run struct {
	Dir       string
	Report    *types.ExperimentReport
	Games     []types.GameRecord
	Scored    []evaluation.ScoredMove
	Evaluated bool
}

// Load reads a run directory: the report (evaluated if available), the game
// records, and any persisted per-move engine scores.
func Load(runDir string) (*Run, error) {
	r := &Run{Dir: runDir}

	if rep, err := readReportFile(filepath.Join(runDir, evaluation.EvaluatedReportFile)); err == nil {
		r.Report = rep
		r.Evaluated = true
	} else if rep, err := readReportFile(filepath.Join(runDir, "experiment_report.json")); err == nil {
		r.Report = rep
	} else {
		return nil, fmt.Errorf("no experiment report in %s: %w", runDir, err)
	}

	games, err := evaluation.LoadGames(runDir)
	if err != nil {
		return nil, err
	}
	r.Games = games

	if data, err := os.ReadFile(filepath.Join(runDir, evaluation.MoveEvalsFile)); err == nil {
		if err := json.Unmarshal(data, &r.Scored); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", evaluation.MoveEvalsFile, err)
		}
	}
	return r, nil
}

// Name is the run id, i.e. the directory name.
func (r *Run) Name() string {
	return filepath.Base(r.Dir)
}

func (r *Run) trackedColor() types.Color {
	if r.Evaluated && r.Report.Quality != nil {
		return r.Report.Quality.PlayerColor
	}
	if len(r.Games) > 0 {
		return evaluation.InferColor(r.Games[0].Players)
	}
	return types.ColorBlack
}

// WinScores maps each valid game onto the tracked player's score.
func (r *Run) WinScores() []float64 {
	color := r.trackedColor()
	var out []float64
	for i := range r.Games {
		g := &r.Games[i]
		if !types.IsValidTermination(g.Termination) {
			continue
		}
		switch {
		case g.Result == types.ResultDraw:
			out = append(out, 0.5)
		case g.Result == types.ResultWhiteWins && color == types.ColorWhite,
			g.Result == types.ResultBlackWins && color == types.ColorBlack:
			out = append(out, 1)
		case g.Result == types.ResultWhiteWins || g.Result == types.ResultBlackWins:
			out = append(out, 0)
		}
	}
	return out
}

// ACPLSamples returns the per-move centipawn losses from the evaluation
// artifact. Empty when the run was never evaluated.
func (r *Run) ACPLSamples() []float64 {
	out := make([]float64, 0, len(r.Scored))
	for _, s := range r.Scored {
		out = append(out, float64(s.CPLoss))
	}
	return out
}

// Sample packages the run for the statistical comparator.
func (r *Run) Sample() stats.Sample {
	return stats.Sample{Name: r.Name(), WinScores: r.WinScores(), ACPL: r.ACPLSamples()}
}

// Compare runs the statistical comparison between two loaded runs.
func Compare(a, b *Run, opts stats.Options) stats.Comparison {
	return stats.Compare(a.Sample(), b.Sample(), opts)
}

var phaseOrder = []types.Phase{types.PhaseOpening, types.PhaseMiddlegame, types.PhaseEndgame}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readReportFile(path string) (*types.ExperimentReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rep types.ExperimentReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &rep, nil
}
